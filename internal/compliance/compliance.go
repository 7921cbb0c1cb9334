// Package compliance produces narrative compliance reports for tax
// determinations by delegating to a generative language model.
//
// The report text is returned verbatim; nothing downstream parses it.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"taxdesk/internal/taxcalc"
)

// Reporter turns a formatted summary into free-text compliance commentary.
type Reporter interface {
	Report(ctx context.Context, summary string) (string, error)
	Provider() string
}

var (
	ErrNoAPIKey      = errors.New("compliance: API key not configured")
	ErrEmptyResponse = errors.New("compliance: model returned an empty report")
)

// systemPrompt frames the model as a reviewer of Indonesian withholding practice.
const systemPrompt = `Anda adalah konsultan pajak yang meninjau pemotongan PPh dan pemungutan PPN oleh bendahara instansi pemerintah di Indonesia.
Tinjau ringkasan transaksi berikut dan tuliskan laporan kepatuhan singkat dalam Bahasa Indonesia:
1. Apakah tarif PPh dan perlakuan PPN sudah sesuai ketentuan yang berlaku.
2. Dokumen atau bukti potong yang perlu disiapkan (misalnya bukti potong PPh 21/22/23, faktur pajak).
3. Risiko atau hal yang perlu diperiksa ulang.
Jawab dalam paragraf atau poin singkat, maksimal 250 kata, tanpa tabel.`

var idr = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount with Indonesian digit grouping, e.g. "Rp 3.000.000,00".
func FormatRupiah(d decimal.Decimal) string {
	return idr.Sprintf("Rp %.2f", d.Round(2).InexactFloat64())
}

func categoryLabel(c taxcalc.TaxpayerCategory) string {
	switch c {
	case taxcalc.CategoryIndividual:
		return "Orang Pribadi"
	case taxcalc.CategoryBusiness:
		return "Badan Usaha"
	}
	return string(c)
}

func yesNo(b bool) string {
	if b {
		return "Ya"
	}
	return "Tidak"
}

// FormatSummary renders the descriptor and its determination as the text
// handed to the model. The output is deterministic for identical inputs.
func FormatSummary(d taxcalc.Descriptor, det taxcalc.Determination) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Jenis transaksi: %s\n", d.TransactionType)
	fmt.Fprintf(&b, "Kategori wajib pajak: %s\n", categoryLabel(d.Category))
	if d.Category == taxcalc.CategoryIndividual {
		fmt.Fprintf(&b, "ASN: %s\n", yesNo(d.IsCivilServant))
		if d.IsCivilServant && d.Grade != nil {
			fmt.Fprintf(&b, "Golongan: %s\n", *d.Grade)
		}
	}
	if strings.Contains(d.TransactionType, taxcalc.KeywordConstruction) {
		fmt.Fprintf(&b, "Memiliki sertifikat konstruksi: %s\n", yesNo(d.HasConstructionCertificate))
	}
	fmt.Fprintf(&b, "DPP: %s\n", FormatRupiah(d.Value))
	fmt.Fprintf(&b, "Tarif PPh: %s%%\n", det.PPhRatePercent.String())
	fmt.Fprintf(&b, "PPh: %s\n", FormatRupiah(det.PPhAmount))
	fmt.Fprintf(&b, "PPN dikenakan: %s\n", yesNo(det.VATApplicable))
	fmt.Fprintf(&b, "PPN: %s\n", FormatRupiah(det.VATAmount))
	fmt.Fprintf(&b, "Total pajak: %s\n", FormatRupiah(det.TotalTax))
	fmt.Fprintf(&b, "Aturan: %s", det.RuleName)

	return b.String()
}
