package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"taxdesk/internal/compliance"
	"taxdesk/internal/taxcalc"
)

var calcFlags struct {
	txType       string
	category     string
	civilServant bool
	grade        string
	certified    bool
	value        string
	asJSON       bool
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Resolve PPh and PPN for one payment",
	Long: `Resolve the PPh rate, PPN applicability and tax amounts for one payment
against the built-in decision table. Nothing is stored.

Examples:
  taxctl calc --type "Honor Narasumber" --category INDIVIDUAL --civil-servant --grade IV --value 1500000
  taxctl calc --type "Jasa Pelaksana Konstruksi" --category BUSINESS --certified --value 75000000 --json`,
	Args: cobra.NoArgs,
	RunE: runCalc,
}

func init() {
	f := calcCmd.Flags()
	f.StringVarP(&calcFlags.txType, "type", "t", "", "transaction type, e.g. \"Pembelian Barang\"")
	f.StringVarP(&calcFlags.category, "category", "c", string(taxcalc.CategoryIndividual), "taxpayer category (INDIVIDUAL, BUSINESS)")
	f.BoolVar(&calcFlags.civilServant, "civil-servant", false, "payee is a civil servant (ASN)")
	f.StringVar(&calcFlags.grade, "grade", "", "civil servant grade (I, II, III, IV)")
	f.BoolVar(&calcFlags.certified, "certified", false, "payee holds a construction certificate")
	f.StringVar(&calcFlags.value, "value", "", "transaction value (DPP) in rupiah")
	f.BoolVar(&calcFlags.asJSON, "json", false, "print the determination as JSON")
	_ = calcCmd.MarkFlagRequired("type")
	_ = calcCmd.MarkFlagRequired("value")
}

func runCalc(cmd *cobra.Command, _ []string) error {
	value, err := decimal.NewFromString(calcFlags.value)
	if err != nil {
		return fmt.Errorf("invalid --value %q: %w", calcFlags.value, err)
	}

	d := taxcalc.Descriptor{
		TransactionType:            calcFlags.txType,
		Category:                   taxcalc.TaxpayerCategory(calcFlags.category),
		IsCivilServant:             calcFlags.civilServant,
		HasConstructionCertificate: calcFlags.certified,
		Value:                      value,
	}
	if calcFlags.grade != "" {
		d.Grade = taxcalc.GradePtr(taxcalc.CivilServantGrade(calcFlags.grade))
	}
	if err := d.Validate(); err != nil {
		return err
	}

	det := taxcalc.Resolve(d)
	out := cmd.OutOrStdout()

	if calcFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"rule":             det.RuleName,
			"pph_rate_percent": det.PPhRatePercent,
			"vat_applicable":   det.VATApplicable,
			"pph_amount":       det.PPhAmount,
			"vat_amount":       det.VATAmount,
			"total_tax":        det.TotalTax,
		})
	}

	fmt.Fprintln(out, compliance.FormatSummary(d, det))
	return nil
}
