// Package taxcalc resolves PPh withholding and PPN for institutional payments.
//
// Resolution is a pure function of a Descriptor evaluated against an ordered
// decision Table. A Resolver holds no mutable state and is safe for
// concurrent use.
package taxcalc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxpayerCategory distinguishes Orang Pribadi from Badan Usaha.
type TaxpayerCategory string

const (
	CategoryIndividual TaxpayerCategory = "INDIVIDUAL"
	CategoryBusiness   TaxpayerCategory = "BUSINESS"
)

// Valid reports whether c is a known category.
func (c TaxpayerCategory) Valid() bool {
	return c == CategoryIndividual || c == CategoryBusiness
}

// CivilServantGrade is the ASN golongan.
type CivilServantGrade string

const (
	GradeI   CivilServantGrade = "I"
	GradeII  CivilServantGrade = "II"
	GradeIII CivilServantGrade = "III"
	GradeIV  CivilServantGrade = "IV"
)

// Valid reports whether g is one of the four golongan.
func (g CivilServantGrade) Valid() bool {
	switch g {
	case GradeI, GradeII, GradeIII, GradeIV:
		return true
	}
	return false
}

// GradePtr is a convenience for optional grades in literals.
func GradePtr(g CivilServantGrade) *CivilServantGrade {
	return &g
}

// Descriptor describes one payment to be taxed.
type Descriptor struct {
	TransactionType            string
	Category                   TaxpayerCategory
	IsCivilServant             bool
	Grade                      *CivilServantGrade
	HasConstructionCertificate bool
	Value                      decimal.Decimal
}

// Determination is the outcome of resolving a Descriptor. Amounts are not rounded.
type Determination struct {
	RuleName       string
	PPhRatePercent decimal.Decimal
	VATApplicable  bool
	PPhAmount      decimal.Decimal
	VATAmount      decimal.Decimal
	TotalTax       decimal.Decimal
}

var (
	ErrNegativeValue   = errors.New("transaction value must not be negative")
	ErrUnknownCategory = errors.New("unknown taxpayer category")
	ErrEmptyType       = errors.New("transaction type is required")
	ErrUnknownGrade    = errors.New("unknown civil servant grade")
)

// Validate checks the invariants the resolver assumes. Resolve itself never
// fails; callers are expected to reject invalid input before calling it.
func (d Descriptor) Validate() error {
	if d.TransactionType == "" {
		return ErrEmptyType
	}
	if !d.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, d.Category)
	}
	if d.Grade != nil && !d.Grade.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGrade, *d.Grade)
	}
	if d.Value.IsNegative() {
		return ErrNegativeValue
	}
	return nil
}

// Resolver evaluates descriptors against a fixed table.
type Resolver struct {
	table Table
}

// NewResolver returns a resolver over a private copy of t.
func NewResolver(t Table) *Resolver {
	return &Resolver{table: t.clone()}
}

// Table returns a copy of the resolver's decision table.
func (r *Resolver) Table() Table {
	return r.table.clone()
}

// Resolve returns the determination for d. The first rule of d's category
// whose condition holds wins; with no match the rate is zero and no VAT applies.
func (r *Resolver) Resolve(d Descriptor) Determination {
	rate := decimal.Zero
	vat := false
	name := FallbackRuleName

	if rule, ok := r.table.match(d); ok {
		rate = rule.RatePercent
		vat = rule.VAT
		name = rule.Name
	}

	pph := d.Value.Mul(rate.Shift(-2))
	vatAmount := decimal.Zero
	if vat {
		vatAmount = d.Value.Mul(r.table.VATRate)
	}

	return Determination{
		RuleName:       name,
		PPhRatePercent: rate,
		VATApplicable:  vat,
		PPhAmount:      pph,
		VATAmount:      vatAmount,
		TotalTax:       pph.Add(vatAmount),
	}
}

var defaultResolver = NewResolver(DefaultTable())

// Resolve resolves d against DefaultTable.
func Resolve(d Descriptor) Determination {
	return defaultResolver.Resolve(d)
}
