package taxcalc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction types the default table refers to by exact name.
const (
	TypeDailyLaborer       = "Tukang Harian (Pekerja lepas)"
	TypeCompetitionPrize   = "Hadiah Lomba"
	TypeMeals              = "Makan Minum"
	TypeGoodsPurchase      = "Pembelian Barang"
	TypeInsurancePremium   = "Belanja Premi Asuransi"
	TypeConstructionConsul = "Jasa Konsultasi Konstruksi"

	// Substring keys.
	KeywordHonor        = "Honor"
	KeywordConstruction = "Konstruksi"
)

// FallbackRuleName is reported when no rule of the category matched.
const FallbackRuleName = "fallback"

// Flag is a tri-state condition on a boolean descriptor field.
type Flag int8

const (
	Any Flag = iota
	Yes
	No
)

func (f Flag) holds(v bool) bool {
	switch f {
	case Yes:
		return v
	case No:
		return !v
	}
	return true
}

// Condition is the predicate half of a Rule. Zero-valued fields do not constrain.
type Condition struct {
	TypeEquals   string
	TypeContains string
	CivilServant Flag
	Grade        CivilServantGrade
	Certified    Flag
	ValueAbove   decimal.NullDecimal
	ValueAtMost  decimal.NullDecimal
}

// Holds reports whether d satisfies every constraint of c.
func (c Condition) Holds(d Descriptor) bool {
	if c.TypeEquals != "" && d.TransactionType != c.TypeEquals {
		return false
	}
	if c.TypeContains != "" && !strings.Contains(d.TransactionType, c.TypeContains) {
		return false
	}
	if !c.CivilServant.holds(d.IsCivilServant) {
		return false
	}
	if c.Grade != "" && (d.Grade == nil || *d.Grade != c.Grade) {
		return false
	}
	if !c.Certified.holds(d.HasConstructionCertificate) {
		return false
	}
	if c.ValueAbove.Valid && !d.Value.GreaterThan(c.ValueAbove.Decimal) {
		return false
	}
	if c.ValueAtMost.Valid && !d.Value.LessThanOrEqual(c.ValueAtMost.Decimal) {
		return false
	}
	return true
}

// Rule maps a condition to a rate and VAT applicability.
type Rule struct {
	Name        string
	Category    TaxpayerCategory
	When        Condition
	RatePercent decimal.Decimal
	VAT         bool
}

// Table is an ordered decision table. Rules are evaluated top to bottom among
// those of the descriptor's category.
type Table struct {
	VATRate decimal.Decimal
	Rules   []Rule
}

func (t Table) clone() Table {
	rules := make([]Rule, len(t.Rules))
	copy(rules, t.Rules)
	return Table{VATRate: t.VATRate, Rules: rules}
}

func (t Table) match(d Descriptor) (Rule, bool) {
	for _, r := range t.Rules {
		if r.Category == d.Category && r.When.Holds(d) {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate reports structural problems with the table.
func (t Table) Validate() error {
	if t.VATRate.IsNegative() {
		return errors.New("vat rate must not be negative")
	}
	seen := make(map[string]bool, len(t.Rules))
	for i, r := range t.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("rule %d: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
		if !r.Category.Valid() {
			return fmt.Errorf("rule %q: %w", r.Name, ErrUnknownCategory)
		}
		if r.RatePercent.IsNegative() {
			return fmt.Errorf("rule %q: rate must not be negative", r.Name)
		}
	}
	return nil
}

// VATRate is the PPN rate applied when a rule marks VAT applicable.
var VATRate = decimal.RequireFromString("0.11")

// VATThreshold is the DPP above which default buckets attract PPN.
var VATThreshold = decimal.NewFromInt(2_000_000)

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func atMost(n int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(n))
}

// DefaultTable returns the PPh/PPN rules for institutional payments.
func DefaultTable() Table {
	vatAbove := decimal.NewNullDecimal(VATThreshold)

	return Table{
		VATRate: VATRate,
		Rules: []Rule{
			// Orang Pribadi
			{Name: "individual.honor.asn.iv", Category: CategoryIndividual,
				When: Condition{TypeContains: KeywordHonor, CivilServant: Yes, Grade: GradeIV}, RatePercent: pct("15")},
			{Name: "individual.honor.asn.iii", Category: CategoryIndividual,
				When: Condition{TypeContains: KeywordHonor, CivilServant: Yes, Grade: GradeIII}, RatePercent: pct("5")},
			{Name: "individual.honor.asn", Category: CategoryIndividual,
				When: Condition{TypeContains: KeywordHonor, CivilServant: Yes}, RatePercent: pct("0")},
			{Name: "individual.honor", Category: CategoryIndividual,
				When: Condition{TypeContains: KeywordHonor}, RatePercent: pct("5")},
			{Name: "individual.daily_laborer.exempt", Category: CategoryIndividual,
				When: Condition{TypeEquals: TypeDailyLaborer, ValueAtMost: atMost(450_000)}, RatePercent: pct("0")},
			{Name: "individual.daily_laborer.low", Category: CategoryIndividual,
				When: Condition{TypeEquals: TypeDailyLaborer, ValueAtMost: atMost(2_500_000)}, RatePercent: pct("0.5")},
			{Name: "individual.daily_laborer", Category: CategoryIndividual,
				When: Condition{TypeEquals: TypeDailyLaborer}, RatePercent: pct("2.5")},
			{Name: "individual.competition_prize", Category: CategoryIndividual,
				When: Condition{TypeEquals: TypeCompetitionPrize}, RatePercent: pct("5")},
			{Name: "individual.meals", Category: CategoryIndividual,
				When: Condition{TypeEquals: TypeMeals}, RatePercent: pct("2.5")},
			{Name: "individual.default.vat", Category: CategoryIndividual,
				When: Condition{ValueAbove: vatAbove}, RatePercent: pct("2.5"), VAT: true},
			{Name: "individual.default", Category: CategoryIndividual,
				RatePercent: pct("2.5")},

			// Badan Usaha
			{Name: "business.construction.consulting.certified", Category: CategoryBusiness,
				When:        Condition{TypeContains: KeywordConstruction, TypeEquals: TypeConstructionConsul, Certified: Yes},
				RatePercent: pct("3.5"), VAT: true},
			{Name: "business.construction.certified", Category: CategoryBusiness,
				When: Condition{TypeContains: KeywordConstruction, Certified: Yes}, RatePercent: pct("1.75"), VAT: true},
			{Name: "business.construction.consulting", Category: CategoryBusiness,
				When: Condition{TypeContains: KeywordConstruction, TypeEquals: TypeConstructionConsul}, RatePercent: pct("6"), VAT: true},
			{Name: "business.construction", Category: CategoryBusiness,
				When: Condition{TypeContains: KeywordConstruction}, RatePercent: pct("4"), VAT: true},
			{Name: "business.goods_purchase.vat", Category: CategoryBusiness,
				When: Condition{TypeEquals: TypeGoodsPurchase, ValueAbove: vatAbove}, RatePercent: pct("1.5"), VAT: true},
			{Name: "business.goods_purchase", Category: CategoryBusiness,
				When: Condition{TypeEquals: TypeGoodsPurchase}, RatePercent: pct("1.5")},
			{Name: "business.insurance_premium", Category: CategoryBusiness,
				When: Condition{TypeEquals: TypeInsurancePremium}, RatePercent: pct("2")},
			{Name: "business.meals", Category: CategoryBusiness,
				When: Condition{TypeEquals: TypeMeals}, RatePercent: pct("2")},
			{Name: "business.default.vat", Category: CategoryBusiness,
				When: Condition{ValueAbove: vatAbove}, RatePercent: pct("2"), VAT: true},
			{Name: "business.default", Category: CategoryBusiness,
				RatePercent: pct("2")},
		},
	}
}
