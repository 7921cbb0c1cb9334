package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxpayerCategory enum constants
const (
	CategoryIndividual = "INDIVIDUAL" // Orang Pribadi
	CategoryBusiness   = "BUSINESS"   // Badan Usaha
)

// ComplianceStatus enum constants
const (
	CompliancePending      = "PENDING"
	ComplianceCompliant    = "COMPLIANT"
	ComplianceNeedsReview  = "NEEDS_REVIEW"
	ComplianceNonCompliant = "NON_COMPLIANT"
)

// ValidComplianceStatus reports whether s is one of the compliance labels
func ValidComplianceStatus(s string) bool {
	switch s {
	case CompliancePending, ComplianceCompliant, ComplianceNeedsReview, ComplianceNonCompliant:
		return true
	}
	return false
}

// TaxRecord stores one calculated PPh/PPN determination together with the descriptor it came from
type TaxRecord struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	// Descriptor
	TransactionType            string          `gorm:"type:varchar(255);not null;index" json:"transaction_type"`
	TaxpayerCategory           string          `gorm:"type:varchar(20);not null;index" json:"taxpayer_category"` // INDIVIDUAL, BUSINESS
	IsCivilServant             bool            `gorm:"default:false" json:"is_civil_servant"`
	CivilServantGrade          *string         `gorm:"type:varchar(5)" json:"civil_servant_grade"` // I, II, III, IV
	HasConstructionCertificate bool            `gorm:"default:false" json:"has_construction_certificate"`
	TransactionValue           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"transaction_value"` // DPP

	// Determination. A value with two decimals times a four-decimal rate fraction
	// needs six, so amounts are stored exactly.
	RuleName       string          `gorm:"type:varchar(100)" json:"rule_name"`
	PPhRatePercent decimal.Decimal `gorm:"column:pph_rate_percent;type:decimal(10,4);not null" json:"pph_rate_percent"`
	VATApplicable  bool            `gorm:"column:vat_applicable;default:false" json:"vat_applicable"`
	PPhAmount      decimal.Decimal `gorm:"column:pph_amount;type:decimal(22,6);not null" json:"pph_amount"`
	VATAmount      decimal.Decimal `gorm:"column:vat_amount;type:decimal(22,6);not null;default:0" json:"vat_amount"`
	TotalTax       decimal.Decimal `gorm:"type:decimal(22,6);not null" json:"total_tax"`
	Recognized     bool            `gorm:"default:false" json:"recognized"` // transaction type found in the catalogue

	// Compliance
	ComplianceStatus string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"compliance_status"`
	ComplianceReport string     `gorm:"type:text" json:"compliance_report"`
	ReportedAt       *time.Time `json:"reported_at"`
	ReviewedBy       *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer         *User      `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
	ReviewNote       string     `gorm:"type:text" json:"review_note"`

	Description string         `gorm:"type:text" json:"description"`
	PaymentDate *time.Time     `gorm:"type:date;index" json:"payment_date"`
	CreatedBy   *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	Creator     *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TaxRecordFilter narrows record listings and summaries
type TaxRecordFilter struct {
	TaxpayerCategory string
	ComplianceStatus string
	TransactionType  string // substring match
	From             *time.Time
	To               *time.Time
}
