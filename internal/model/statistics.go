package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxSummaryResponse aggregates recorded tax totals over a time range
type TaxSummaryResponse struct {
	TotalRecords       int64             `json:"total_records"`
	TotalValue         decimal.Decimal   `json:"total_value"`
	TotalPPh           decimal.Decimal   `json:"total_pph"`
	TotalVAT           decimal.Decimal   `json:"total_vat"`
	TotalTax           decimal.Decimal   `json:"total_tax"`
	ByCategory         []TaxSummaryGroup `json:"by_category"`
	ByComplianceStatus []TaxSummaryGroup `json:"by_compliance_status"`
	TopTransactionType []TaxSummaryGroup `json:"top_transaction_types"`
	TimeRangeStartDate time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time         `json:"time_range_end_date"`
}

// TaxSummaryGroup is one grouped row of a tax summary
type TaxSummaryGroup struct {
	Key        string          `gorm:"column:group_key" json:"key"`
	Count      int64           `gorm:"column:record_count" json:"count"`
	TotalValue decimal.Decimal `gorm:"column:total_value" json:"total_value"`
	TotalPPh   decimal.Decimal `gorm:"column:total_pph" json:"total_pph"`
	TotalVAT   decimal.Decimal `gorm:"column:total_vat" json:"total_vat"`
}
