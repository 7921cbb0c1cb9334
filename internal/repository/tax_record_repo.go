package repository

import (
	"context"
	"fmt"

	"taxdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaxRecordRepository interface {
	Create(ctx context.Context, record *model.TaxRecord) error
	Update(ctx context.Context, record *model.TaxRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRecord, error)
	List(ctx context.Context, filter model.TaxRecordFilter, page, limit int) ([]model.TaxRecord, int64, error)
	Summarize(ctx context.Context, filter model.TaxRecordFilter) (model.TaxSummaryResponse, error)
}

type taxRecordRepository struct {
	db *gorm.DB
}

func NewTaxRecordRepository(db *gorm.DB) TaxRecordRepository {
	return &taxRecordRepository{db: db}
}

func (r *taxRecordRepository) Create(ctx context.Context, record *model.TaxRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *taxRecordRepository) Update(ctx context.Context, record *model.TaxRecord) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(record).Error
}

func (r *taxRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TaxRecord{}).Error
}

func (r *taxRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRecord, error) {
	var record model.TaxRecord
	if err := GetDB(ctx, r.db).Preload("Creator").Preload("Reviewer").First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *taxRecordRepository) List(ctx context.Context, filter model.TaxRecordFilter, page, limit int) ([]model.TaxRecord, int64, error) {
	var records []model.TaxRecord
	var total int64

	query := applyTaxRecordFilter(GetDB(ctx, r.db).Model(&model.TaxRecord{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Creator").Order("created_at desc").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

const summarySelect = "COUNT(*) as record_count, " +
	"COALESCE(SUM(transaction_value), 0) as total_value, " +
	"COALESCE(SUM(pph_amount), 0) as total_pph, " +
	"COALESCE(SUM(vat_amount), 0) as total_vat"

func (r *taxRecordRepository) Summarize(ctx context.Context, filter model.TaxRecordFilter) (model.TaxSummaryResponse, error) {
	var summary model.TaxSummaryResponse
	db := GetDB(ctx, r.db)

	var totals model.TaxSummaryGroup
	if err := applyTaxRecordFilter(db.Model(&model.TaxRecord{}), filter).
		Select(summarySelect).
		Scan(&totals).Error; err != nil {
		return summary, fmt.Errorf("failed to query tax totals: %w", err)
	}
	summary.TotalRecords = totals.Count
	summary.TotalValue = totals.TotalValue
	summary.TotalPPh = totals.TotalPPh
	summary.TotalVAT = totals.TotalVAT
	summary.TotalTax = totals.TotalPPh.Add(totals.TotalVAT)

	groups := []struct {
		column string
		limit  int
		dest   *[]model.TaxSummaryGroup
	}{
		{"taxpayer_category", 0, &summary.ByCategory},
		{"compliance_status", 0, &summary.ByComplianceStatus},
		{"transaction_type", 5, &summary.TopTransactionType},
	}

	for _, g := range groups {
		query := applyTaxRecordFilter(db.Model(&model.TaxRecord{}), filter).
			Select(g.column + " as group_key, " + summarySelect).
			Group(g.column).
			Order("total_value DESC")
		if g.limit > 0 {
			query = query.Limit(g.limit)
		}
		if err := query.Scan(g.dest).Error; err != nil {
			return summary, fmt.Errorf("failed to group tax records by %s: %w", g.column, err)
		}
	}

	return summary, nil
}

func applyTaxRecordFilter(query *gorm.DB, filter model.TaxRecordFilter) *gorm.DB {
	if filter.TaxpayerCategory != "" {
		query = query.Where("taxpayer_category = ?", filter.TaxpayerCategory)
	}
	if filter.ComplianceStatus != "" {
		query = query.Where("compliance_status = ?", filter.ComplianceStatus)
	}
	if filter.TransactionType != "" {
		query = query.Where("transaction_type ILIKE ?", "%"+filter.TransactionType+"%")
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return query.Session(&gorm.Session{})
}
