package service

import (
	"context"
	"fmt"
	"time"

	"taxdesk/internal/model"
	"taxdesk/internal/repository"
)

type StatisticsService interface {
	GetTaxSummary(ctx context.Context, startDate, endDate time.Time) (model.TaxSummaryResponse, error)
}

type statisticsService struct {
	records repository.TaxRecordRepository
}

func NewStatisticsService(records repository.TaxRecordRepository) StatisticsService {
	return &statisticsService{records: records}
}

// GetTaxSummary totals DPP, PPh and PPN of records created within [startDate, endDate]
func (s *statisticsService) GetTaxSummary(ctx context.Context, startDate, endDate time.Time) (model.TaxSummaryResponse, error) {
	if endDate.Before(startDate) {
		return model.TaxSummaryResponse{}, validationError("end date %s is before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	summary, err := s.records.Summarize(ctx, model.TaxRecordFilter{From: &startDate, To: &endDate})
	if err != nil {
		return model.TaxSummaryResponse{}, fmt.Errorf("failed to summarize tax records: %w", err)
	}

	summary.TimeRangeStartDate = startDate
	summary.TimeRangeEndDate = endDate
	if summary.ByCategory == nil {
		summary.ByCategory = []model.TaxSummaryGroup{}
	}
	if summary.ByComplianceStatus == nil {
		summary.ByComplianceStatus = []model.TaxSummaryGroup{}
	}
	if summary.TopTransactionType == nil {
		summary.TopTransactionType = []model.TaxSummaryGroup{}
	}
	return summary, nil
}
