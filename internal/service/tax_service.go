package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxdesk/internal/compliance"
	"taxdesk/internal/model"
	"taxdesk/internal/repository"
	"taxdesk/internal/taxcalc"
	"taxdesk/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CalculateTaxRequest struct {
	TransactionType            string  `json:"transaction_type" binding:"required"`
	TaxpayerCategory           string  `json:"taxpayer_category" binding:"required,oneof=INDIVIDUAL BUSINESS"`
	IsCivilServant             bool    `json:"is_civil_servant"`
	CivilServantGrade          *string `json:"civil_servant_grade" binding:"omitempty,oneof=I II III IV"`
	HasConstructionCertificate bool    `json:"has_construction_certificate"`
	TransactionValue           string  `json:"transaction_value" binding:"required"` // Decimal string, e.g. "3000000"
}

type CreateTaxRecordRequest struct {
	CalculateTaxRequest
	ComplianceStatus string `json:"compliance_status" binding:"omitempty,oneof=PENDING COMPLIANT NEEDS_REVIEW NON_COMPLIANT"`
	Description      string `json:"description"`
	PaymentDate      string `json:"payment_date"` // YYYY-MM-DD
}

type UpdateComplianceRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING COMPLIANT NEEDS_REVIEW NON_COMPLIANT"`
	Note   string `json:"note"`
}

type CalculationResponse struct {
	TransactionType            string  `json:"transaction_type"`
	TaxpayerCategory           string  `json:"taxpayer_category"`
	IsCivilServant             bool    `json:"is_civil_servant"`
	CivilServantGrade          *string `json:"civil_servant_grade"`
	HasConstructionCertificate bool    `json:"has_construction_certificate"`
	TransactionValue           string  `json:"transaction_value"`
	RuleName                   string  `json:"rule_name"`
	PPhRatePercent             string  `json:"pph_rate_percent"`
	VATApplicable              bool    `json:"vat_applicable"`
	PPhAmount                  string  `json:"pph_amount"`
	VATAmount                  string  `json:"vat_amount"`
	TotalTax                   string  `json:"total_tax"`
	Recognized                 bool    `json:"recognized"`
}

type TaxRecordResponse struct {
	ID string `json:"id"`
	CalculationResponse
	ComplianceStatus string  `json:"compliance_status"`
	ComplianceReport string  `json:"compliance_report,omitempty"`
	ReportedAt       *string `json:"reported_at"`
	ReviewedBy       string  `json:"reviewed_by,omitempty"`
	ReviewedAt       *string `json:"reviewed_at"`
	ReviewNote       string  `json:"review_note,omitempty"`
	Description      string  `json:"description"`
	PaymentDate      *string `json:"payment_date"`
	CreatedBy        string  `json:"created_by"`
	CreatedAt        string  `json:"created_at"`
}

// TaxRecordQuery carries raw list filters from the query string.
type TaxRecordQuery struct {
	TaxpayerCategory string
	ComplianceStatus string
	TransactionType  string
	From             string // YYYY-MM-DD
	To               string // YYYY-MM-DD, inclusive
}

// --- Collaborators ---

// EventPublisher pushes live events to connected dashboards.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

// TaxMetrics receives counters for determinations and reports.
type TaxMetrics interface {
	ObserveDetermination(category, rule string, persisted bool)
	AddAssessed(pph, vat float64)
	ObserveReport(provider string, took time.Duration, err error)
	ObserveComplianceUpdate(status string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

type noopMetrics struct{}

func (noopMetrics) ObserveDetermination(string, string, bool) {}
func (noopMetrics) AddAssessed(float64, float64) {}
func (noopMetrics) ObserveReport(string, time.Duration, error) {}
func (noopMetrics) ObserveComplianceUpdate(string) {}

// TaxServiceOption configures optional collaborators.
type TaxServiceOption func(*taxService)

func WithResolver(r *taxcalc.Resolver) TaxServiceOption {
	return func(s *taxService) { s.resolver = r }
}

// WithReporter enables compliance report generation. A nil reporter leaves it disabled.
func WithReporter(r compliance.Reporter) TaxServiceOption {
	return func(s *taxService) { s.reporter = r }
}

func WithPublisher(p EventPublisher) TaxServiceOption {
	return func(s *taxService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithMetrics(m TaxMetrics) TaxServiceOption {
	return func(s *taxService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) TaxServiceOption {
	return func(s *taxService) { s.now = now }
}

// --- Interface ---

type TaxService interface {
	Calculate(ctx context.Context, req CalculateTaxRequest) (*CalculationResponse, error)
	CreateRecord(ctx context.Context, userID string, req CreateTaxRecordRequest) (*TaxRecordResponse, error)
	GetRecord(ctx context.Context, id string) (*TaxRecordResponse, error)
	ListRecords(ctx context.Context, query TaxRecordQuery, page, limit int) ([]TaxRecordResponse, int64, error)
	DeleteRecord(ctx context.Context, id, userID string) error
	UpdateComplianceStatus(ctx context.Context, id, userID string, req UpdateComplianceRequest) (*TaxRecordResponse, error)
	GenerateComplianceReport(ctx context.Context, id, userID string) (*TaxRecordResponse, error)
	GetRecordHistory(ctx context.Context, id string) ([]AuditLogResponse, error)
}

type taxService struct {
	records   repository.TaxRecordRepository
	types     repository.TransactionTypeRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager

	resolver *taxcalc.Resolver
	reporter compliance.Reporter
	events   EventPublisher
	metrics  TaxMetrics
	now      func() time.Time
}

func NewTaxService(
	records repository.TaxRecordRepository,
	types repository.TransactionTypeRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	opts ...TaxServiceOption,
) TaxService {
	s := &taxService{
		records:   records,
		types:     types,
		audit:     audit,
		txManager: txManager,
		resolver:  taxcalc.NewResolver(taxcalc.DefaultTable()),
		events:    noopPublisher{},
		metrics:   noopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Implementation ---

func (s *taxService) Calculate(ctx context.Context, req CalculateTaxRequest) (*CalculationResponse, error) {
	d, err := descriptorFromRequest(req)
	if err != nil {
		return nil, err
	}

	det := s.resolver.Resolve(d)
	s.metrics.ObserveDetermination(string(d.Category), det.RuleName, false)

	resp := toCalculationResponse(d, det, s.isRecognized(ctx, d))
	return &resp, nil
}

func (s *taxService) CreateRecord(ctx context.Context, userID string, req CreateTaxRecordRequest) (*TaxRecordResponse, error) {
	d, err := descriptorFromRequest(req.CalculateTaxRequest)
	if err != nil {
		return nil, err
	}

	status := req.ComplianceStatus
	if status == "" {
		status = model.CompliancePending
	}
	if !model.ValidComplianceStatus(status) {
		return nil, validationError("unknown compliance status %q", status)
	}

	paymentDate, err := parseOptionalDate(req.PaymentDate, "payment_date")
	if err != nil {
		return nil, err
	}

	det := s.resolver.Resolve(d)

	record := &model.TaxRecord{
		TransactionType:            d.TransactionType,
		TaxpayerCategory:           string(d.Category),
		IsCivilServant:             d.IsCivilServant,
		CivilServantGrade:          req.CivilServantGrade,
		HasConstructionCertificate: d.HasConstructionCertificate,
		TransactionValue:           d.Value,
		RuleName:                   det.RuleName,
		PPhRatePercent:             det.PPhRatePercent,
		VATApplicable:              det.VATApplicable,
		PPhAmount:                  det.PPhAmount,
		VATAmount:                  det.VATAmount,
		TotalTax:                   det.TotalTax,
		Recognized:                 s.isRecognized(ctx, d),
		ComplianceStatus:           status,
		Description:                req.Description,
		PaymentDate:                paymentDate,
	}
	if uid, err := uuid.Parse(userID); err == nil {
		record.CreatedBy = &uid
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.records.Create(txCtx, record); err != nil {
			return fmt.Errorf("failed to create tax record: %w", err)
		}
		entry := newAuditLog(userID, model.ActionCreateTaxRecord, record.ID.String(),
			record.TransactionType+" "+record.TransactionValue.StringFixed(2), req)
		if err := s.audit.Log(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDetermination(string(d.Category), det.RuleName, true)
	s.metrics.AddAssessed(det.PPhAmount.InexactFloat64(), det.VATAmount.InexactFloat64())

	resp := toTaxRecordResponse(*record)
	s.events.Publish(websocket.EventTaxRecordCreated, resp)

	log.Ctx(ctx).Info().
		Str("record_id", resp.ID).
		Str("rule", det.RuleName).
		Str("total_tax", det.TotalTax.String()).
		Msg("tax record created")

	return &resp, nil
}

func (s *taxService) GetRecord(ctx context.Context, id string) (*TaxRecordResponse, error) {
	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTaxRecordResponse(*record)
	return &resp, nil
}

func (s *taxService) ListRecords(ctx context.Context, query TaxRecordQuery, page, limit int) ([]TaxRecordResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	filter, err := buildRecordFilter(query)
	if err != nil {
		return nil, 0, err
	}

	records, total, err := s.records.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax records: %w", err)
	}

	res := make([]TaxRecordResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toTaxRecordResponse(r))
	}
	return res, total, nil
}

func (s *taxService) DeleteRecord(ctx context.Context, id, userID string) error {
	record, err := s.findRecord(ctx, id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.records.Delete(txCtx, record.ID); err != nil {
			return fmt.Errorf("failed to delete tax record: %w", err)
		}
		entry := newAuditLog(userID, model.ActionDeleteTaxRecord, record.ID.String(),
			record.TransactionType, map[string]string{"deleted_id": record.ID.String()})
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return err
	}

	s.events.Publish(websocket.EventTaxRecordDeleted, map[string]string{"id": record.ID.String()})
	return nil
}

func (s *taxService) UpdateComplianceStatus(ctx context.Context, id, userID string, req UpdateComplianceRequest) (*TaxRecordResponse, error) {
	if !model.ValidComplianceStatus(req.Status) {
		return nil, validationError("unknown compliance status %q", req.Status)
	}

	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := record.ComplianceStatus
	now := s.now()
	record.ComplianceStatus = req.Status
	record.ReviewNote = req.Note
	record.ReviewedAt = &now
	record.ReviewedBy = nil
	record.Reviewer = nil
	if uid, err := uuid.Parse(userID); err == nil {
		record.ReviewedBy = &uid
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.records.Update(txCtx, record); err != nil {
			return fmt.Errorf("failed to update compliance status: %w", err)
		}
		entry := newAuditLog(userID, model.ActionReviewTaxRecord, record.ID.String(), record.TransactionType,
			map[string]string{"from": previous, "to": req.Status, "note": req.Note})
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveComplianceUpdate(req.Status)

	resp := toTaxRecordResponse(*record)
	s.events.Publish(websocket.EventTaxRecordReviewed, resp)
	return &resp, nil
}

func (s *taxService) GenerateComplianceReport(ctx context.Context, id, userID string) (*TaxRecordResponse, error) {
	if s.reporter == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrAIUnavailable)
	}

	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	d := descriptorFromRecord(*record)
	summary := compliance.FormatSummary(d, determinationFromRecord(*record))

	start := s.now()
	report, err := s.reporter.Report(ctx, summary)
	s.metrics.ObserveReport(s.reporter.Provider(), s.now().Sub(start), err)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("record_id", id).Str("provider", s.reporter.Provider()).
			Msg("compliance report generation failed")
		return nil, ErrAIUnavailable
	}

	reportedAt := s.now()
	record.ComplianceReport = report
	record.ReportedAt = &reportedAt

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.records.Update(txCtx, record); err != nil {
			return fmt.Errorf("failed to store compliance report: %w", err)
		}
		entry := newAuditLog(userID, model.ActionGenerateComplianceRpt, record.ID.String(), record.TransactionType,
			map[string]string{"provider": s.reporter.Provider()})
		return s.audit.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	resp := toTaxRecordResponse(*record)
	s.events.Publish(websocket.EventComplianceReport, map[string]string{"id": resp.ID})
	return &resp, nil
}

func (s *taxService) GetRecordHistory(ctx context.Context, id string) ([]AuditLogResponse, error) {
	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	logs, err := s.audit.ListByEntity(ctx, record.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record history: %w", err)
	}
	return toAuditLogResponses(logs), nil
}

// --- Helpers ---

func (s *taxService) findRecord(ctx context.Context, id string) (*model.TaxRecord, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, validationError("invalid tax record id %q", id)
	}
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, notFoundOr(err, "tax record")
	}
	return record, nil
}

// isRecognized reports whether the type is an active catalogue entry of the category.
// Lookup failures only downgrade the flag; they never block a calculation.
func (s *taxService) isRecognized(ctx context.Context, d taxcalc.Descriptor) bool {
	if s.types == nil {
		return false
	}
	t, err := s.types.FindByName(ctx, string(d.Category), d.TransactionType)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Ctx(ctx).Warn().Err(err).Msg("transaction type lookup failed")
		}
		return false
	}
	return t.IsActive
}

// Transaction values are stored as decimal(18,2).
var maxTransactionValue = decimal.New(1, 16)

const (
	maxValueLength = 32
	valueScale     = 2
)

// parseTransactionValue accepts a decimal string with at most two fractional
// digits that fits the stored column.
func parseTransactionValue(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxValueLength {
		return decimal.Decimal{}, validationError("transaction_value is longer than %d characters", maxValueLength)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, validationError("invalid transaction_value %q", raw)
	}
	// bound the exponent first: comparisons rescale both operands
	if exp := value.Exponent(); exp > 16 || exp < -maxValueLength {
		return decimal.Decimal{}, validationError("transaction_value %q is out of range", raw)
	}
	if !value.Equal(value.Truncate(valueScale)) {
		return decimal.Decimal{}, validationError("transaction_value %q has more than %d decimal places", raw, valueScale)
	}
	if value.Abs().GreaterThanOrEqual(maxTransactionValue) {
		return decimal.Decimal{}, validationError("transaction_value %q must be below %s", raw, maxTransactionValue.String())
	}
	return value, nil
}

func descriptorFromRequest(req CalculateTaxRequest) (taxcalc.Descriptor, error) {
	value, err := parseTransactionValue(req.TransactionValue)
	if err != nil {
		return taxcalc.Descriptor{}, err
	}

	d := taxcalc.Descriptor{
		TransactionType:            strings.TrimSpace(req.TransactionType),
		Category:                   taxcalc.TaxpayerCategory(req.TaxpayerCategory),
		IsCivilServant:             req.IsCivilServant,
		HasConstructionCertificate: req.HasConstructionCertificate,
		Value:                      value,
	}
	if req.CivilServantGrade != nil && *req.CivilServantGrade != "" {
		d.Grade = taxcalc.GradePtr(taxcalc.CivilServantGrade(*req.CivilServantGrade))
	}

	if err := d.Validate(); err != nil {
		return taxcalc.Descriptor{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return d, nil
}

func descriptorFromRecord(r model.TaxRecord) taxcalc.Descriptor {
	d := taxcalc.Descriptor{
		TransactionType:            r.TransactionType,
		Category:                   taxcalc.TaxpayerCategory(r.TaxpayerCategory),
		IsCivilServant:             r.IsCivilServant,
		HasConstructionCertificate: r.HasConstructionCertificate,
		Value:                      r.TransactionValue,
	}
	if r.CivilServantGrade != nil && *r.CivilServantGrade != "" {
		d.Grade = taxcalc.GradePtr(taxcalc.CivilServantGrade(*r.CivilServantGrade))
	}
	return d
}

func determinationFromRecord(r model.TaxRecord) taxcalc.Determination {
	return taxcalc.Determination{
		RuleName:       r.RuleName,
		PPhRatePercent: r.PPhRatePercent,
		VATApplicable:  r.VATApplicable,
		PPhAmount:      r.PPhAmount,
		VATAmount:      r.VATAmount,
		TotalTax:       r.TotalTax,
	}
}

func buildRecordFilter(q TaxRecordQuery) (model.TaxRecordFilter, error) {
	filter := model.TaxRecordFilter{
		TaxpayerCategory: q.TaxpayerCategory,
		ComplianceStatus: q.ComplianceStatus,
		TransactionType:  strings.TrimSpace(q.TransactionType),
	}
	if filter.TaxpayerCategory != "" && !taxcalc.TaxpayerCategory(filter.TaxpayerCategory).Valid() {
		return filter, validationError("unknown taxpayer_category %q", filter.TaxpayerCategory)
	}
	if filter.ComplianceStatus != "" && !model.ValidComplianceStatus(filter.ComplianceStatus) {
		return filter, validationError("unknown compliance_status %q", filter.ComplianceStatus)
	}

	from, err := parseOptionalDate(q.From, "from")
	if err != nil {
		return filter, err
	}
	to, err := parseOptionalDate(q.To, "to")
	if err != nil {
		return filter, err
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	filter.From, filter.To = from, to
	return filter, nil
}

func parseOptionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, validationError("invalid %s date format (expected YYYY-MM-DD)", field)
	}
	return &t, nil
}

func toCalculationResponse(d taxcalc.Descriptor, det taxcalc.Determination, recognized bool) CalculationResponse {
	resp := CalculationResponse{
		TransactionType:            d.TransactionType,
		TaxpayerCategory:           string(d.Category),
		IsCivilServant:             d.IsCivilServant,
		HasConstructionCertificate: d.HasConstructionCertificate,
		TransactionValue:           d.Value.String(),
		RuleName:                   det.RuleName,
		PPhRatePercent:             det.PPhRatePercent.String(),
		VATApplicable:              det.VATApplicable,
		PPhAmount:                  det.PPhAmount.String(),
		VATAmount:                  det.VATAmount.String(),
		TotalTax:                   det.TotalTax.String(),
		Recognized:                 recognized,
	}
	if d.Grade != nil {
		g := string(*d.Grade)
		resp.CivilServantGrade = &g
	}
	return resp
}

func formatOptionalTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

func toTaxRecordResponse(r model.TaxRecord) TaxRecordResponse {
	resp := TaxRecordResponse{
		ID:                  r.ID.String(),
		CalculationResponse: toCalculationResponse(descriptorFromRecord(r), determinationFromRecord(r), r.Recognized),
		ComplianceStatus:    r.ComplianceStatus,
		ComplianceReport:    r.ComplianceReport,
		ReportedAt:          formatOptionalTime(r.ReportedAt, time.RFC3339),
		ReviewedAt:          formatOptionalTime(r.ReviewedAt, time.RFC3339),
		ReviewNote:          r.ReviewNote,
		Description:         r.Description,
		PaymentDate:         formatOptionalTime(r.PaymentDate, "2006-01-02"),
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
	}
	if r.Creator != nil {
		resp.CreatedBy = r.Creator.Username
	} else if r.CreatedBy != nil {
		resp.CreatedBy = r.CreatedBy.String()
	}
	if r.Reviewer != nil {
		resp.ReviewedBy = r.Reviewer.Username
	} else if r.ReviewedBy != nil {
		resp.ReviewedBy = r.ReviewedBy.String()
	}
	return resp
}
