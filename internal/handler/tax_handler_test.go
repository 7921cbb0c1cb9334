package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"taxdesk/internal/service"
	"taxdesk/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTaxService implements the calls the tests exercise; the embedded
// interface panics on anything else.
type stubTaxService struct {
	service.TaxService

	calculated  service.CalculateTaxRequest
	createdBy   string
	listQuery   service.TaxRecordQuery
	listPage    int
	listLimit   int
	reviewedBy  string
	reportErr   error
	getErr      error
	deleteCalls int
}

func (s *stubTaxService) Calculate(_ context.Context, req service.CalculateTaxRequest) (*service.CalculationResponse, error) {
	s.calculated = req
	return &service.CalculationResponse{
		TransactionType: req.TransactionType,
		PPhRatePercent:  "1.5",
		VATApplicable:   true,
		PPhAmount:       "45000",
		VATAmount:       "330000",
		TotalTax:        "375000",
	}, nil
}

func (s *stubTaxService) CreateRecord(_ context.Context, userID string, req service.CreateTaxRecordRequest) (*service.TaxRecordResponse, error) {
	s.createdBy = userID
	return &service.TaxRecordResponse{ID: "rec-1", ComplianceStatus: "PENDING"}, nil
}

func (s *stubTaxService) ListRecords(_ context.Context, q service.TaxRecordQuery, page, limit int) ([]service.TaxRecordResponse, int64, error) {
	s.listQuery, s.listPage, s.listLimit = q, page, limit
	return []service.TaxRecordResponse{{ID: "rec-1"}}, 1, nil
}

func (s *stubTaxService) GetRecord(_ context.Context, id string) (*service.TaxRecordResponse, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &service.TaxRecordResponse{ID: id}, nil
}

func (s *stubTaxService) DeleteRecord(context.Context, string, string) error {
	s.deleteCalls++
	return nil
}

func (s *stubTaxService) UpdateComplianceStatus(_ context.Context, id, userID string, req service.UpdateComplianceRequest) (*service.TaxRecordResponse, error) {
	s.reviewedBy = userID
	return &service.TaxRecordResponse{ID: id, ComplianceStatus: req.Status}, nil
}

func (s *stubTaxService) GenerateComplianceReport(_ context.Context, id, _ string) (*service.TaxRecordResponse, error) {
	if s.reportErr != nil {
		return nil, s.reportErr
	}
	return &service.TaxRecordResponse{ID: id, ComplianceReport: "ok"}, nil
}

func newTaxRouter(svc service.TaxService) http.Handler {
	h := NewTaxHandler(svc, newTestAuth())
	return newRouter(h.RegisterRoutes)
}

func TestTaxHandler_Calculate(t *testing.T) {
	svc := &stubTaxService{}
	r := newTaxRouter(svc)

	w, env := do(t, r, http.MethodPost, "/api/tax/calculate", bearer(t, "u1", "treasurer"), map[string]interface{}{
		"transaction_type":  "Pembelian Barang",
		"taxpayer_category": "BUSINESS",
		"transaction_value": "3000000",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res service.CalculationResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "375000", res.TotalTax)
	assert.Equal(t, "3000000", svc.calculated.TransactionValue)
}

func TestTaxHandler_CalculateRejectsBadPayload(t *testing.T) {
	r := newTaxRouter(&stubTaxService{})

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing value", map[string]interface{}{"transaction_type": "Sewa", "taxpayer_category": "BUSINESS"}},
		{"unknown category", map[string]interface{}{"transaction_type": "Sewa", "taxpayer_category": "NGO", "transaction_value": "1"}},
		{"unknown grade", map[string]interface{}{"transaction_type": "Honor", "taxpayer_category": "INDIVIDUAL",
			"civil_servant_grade": "V", "transaction_value": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, r, http.MethodPost, "/api/tax/calculate", bearer(t, "u1", "treasurer"), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestTaxHandler_RequiresAuthAndPermission(t *testing.T) {
	r := newTaxRouter(&stubTaxService{})

	w, _ := do(t, r, http.MethodGet, "/api/tax/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Reviewers read but cannot record.
	w, _ = do(t, r, http.MethodPost, "/api/tax/records", bearer(t, "u2", "reviewer"), map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Treasurers record but cannot review.
	w, _ = do(t, r, http.MethodPatch, "/api/tax/records/rec-1/compliance", bearer(t, "u1", "treasurer"),
		map[string]string{"status": "COMPLIANT"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTaxHandler_CreateRecordUsesCaller(t *testing.T) {
	svc := &stubTaxService{}
	r := newTaxRouter(svc)

	w, env := do(t, r, http.MethodPost, "/api/tax/records", bearer(t, "user-42", "treasurer"), map[string]interface{}{
		"transaction_type":  "Sewa Gedung",
		"taxpayer_category": "INDIVIDUAL",
		"transaction_value": "1500000",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "user-42", svc.createdBy)
}

func TestTaxHandler_ListRecordsPassesFilters(t *testing.T) {
	svc := &stubTaxService{}
	r := newTaxRouter(svc)

	w, env := do(t, r, http.MethodGet,
		"/api/tax/records?taxpayer_category=BUSINESS&compliance_status=PENDING&from=2025-01-01&to=2025-01-31&page=2&limit=500",
		bearer(t, "u2", "reviewer"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []service.TaxRecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, response.Meta{Page: 2, Limit: 100, Total: 1, TotalPages: 1}, *env.Meta)

	assert.Equal(t, "BUSINESS", svc.listQuery.TaxpayerCategory)
	assert.Equal(t, "PENDING", svc.listQuery.ComplianceStatus)
	assert.Equal(t, "2025-01-31", svc.listQuery.To)
	assert.Equal(t, 2, svc.listPage)
	assert.Equal(t, 100, svc.listLimit, "limit is capped")
}

func TestTaxHandler_ReviewerUpdatesCompliance(t *testing.T) {
	svc := &stubTaxService{}
	r := newTaxRouter(svc)

	w, _ := do(t, r, http.MethodPatch, "/api/tax/records/rec-1/compliance", bearer(t, "rev-1", "reviewer"),
		map[string]string{"status": "NON_COMPLIANT", "note": "tarif salah"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rev-1", svc.reviewedBy)

	w, _ = do(t, r, http.MethodPatch, "/api/tax/records/rec-1/compliance", bearer(t, "rev-1", "reviewer"),
		map[string]string{"status": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaxHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("tax record: %w", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("bad id: %w", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: quota", service.ErrAIUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := newTaxRouter(&stubTaxService{getErr: tt.err})
			w, env := do(t, r, http.MethodGet, "/api/tax/records/rec-9", bearer(t, "u1", "treasurer"), nil)
			assert.Equal(t, tt.status, w.Code)
			switch tt.status {
			case http.StatusInternalServerError:
				assert.Equal(t, "Internal server error", env.Error)
			case http.StatusServiceUnavailable:
				assert.Equal(t, "compliance report provider unavailable", env.Error)
			default:
				assert.Contains(t, env.Error, tt.err.Error())
			}
		})
	}
}

func TestTaxHandler_ComplianceReportUnavailable(t *testing.T) {
	r := newTaxRouter(&stubTaxService{reportErr: fmt.Errorf("%w: no provider configured", service.ErrAIUnavailable)})

	w, _ := do(t, r, http.MethodPost, "/api/tax/records/rec-1/compliance-report", bearer(t, "u1", "treasurer"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTaxHandler_ComplianceReportHidesProviderText(t *testing.T) {
	leaked := fmt.Errorf("%w: Post \"https://host/v1?key=SECRET-KEY-123\": dial tcp: refused", service.ErrAIUnavailable)
	r := newTaxRouter(&stubTaxService{reportErr: leaked})

	w, env := do(t, r, http.MethodPost, "/api/tax/records/rec-1/compliance-report", bearer(t, "u1", "treasurer"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "compliance report provider unavailable", env.Error)
	assert.NotContains(t, w.Body.String(), "SECRET-KEY-123")
}
