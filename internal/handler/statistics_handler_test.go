package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"taxdesk/internal/model"
	"taxdesk/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatisticsService struct {
	start, end time.Time
}

func (s *stubStatisticsService) GetTaxSummary(_ context.Context, start, end time.Time) (model.TaxSummaryResponse, error) {
	s.start, s.end = start, end
	if end.Before(start) {
		return model.TaxSummaryResponse{}, service.ErrValidation
	}
	return model.TaxSummaryResponse{TimeRangeStartDate: start, TimeRangeEndDate: end}, nil
}

func TestStatisticsHandler_DefaultsToCurrentMonth(t *testing.T) {
	svc := &stubStatisticsService{}
	h := NewStatisticsHandler(svc, newTestAuth())
	h.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	r := newRouter(h.RegisterRoutes)

	w, _ := do(t, r, http.MethodGet, "/api/statistics/tax-summary", bearer(t, "u1", service.RoleTreasurer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), svc.start)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), svc.end)
}

func TestStatisticsHandler_BareEndDateCoversWholeDay(t *testing.T) {
	svc := &stubStatisticsService{}
	r := newRouter(NewStatisticsHandler(svc, newTestAuth()).RegisterRoutes)

	w, _ := do(t, r, http.MethodGet, "/api/statistics/tax-summary?start_date=2025-01-01&end_date=2025-01-31",
		bearer(t, "u1", service.RoleTreasurer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 31, svc.end.Day())
	assert.Equal(t, 23, svc.end.Hour())
}

func TestStatisticsHandler_BadInput(t *testing.T) {
	r := newRouter(NewStatisticsHandler(&stubStatisticsService{}, newTestAuth()).RegisterRoutes)
	auth := bearer(t, "u1", service.RoleTreasurer)

	w, _ := do(t, r, http.MethodGet, "/api/statistics/tax-summary?start_date=kemarin", auth, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/statistics/tax-summary?start_date=2025-02-01&end_date=2025-01-01", auth, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Reviewers have no dashboard access.
	w, _ = do(t, r, http.MethodGet, "/api/statistics/tax-summary", bearer(t, "u2", service.RoleReviewer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
