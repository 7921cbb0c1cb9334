package handler

import (
	"net/http"
	"time"

	"taxdesk/internal/middleware"
	"taxdesk/internal/service"
	"taxdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Auth
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Auth) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("/tax-summary", h.auth.RequirePermission(service.PermDashboardRead), h.GetTaxSummary)
	}
}

// @Summary      Get Tax Summary
// @Description  Totals of DPP, PPh and PPN by taxpayer category, compliance status and transaction type
// @Tags         Statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339 or YYYY-MM-DD), default first day of the month"
// @Param        end_date   query string false "End Date (RFC3339 or YYYY-MM-DD), default now"
// @Success      200 {object} response.Response{data=model.TaxSummaryResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /api/statistics/tax-summary [get]
func (h *StatisticsHandler) GetTaxSummary(c *gin.Context) {
	now := h.now()

	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if s := c.Query("start_date"); s != "" {
		t, ok := parseQueryTime(s, false)
		if !ok {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339 or YYYY-MM-DD"))
			return
		}
		startDate = t
	}

	endDate := now
	if s := c.Query("end_date"); s != "" {
		t, ok := parseQueryTime(s, true)
		if !ok {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339 or YYYY-MM-DD"))
			return
		}
		endDate = t
	}

	stats, err := h.statisticsService.GetTaxSummary(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// parseQueryTime accepts RFC3339 or a bare date; a bare end date covers the whole day.
func parseQueryTime(s string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
