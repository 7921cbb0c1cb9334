package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/tax/records/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tax/records/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/tax/records/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.ObserveDetermination("BUSINESS", "business.goods_purchase.vat", true)
	m.ObserveDetermination("BUSINESS", "business.goods_purchase.vat", true)
	m.AddAssessed(45000, 330000)
	m.ObserveReport("gemini", 2*time.Second, nil)
	m.ObserveReport("gemini", time.Second, errors.New("boom"))
	m.ObserveComplianceUpdate("COMPLIANT")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.determinations.WithLabelValues("BUSINESS", "business.goods_purchase.vat", "true")))
	assert.Equal(t, 330000.0, testutil.ToFloat64(m.taxAssessed.WithLabelValues("ppn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.complianceUpdates.WithLabelValues("COMPLIANT")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.reportDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDetermination("INDIVIDUAL", "individual.default", false)
		m.AddAssessed(1, 2)
		m.ObserveReport("anthropic", time.Second, nil)
		m.ObserveComplianceUpdate("PENDING")
	})
}

func TestHandler_Exposes(t *testing.T) {
	m := New()
	m.ObserveDetermination("INDIVIDUAL", "individual.honor", false)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taxdesk_tax_determinations_total")
}
