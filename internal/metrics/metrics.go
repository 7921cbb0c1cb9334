// Package metrics exposes Prometheus collectors for the HTTP API and the
// tax determination pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taxdesk"

// Metrics holds every collector, registered on its own registry so tests
// can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	determinations    *prometheus.CounterVec
	taxAssessed       *prometheus.CounterVec
	reportDuration    *prometheus.HistogramVec
	complianceUpdates *prometheus.CounterVec
}

// New registers the collectors plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		determinations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_determinations_total",
			Help:      "Tax determinations by taxpayer category and matched rule.",
		}, []string{"category", "rule", "persisted"}),
		taxAssessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_assessed_rupiah_total",
			Help:      "Sum of PPh and PPN on persisted tax records.",
		}, []string{"kind"}),
		reportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compliance_report_duration_seconds",
			Help:      "Latency of compliance report generation by provider and outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider", "outcome"}),
		complianceUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_status_updates_total",
			Help:      "Compliance status transitions by target status.",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records request count and latency. The route label uses the
// matched gin pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveDetermination counts a resolved descriptor.
func (m *Metrics) ObserveDetermination(category, rule string, persisted bool) {
	if m == nil {
		return
	}
	m.determinations.WithLabelValues(category, rule, strconv.FormatBool(persisted)).Inc()
}

// AddAssessed adds persisted PPh and PPN amounts.
func (m *Metrics) AddAssessed(pph, vat float64) {
	if m == nil {
		return
	}
	m.taxAssessed.WithLabelValues("pph").Add(pph)
	m.taxAssessed.WithLabelValues("ppn").Add(vat)
}

// ObserveReport records one compliance report attempt.
func (m *Metrics) ObserveReport(provider string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reportDuration.WithLabelValues(provider, outcome).Observe(took.Seconds())
}

func (m *Metrics) ObserveComplianceUpdate(status string) {
	if m == nil {
		return
	}
	m.complianceUpdates.WithLabelValues(status).Inc()
}
