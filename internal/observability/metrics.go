// Package observability collects prometheus metrics for the service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service metric instruments backed by a private
// registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated   *prometheus.CounterVec
	AnalysesTotal     *prometheus.CounterVec
	AnalysisErrors    prometheus.Counter
	DetectionDuration *prometheus.HistogramVec
	BackendInfo       *prometheus.GaugeVec
}

// NewMetrics creates and registers all metric instruments.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolcheck_sessions_created_total",
			Help: "Number of sessions created, by mode.",
		}, []string{"mode"}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolcheck_analyses_total",
			Help: "Number of completed analyses, by resulting session status.",
		}, []string{"status"}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toolcheck_analysis_errors_total",
			Help: "Number of analyse calls that failed before an analysis was appended.",
		}),
		DetectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolcheck_detection_duration_seconds",
			Help:    "Detection backend inference duration, by backend kind.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"backend"}),
		BackendInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolcheck_detection_backend_info",
			Help: "Active detection backend, value is always 1 for the resolved kind.",
		}, []string{"backend"}),
	}

	collectors := []prometheus.Collector{
		m.SessionsCreated,
		m.AnalysesTotal,
		m.AnalysisErrors,
		m.DetectionDuration,
		m.BackendInfo,
	}
	for _, collector := range collectors {
		if err := m.registry.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns an HTTP handler serving the registry in prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDetection records one backend inference duration.
func (m *Metrics) ObserveDetection(backend string, duration time.Duration) {
	m.DetectionDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// SetBackendInfo marks which detection backend is active.
func (m *Metrics) SetBackendInfo(backend string) {
	m.BackendInfo.Reset()
	m.BackendInfo.WithLabelValues(backend).Set(1)
}
