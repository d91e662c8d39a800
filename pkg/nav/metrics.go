package nav

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the navigation hook.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	denialsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routegate_requests_total",
				Help: "Total requests seen by the navigation hook, by outcome",
			},
			[]string{"outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routegate_request_duration_seconds",
				Help:    "Gate evaluation latency per request in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),

		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routegate_denials_total",
				Help: "Denied navigations by gate and outcome kind",
			},
			[]string{"gate", "kind"},
		),

		registry: registry,
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration, m.denialsTotal)
	return m
}

// RecordRequest records one hook pass with its outcome label.
func (m *Metrics) RecordRequest(outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDenial records a denied navigation.
func (m *Metrics) RecordDenial(gate, kind string) {
	m.denialsTotal.WithLabelValues(gate, kind).Inc()
}

// Handler returns the scrape endpoint for this metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
