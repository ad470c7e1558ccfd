// Package metrics holds the service's Prometheus instrumentation.
//
// Collectors live on a private registry owned by *Metrics rather than the
// global default registry, so each server (and each test) starts from zero.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIActiveRequests  prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "endpoint"},
		),

		APIActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "api_active_requests",
				Help: "Current number of active API requests",
			},
		),
	}
}

// RecordAPIRequest records one finished request. endpoint should be a route
// pattern, not a raw path, to keep label cardinality bounded.
func (m *Metrics) RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func (m *Metrics) TrackActiveRequest(inc bool) {
	if inc {
		m.APIActiveRequests.Inc()
	} else {
		m.APIActiveRequests.Dec()
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
