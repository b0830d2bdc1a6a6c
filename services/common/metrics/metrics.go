package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the Prometheus collectors for one service process. Each
// process builds its own registry at startup instead of sharing the client
// library's global one, so lifecycle and scrape output are explicit.
type Registry struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	externalCalls    *prometheus.CounterVec
	externalDuration *prometheus.HistogramVec
}

// NewRegistry creates the process metrics registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		externalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "external_service_calls_total",
			Help: "Total external service calls",
		}, []string{"service", "status"}),
		externalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "external_service_duration_seconds",
			Help:    "External service call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		m.httpRequests,
		m.httpDuration,
		m.externalCalls,
		m.externalDuration,
	)
	return m
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (m *Registry) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordExternalCall records one attempt against a downstream service.
// Retried attempts are recorded individually.
func (m *Registry) RecordExternalCall(service, status string, duration time.Duration) {
	m.externalCalls.WithLabelValues(service, status).Inc()
	m.externalDuration.WithLabelValues(service).Observe(duration.Seconds())
}
