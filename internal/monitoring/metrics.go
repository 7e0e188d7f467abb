// Package monitoring collects Prometheus metrics for the tool server.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	ToolErrors   *prometheus.CounterVec
	RateLimited  prometheus.Counter
}

// NewMetrics creates a collector backed by its own registry, so several
// servers (or tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatex_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flatex_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		RequestSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flatex_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		ToolCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatex_tool_calls_total",
				Help: "Total number of tool calls",
			},
			[]string{"tool", "precision", "status"},
		),
		ToolDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flatex_tool_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"tool"},
		),
		ToolErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatex_tool_errors_total",
				Help: "Total number of failed tool calls by error kind",
			},
			[]string{"tool", "kind"},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Name: "flatex_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
}

// RecordToolCall records one tool call; kind is empty on success.
func (m *Metrics) RecordToolCall(tool, precision, kind string, duration time.Duration) {
	status := "ok"
	if kind != "" {
		status = "error"
		m.ToolErrors.WithLabelValues(tool, kind).Inc()
	}
	m.ToolCalls.WithLabelValues(tool, precision, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}
