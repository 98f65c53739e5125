// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	LinkClicks      prometheus.Counter
	CacheOperations *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkify_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkify_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LinkClicks: f.NewCounter(prometheus.CounterOpts{
			Name: "linkify_link_clicks_total",
			Help: "Clicks counted on active links.",
		}),
		CacheOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkify_cache_operations_total",
				Help: "Profile cache lookups by result (hit, miss, error).",
			},
			[]string{"result"},
		),
		Uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkify_uploads_total",
				Help: "File uploads by backend and outcome.",
			},
			[]string{"backend", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ClickRecorded counts one visitor click.
func (m *Metrics) ClickRecorded() {
	m.LinkClicks.Inc()
}

// CacheLookup counts a profile cache lookup by result: hit, miss or error.
func (m *Metrics) CacheLookup(result string) {
	m.CacheOperations.WithLabelValues(result).Inc()
}

// UploadFinished counts an upload attempt per backend and outcome.
func (m *Metrics) UploadFinished(backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Uploads.WithLabelValues(backend, status).Inc()
}
