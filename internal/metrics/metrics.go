// Package metrics holds the Prometheus instruments of the export pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arran4/chat2png/pkg/logger"
)

const namespace = "chat2png"

// Export results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Image states reported by the readiness wait.
const (
	ImageReady    = "ready"
	ImageFailed   = "failed"
	ImageTimedOut = "timed_out"
)

// Metrics holds all pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ExportsTotal       *prometheus.CounterVec
	ExportDuration     *prometheus.HistogramVec
	ImagesTotal        *prometheus.CounterVec
	SanitizedTotal     prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Default returns the process-wide instance, registered on its own
// registry together with the Go and process collectors.
func Default() *Metrics {
	globalOnce.Do(func() {
		global = New()
		global.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return global
}

// New creates a fresh set of instruments on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by mode, backend and result.",
		}, []string{"mode", "backend", "result"}),
		ExportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "End-to-end export latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode", "backend"}),
		ImagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Images settled before rasterizing, by final state.",
		}, []string{"state"}),
		SanitizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitized_properties_total",
			Help:      "Style properties rewritten by the color sanitizer.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.ExportsTotal,
		m.ExportDuration,
		m.ImagesTotal,
		m.SanitizedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
	)
	return m
}

// Registry exposes the registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger.Named("metrics")),
	})
}

// RecordExport counts one export and observes its latency.
func (m *Metrics) RecordExport(mode, backend, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(mode, backend, result).Inc()
	if result != ResultSkipped {
		m.ExportDuration.WithLabelValues(mode, backend).Observe(d.Seconds())
	}
}

// RecordImages adds the outcome of one readiness wait.
func (m *Metrics) RecordImages(ready, failed, timedOut int) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues(ImageReady).Add(float64(ready))
	m.ImagesTotal.WithLabelValues(ImageFailed).Add(float64(failed))
	m.ImagesTotal.WithLabelValues(ImageTimedOut).Add(float64(timedOut))
}

// RecordSanitized adds n rewritten properties.
func (m *Metrics) RecordSanitized(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SanitizedTotal.Add(float64(n))
}

// RecordHTTP counts one request.
func (m *Metrics) RecordHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
