// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "measureiq"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	docstoreOps  *prometheus.CounterVec
	autosaves    *prometheus.CounterVec
	quoteExports *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so tests can create
// as many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		docstoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "docstore_operations_total",
			Help:      "Document store reads and writes by backend and outcome.",
		}, []string{"backend", "op", "result"}),
		autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosaves_total",
			Help:      "Background customer saves by outcome.",
		}, []string{"result"}),
		quoteExports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_exports_total",
			Help:      "Rendered quotes by format.",
		}, []string{"format"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected sign-ins and tokens by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.docstoreOps,
		m.autosaves,
		m.quoteExports,
		m.authFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDocstore(backend, op string, err error) {
	if m == nil {
		return
	}
	m.docstoreOps.WithLabelValues(backend, op, result(err)).Inc()
}

// Autosave outcomes.
const (
	AutosaveSaved      = "saved"
	AutosaveFailed     = "failed"
	AutosaveSuperseded = "superseded"
)

func (m *Metrics) ObserveAutosave(outcome string) {
	if m == nil {
		return
	}
	m.autosaves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveQuoteExport(format string) {
	if m == nil {
		return
	}
	m.quoteExports.WithLabelValues(format).Inc()
}

func (m *Metrics) ObserveAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
