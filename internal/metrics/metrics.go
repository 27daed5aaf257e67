// Package metrics defines the Prometheus collectors exported by cmdgate.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cmdgate"

// Execution outcomes recorded by RecordExecution.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure" // completed with non-zero exit
	OutcomeTimeout  = "timeout"
	OutcomeSpawn    = "spawn_error"
	OutcomeInternal = "internal"
)

// Metrics holds the collectors. A nil *Metrics records nothing, so callers
// never need to guard.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	executions         *prometheus.CounterVec
	executionDuration  *prometheus.HistogramVec
	admissionDenied    *prometheus.CounterVec
	validationRejected *prometheus.CounterVec
	authFailures       *prometheus.CounterVec
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	return NewWith(prometheus.NewRegistry())
}

// NewWith registers the collectors with reg. Gauges backed by live state are
// added separately with RegisterGauges.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Executions by kind (command or tool) and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Child process wall-clock duration in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		admissionDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_denied_total",
				Help:      "Requests refused by the resource governor.",
			},
			[]string{"cause"},
		),
		validationRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_rejected_total",
				Help:      "Requests rejected by validation or policy.",
			},
			[]string{"kind"},
		),
		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Rejected credentials by method.",
			},
			[]string{"method"},
		),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration,
		m.executions, m.executionDuration,
		m.admissionDenied, m.validationRejected, m.authFailures,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// GaugeSource supplies live values for the state gauges.
type GaugeSource struct {
	Active      func() float64
	MemoryMB    func() float64
	PoolBusy    func() float64
	PoolWorkers float64
}

// RegisterGauges adds gauges that read live state at scrape time.
func RegisterGauges(reg prometheus.Registerer, src GaugeSource) {
	var cs []prometheus.Collector
	if src.Active != nil {
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Admitted requests not yet released.",
		}, src.Active))
	}
	if src.MemoryMB != nil {
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resident_memory_megabytes",
			Help:      "Last sampled resident memory of the gateway.",
		}, src.MemoryMB))
	}
	if src.PoolBusy != nil {
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "busy_workers",
			Help:      "Executor workers currently running a child process.",
		}, src.PoolBusy))
	}
	if src.PoolWorkers > 0 {
		workers := src.PoolWorkers
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "workers",
			Help:      "Size of the executor worker pool.",
		}, func() float64 { return workers }))
	}
	reg.MustRegister(cs...)
}

// Gatherer returns the registry backing m, or nil when m was built on a
// Registerer that cannot gather.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// Handler returns the exposition handler for the backing registry.
func (m *Metrics) Handler() http.Handler {
	if g := m.Gatherer(); g != nil {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// RecordExecution records a child process that was started.
func (m *Metrics) RecordExecution(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(kind, outcome).Inc()
	m.executionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordAdmissionDenied records a governor refusal.
func (m *Metrics) RecordAdmissionDenied(cause string) {
	if m == nil {
		return
	}
	m.admissionDenied.WithLabelValues(cause).Inc()
}

// RecordValidationRejected records a request refused before execution.
func (m *Metrics) RecordValidationRejected(kind string) {
	if m == nil {
		return
	}
	m.validationRejected.WithLabelValues(kind).Inc()
}

// RecordAuthFailure records a rejected credential.
func (m *Metrics) RecordAuthFailure(method string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(method).Inc()
}
