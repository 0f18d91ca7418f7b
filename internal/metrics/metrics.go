// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tuition_ledger"

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	paymentsRecorded   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
	schemaDrift        *prometheus.CounterVec
	replays            prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		paymentsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payment records appended, by mode.",
		}, []string{"mode"}),
		validationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected inputs, by operation.",
		}, []string{"operation"}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Tabular store failures, by operation and kind.",
		}, []string{"operation", "kind"}),
		schemaDrift: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_drift_fields_total",
			Help:      "Record fields dropped for lack of a column, by collection.",
		}, []string{"collection"}),
		replays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotent_replays_total",
			Help:      "Submissions answered from the idempotency cache.",
		}),
	}
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) PaymentRecorded(mode string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(mode).Inc()
}

func (m *Metrics) ValidationFailed(operation string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(operation).Inc()
}

// StoreError counts a failed store call; kind is "fault" or "timeout".
func (m *Metrics) StoreError(operation, kind string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) SchemaDrift(collection string, fields int) {
	if m == nil || fields == 0 {
		return
	}
	m.schemaDrift.WithLabelValues(collection).Add(float64(fields))
}

func (m *Metrics) Replayed() {
	if m == nil {
		return
	}
	m.replays.Inc()
}
