// Package metrics records workflow, retry and dispatch metrics with
// Prometheus collectors. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "orderflow"

// NewRegistry returns a private registry carrying the standard Go and
// process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Recorder owns the collectors used by the orchestrator.
type Recorder struct {
	outcomes      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	exhausted     *prometheus.CounterVec
	compensations *prometheus.CounterVec
	notifications *prometheus.CounterVec
	inflight      prometheus.Gauge
	skipped       prometheus.Counter
}

// New creates a Recorder and registers its collectors on reg.
// An empty namespace defaults to "orderflow".
func New(reg prometheus.Registerer, namespace string) *Recorder {
	if namespace == "" {
		namespace = defaultNamespace
	}

	r := &Recorder{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_outcomes_total",
			Help:      "Completed workflows by pipeline and result kind.",
		}, []string{"pipeline", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Wall time of a workflow invocation.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"pipeline"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_retries_total",
			Help:      "Retry attempts after a failed operation call.",
		}, []string{"operation"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_retries_exhausted_total",
			Help:      "Operations that failed on every attempt.",
		}, []string{"operation"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Inventory releases issued to undo a reservation.",
		}, []string{"pipeline"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Confirmation sends by result.",
		}, []string{"result"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bulk_inflight",
			Help:      "Workflows currently running under the bulk dispatcher.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_skipped_total",
			Help:      "Orders skipped because their customer did not resolve.",
		}),
	}

	reg.MustRegister(
		r.outcomes,
		r.duration,
		r.retries,
		r.exhausted,
		r.compensations,
		r.notifications,
		r.inflight,
		r.skipped,
	)
	return r
}

// Outcome records a finished workflow. kind is empty on success.
func (r *Recorder) Outcome(pipeline, kind string, elapsed time.Duration) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	r.outcomes.WithLabelValues(pipeline, kind).Inc()
	r.duration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
}

// Retry records one retry of operation.
func (r *Recorder) Retry(operation string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(operation).Inc()
}

// Exhausted records an operation that ran out of attempts.
func (r *Recorder) Exhausted(operation string) {
	if r == nil {
		return
	}
	r.exhausted.WithLabelValues(operation).Inc()
}

// Compensation records an inventory release issued by pipeline.
func (r *Recorder) Compensation(pipeline string) {
	if r == nil {
		return
	}
	r.compensations.WithLabelValues(pipeline).Inc()
}

// Notification records a confirmation send.
func (r *Recorder) Notification(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifications.WithLabelValues(result).Inc()
}

// InflightInc marks a bulk workflow as started.
func (r *Recorder) InflightInc() {
	if r == nil {
		return
	}
	r.inflight.Inc()
}

// InflightDec marks a bulk workflow as finished.
func (r *Recorder) InflightDec() {
	if r == nil {
		return
	}
	r.inflight.Dec()
}

// Skipped records an order dropped for want of a customer.
func (r *Recorder) Skipped() {
	if r == nil {
		return
	}
	r.skipped.Inc()
}
