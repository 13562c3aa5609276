package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects admission-control metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	admissions *prometheus.CounterVec
	retries    *prometheus.CounterVec
	occupancy  prometheus.Histogram
	sideEffect *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "admission_decisions_total",
			Help:      "Reservation admission decisions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "transaction_retries_total",
			Help:      "Transactions retried after a concurrent modification.",
		}, []string{"operation"}),
		occupancy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "peak_occupancy_ratio",
			Help:      "Peak concurrent horses divided by facility capacity at admission time.",
			Buckets:   []float64{0.25, 0.5, 0.75, 0.9, 1, 1.25, 1.5, 2},
		}),
		sideEffect: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "side_effect_failures_total",
			Help:      "Audit, notification and cache side effects that failed after commit.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		r.admissions, r.retries, r.occupancy, r.sideEffect,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Admission(operation, outcome string) {
	if r == nil {
		return
	}
	r.admissions.WithLabelValues(operation, outcome).Inc()
}

func (r *Recorder) Retry(operation string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(operation).Inc()
}

func (r *Recorder) PeakOccupancy(peak, capacity int) {
	if r == nil || capacity <= 0 {
		return
	}
	r.occupancy.Observe(float64(peak) / float64(capacity))
}

func (r *Recorder) SideEffectFailed(kind string) {
	if r == nil {
		return
	}
	r.sideEffect.WithLabelValues(kind).Inc()
}

// Admissions exposes the admission counter, mostly for tests.
func (r *Recorder) Admissions() *prometheus.CounterVec { return r.admissions }

func (r *Recorder) Retries() *prometheus.CounterVec { return r.retries }

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
