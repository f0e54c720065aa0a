// Package metrics exposes Prometheus metrics for handler swaps, state
// transitions, control operations and HTTP traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/status"
)

const namespace = "hotswap"

// Registry holds all application metrics. Each Registry owns its own
// prometheus.Registry so independent instances never collide.
type Registry struct {
	reg *prometheus.Registry

	HandlerSwaps      prometheus.Counter
	HandlerVersion    prometheus.Gauge
	StateTransitions  *prometheus.CounterVec
	State             *prometheus.GaugeVec
	ControlOperations *prometheus.CounterVec
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// NewRegistry creates and registers every metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	r := &Registry{
		reg: reg,
		HandlerSwaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "swaps_total",
			Help:      "Number of times the active request handler was replaced.",
		}),
		HandlerVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handler_version",
			Help:      "Version number of the most recently installed handler.",
		}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "transitions_total",
			Help:      "Number of operational state transitions.",
		}, []string{"from", "to"}),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "state",
			Help:      "1 for the current operational state, 0 otherwise.",
		}, []string{"state"}),
		ControlOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "operations_total",
			Help:      "Control operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"code", "method"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"code", "method"}),
	}

	r.setState(status.Starting)
	r.HandlerVersion.Set(1)
	return r
}

// HandlerSwapped implements dispatch.Observer.
func (r *Registry) HandlerSwapped(version uint64) {
	r.HandlerSwaps.Inc()
	r.HandlerVersion.Set(float64(version))
}

// StateChanged records a state transition. It matches the status store's
// transition hook signature.
func (r *Registry) StateChanged(from, to status.State) {
	r.StateTransitions.WithLabelValues(from.Kind().String(), to.Kind().String()).Inc()
	r.setState(to.Kind())
}

// ControlOperation records the outcome of a control operation.
func (r *Registry) ControlOperation(operation, outcome string) {
	r.ControlOperations.WithLabelValues(operation, outcome).Inc()
}

// Instrument wraps next with request counting and latency observation.
func (r *Registry) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(r.RequestDuration,
		promhttp.InstrumentHandlerCounter(r.RequestsTotal, next))
}

// Handler returns the /metrics handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) setState(current status.Kind) {
	for _, k := range status.Kinds() {
		v := 0.0
		if k == current {
			v = 1
		}
		r.State.WithLabelValues(k.String()).Set(v)
	}
}

var _ dispatch.Observer = (*Registry)(nil)
