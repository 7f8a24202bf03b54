// Package metrics exposes Prometheus instrumentation for the comparison
// engine and the API server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects comparison metrics. It satisfies compare.Observer and
// owns its own registry so tests never collide on the global one.
type Recorder struct {
	registry    *prometheus.Registry
	comparisons prometheus.Counter
	invocations *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentarena",
			Name:      "comparisons_total",
			Help:      "Number of comparison batches completed.",
		}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentarena",
			Name:      "invocations_total",
			Help:      "Number of agent invocations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentarena",
			Name:      "invocation_duration_seconds",
			Help:      "Wall-clock duration of individual agent invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	reg.MustRegister(r.comparisons, r.invocations, r.duration)
	return r
}

// InvocationFinished records one agent invocation outcome.
func (r *Recorder) InvocationFinished(agent string, success bool, d time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	r.invocations.WithLabelValues(outcome).Inc()
	r.duration.Observe(d.Seconds())
}

// BatchFinished records one completed comparison batch.
func (r *Recorder) BatchFinished(agents int, d time.Duration) {
	r.comparisons.Inc()
}

// Handler serves the /metrics endpoint for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
