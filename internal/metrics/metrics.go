// Package metrics exposes Prometheus counters and histograms for source checks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess is the outcome label of a successful check. Failed checks
// are labelled with their error kind.
const OutcomeSuccess = "success"

// Recorder records source checks into its own registry, never the global
// default one.
type Recorder struct {
	registry *prometheus.Registry
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with the Go runtime and process collectors
// already registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sauce",
			Name:      "source_checks_total",
			Help:      "Source checks by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sauce",
			Name:      "source_check_duration_seconds",
			Help:      "Wall time of a single source check.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.checks,
		r.duration,
	)
	return r
}

// ObserveCheck records one check. An empty outcome counts as success.
func (r *Recorder) ObserveCheck(source, outcome string, elapsed time.Duration) {
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	r.checks.WithLabelValues(source, outcome).Inc()
	r.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
