// Package metrics turns engine events into Prometheus series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/hotstate/event"
)

// Metrics is an event.Sink recording restore outcomes, match confidence
// and pass totals.
type Metrics struct {
	reg prometheus.Gatherer

	outcomes   *prometheus.CounterVec
	confidence *prometheus.HistogramVec
	passes     prometheus.Counter
	restored   prometheus.Histogram
	failed     prometheus.Histogram
	captures   prometheus.Counter
}

// New registers the series on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	nodeBuckets := []float64{0, 1, 2, 5, 10, 25, 50, 100, 250}
	return &Metrics{
		reg: reg,
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hotstate_node_outcomes_total",
			Help: "Per-node restore outcomes",
		}, []string{"outcome"}),
		confidence: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hotstate_match_confidence",
			Help:    "Confidence of matches by method",
			Buckets: []float64{20, 35, 50, 65, 80, 95, 100},
		}, []string{"method"}),
		passes: f.NewCounter(prometheus.CounterOpts{
			Name: "hotstate_restore_passes_total",
			Help: "Completed restore passes",
		}),
		restored: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hotstate_pass_restored_nodes",
			Help:    "Nodes restored per pass",
			Buckets: nodeBuckets,
		}),
		failed: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hotstate_pass_failed_nodes",
			Help:    "Nodes failed per pass",
			Buckets: nodeBuckets,
		}),
		captures: f.NewCounter(prometheus.CounterOpts{
			Name: "hotstate_captures_total",
			Help: "Completed captures",
		}),
	}
}

// Emit implements event.Sink.
func (m *Metrics) Emit(e event.Event) {
	switch e.Outcome {
	case event.Summary:
		m.passes.Inc()
		m.restored.Observe(float64(e.Restored))
		m.failed.Observe(float64(e.Failed))
		return
	case event.Captured:
		m.captures.Inc()
		return
	}
	m.outcomes.WithLabelValues(string(e.Outcome)).Inc()
	if e.Method != "" {
		m.confidence.WithLabelValues(e.Method).Observe(float64(e.Confidence))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
