package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects per-stage duration and outcome observations for the
// coordinator, grounded on datastore/postgres/store_metrics.go's
// promauto.NewHistogramVec/NewCounterVec pair. Collector only: nothing in
// this module exposes an HTTP handler, since serving metrics is a
// front-end concern out of scope per spec.md.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	jobOutcomes   *prometheus.CounterVec
}

// NewMetrics registers the coordinator's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcsrc",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of a coordinator-driven pipeline stage.",
		}, []string{"stage", "mapping"}),
		jobOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcsrc",
			Subsystem: "pipeline",
			Name:      "job_outcomes_total",
			Help:      "Count of completed pipeline stage invocations by outcome.",
		}, []string{"stage", "mapping", "outcome"}),
	}
}

func (m *Metrics) observe(stage, mapping string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, mapping).Observe(seconds)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.jobOutcomes.WithLabelValues(stage, mapping, outcome).Inc()
}
