// Package metrics holds Prometheus collectors for the submission pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Submission records per-stage outcomes and latencies.
// A nil *Submission is valid and records nothing.
type Submission struct {
	outcomes      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewSubmission creates the collectors and registers them with reg.
func NewSubmission(reg prometheus.Registerer) (*Submission, error) {
	m := &Submission{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "submissions_total",
				Help: "Submission pipeline stage outcomes.",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "submission_stage_duration_seconds",
				Help:    "Latency of each submission pipeline stage.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one finished stage.
func (m *Submission) Observe(stage string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.outcomes.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(took.Seconds())
}
