// Package metrics exposes Prometheus collectors for evaluation runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/termcheck/internal/schema"
)

// Metrics provides observability for evaluation runs.
type Metrics struct {
	// Completed reports by verdict, direction and category
	Outcomes *prometheus.CounterVec

	// Failed evaluations by error kind
	Failures *prometheus.CounterVec

	// Per-name evaluation latency including collaborator calls
	EvaluateLatency prometheus.Histogram

	// Overall scores by direction
	Scores *prometheus.HistogramVec

	// Collaborator call latency by collaborator
	CollaboratorLatency *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg. A nil reg registers
// with a fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "termcheck_reports_total",
			Help: "Completed compliance reports by verdict, direction and category",
		}, []string{"verdict", "direction", "category"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "termcheck_evaluation_failures_total",
			Help: "Failed evaluations by error kind",
		}, []string{"kind"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "termcheck_evaluate_duration_seconds",
			Help:    "Duration of one name evaluation including collaborator calls",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),

		Scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termcheck_overall_score",
			Help:    "Overall compliance scores by direction",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
		}, []string{"direction"}),

		CollaboratorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termcheck_collaborator_duration_seconds",
			Help:    "Duration of calls to external collaborators",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"collaborator"}), // collaborator: "generator", "teamwork", "history"
	}
}

// ObserveReport records a completed report.
func (m *Metrics) ObserveReport(r schema.ComplianceReport) {
	if m != nil {
		m.Outcomes.WithLabelValues(string(r.Verdict), string(r.Direction), string(r.Category)).Inc()
		m.Scores.WithLabelValues(string(r.Direction)).Observe(float64(r.OverallScore))
	}
}

// IncrementFailure records a failed evaluation.
func (m *Metrics) IncrementFailure(kind string) {
	if m != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

// ObserveEvaluateLatency records the duration of one evaluation.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveCollaboratorLatency records the duration of a collaborator call.
func (m *Metrics) ObserveCollaboratorLatency(collaborator string, d time.Duration) {
	if m != nil {
		m.CollaboratorLatency.WithLabelValues(collaborator).Observe(d.Seconds())
	}
}

// WriteTextfile writes every metric gathered from g to path in the
// node-exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: writing %s: %w", path, err)
	}
	return nil
}
