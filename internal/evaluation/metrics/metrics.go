package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evaluation module.
type Metrics struct {
	// Evaluations created by alert level
	EvaluationsCreated *prometheus.CounterVec

	// Mutations denied by the guard, by denial reason
	MutationsDenied *prometheus.CounterVec

	// Action item status updates by resulting status
	ActionStatusUpdates *prometheus.CounterVec

	// Scoring latency including measure list assembly
	ScoreLatency prometheus.Histogram
}

// New creates a new Metrics instance with all evaluation module metrics registered.
func New() *Metrics {
	return &Metrics{
		EvaluationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clave_evaluations_created_total",
			Help: "Total protocol evaluations created by alert level",
		}, []string{"alert_level"}),

		MutationsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clave_mutations_denied_total",
			Help: "Total evaluation and action mutations denied by the guard, by reason",
		}, []string{"reason"}),

		ActionStatusUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clave_action_status_updates_total",
			Help: "Total action item status updates by resulting status",
		}, []string{"status"}),

		ScoreLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clave_score_duration_seconds",
			Help:    "Duration of saturation scoring including measure list assembly",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}),
	}
}

// IncrementCreated records a created evaluation.
func (m *Metrics) IncrementCreated(level string) {
	if m != nil {
		m.EvaluationsCreated.WithLabelValues(level).Inc()
	}
}

// IncrementDenied records a guard denial.
func (m *Metrics) IncrementDenied(reason string) {
	if m != nil {
		m.MutationsDenied.WithLabelValues(reason).Inc()
	}
}

// IncrementActionUpdate records an action item status change.
func (m *Metrics) IncrementActionUpdate(status string) {
	if m != nil {
		m.ActionStatusUpdates.WithLabelValues(status).Inc()
	}
}

// ObserveScoreLatency records a scoring duration.
func (m *Metrics) ObserveScoreLatency(d time.Duration) {
	if m != nil {
		m.ScoreLatency.Observe(d.Seconds())
	}
}
