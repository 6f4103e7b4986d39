// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the triage engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values for classification outcomes.
const (
	ClassificationSourceModel    = "model"
	ClassificationSourceCache    = "cache"
	ClassificationSourceFallback = "fallback"
)

// TriageMetrics holds all Prometheus metrics for the triage engine.
type TriageMetrics struct {
	// Classification metrics
	ClassificationsTotal *prometheus.CounterVec
	ClassificationScore  *prometheus.HistogramVec

	// Escalation metrics
	EscalationVerdictsTotal *prometheus.CounterVec
	EscalationDeniedTotal   prometheus.Counter

	// Inference metrics
	InferenceLatencySeconds *prometheus.HistogramVec
	InferenceFailuresTotal  *prometheus.CounterVec
	FallbacksTotal          *prometheus.CounterVec
}

// DefaultTriageMetrics creates metrics on the default registerer.
func DefaultTriageMetrics() *TriageMetrics {
	return NewTriageMetrics(prometheus.DefaultRegisterer)
}

// NewTriageMetrics creates a new set of triage metrics.
func NewTriageMetrics(reg prometheus.Registerer) *TriageMetrics {
	factory := promauto.With(reg)

	return &TriageMetrics{
		ClassificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_classifications_total",
				Help: "Total classifications produced, by source and category",
			},
			[]string{"source", "category"},
		),
		ClassificationScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_classification_confidence",
				Help:    "Confidence distribution of produced classifications",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
			[]string{"source"},
		),
		EscalationVerdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_escalation_verdicts_total",
				Help: "Total escalation policy verdicts, by branch",
			},
			[]string{"verdict"},
		),
		EscalationDeniedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_escalations_denied_total",
				Help: "Total escalation requests rejected by policy",
			},
		),
		InferenceLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_inference_latency_seconds",
				Help:    "Latency of outbound inference calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		InferenceFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_inference_failures_total",
				Help: "Total failed inference calls, by operation and reason",
			},
			[]string{"operation", "reason"},
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_fallbacks_total",
				Help: "Total fallback substitutions, by kind",
			},
			[]string{"kind"},
		),
	}
}
