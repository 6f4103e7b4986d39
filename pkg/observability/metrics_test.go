package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewTriageMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTriageMetrics(reg)

	m.ClassificationsTotal.WithLabelValues(ClassificationSourceModel, "Fraud").Inc()
	m.EscalationVerdictsTotal.WithLabelValues("approve").Add(2)
	m.EscalationDeniedTotal.Inc()
	m.FallbacksTotal.WithLabelValues("classification").Inc()
	m.InferenceLatencySeconds.WithLabelValues("classify").Observe(1.2)
	m.InferenceFailuresTotal.WithLabelValues("classify", "timeout").Inc()
	m.ClassificationScore.WithLabelValues(ClassificationSourceModel).Observe(0.92)

	if got := testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues(ClassificationSourceModel, "Fraud")); got != 1 {
		t.Errorf("ClassificationsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EscalationVerdictsTotal.WithLabelValues("approve")); got != 2 {
		t.Errorf("EscalationVerdictsTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EscalationDeniedTotal); got != 1 {
		t.Errorf("EscalationDeniedTotal = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "triage_") {
			t.Errorf("metric %s missing triage_ prefix", f.GetName())
		}
	}
}

func TestNewTriageMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewTriageMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewTriageMetrics(reg)
}
