package cmd

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/triage"
)

// resetEscalateFlags restores the escalate flag globals between test runs.
func resetEscalateFlags() {
	escalateReason = ""
	escalatePriority = ""
	escalateActor = ""
	escalateOutput = ""
}

// escalatedOutcome builds an approved outcome fixture.
func escalatedOutcome() *triage.EscalationOutcome {
	c := testCase()
	c.Status = triage.StatusEscalated
	c.Priority = triage.PriorityCritical
	c.EscalationLevel = triage.TierUrgent
	c.EscalatedBy = "tester"
	at := time.Date(2026, 8, 21, 14, 0, 0, 0, time.UTC)
	c.EscalatedAt = &at
	return &triage.EscalationOutcome{
		Case: c,
		Analysis: &triage.EscalationAnalysis{
			ShouldEscalate:    true,
			Confidence:        0.88,
			SuggestedPriority: triage.PriorityCritical,
			UrgencyScore:      9,
			Recommendation:    "Escalate immediately",
		},
		Approved: true,
	}
}

func TestNewEscalateCommand(t *testing.T) {
	cmd := NewEscalateCommand(testDeps())

	require.NotNil(t, cmd)
	assert.Equal(t, "escalate <case-id>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	for _, name := range []string{"reason", "priority", "actor", "output"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestEscalateCommand_Approved(t *testing.T) {
	resetEscalateFlags()

	deps := testDeps()
	var gotID uuid.UUID
	var gotReason, gotActor string
	var gotPriority *triage.CasePriority
	deps.EscalateCaseFn = func(_ context.Context, caseID uuid.UUID, reason string, requested *triage.CasePriority, actor string) (*triage.EscalationOutcome, error) {
		gotID, gotReason, gotPriority, gotActor = caseID, reason, requested, actor
		return escalatedOutcome(), nil
	}

	out, err := executeCommand(t, NewEscalateCommand(deps),
		"7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b",
		"--reason", "Victim receiving threats",
		"--priority", "critical")
	require.NoError(t, err)

	assert.Equal(t, "7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b", gotID.String())
	assert.Equal(t, "Victim receiving threats", gotReason)
	require.NotNil(t, gotPriority)
	assert.Equal(t, triage.PriorityCritical, *gotPriority)
	assert.Equal(t, "tester", gotActor)

	assert.Contains(t, out, "Escalation approved")
	assert.Contains(t, out, "critical")
	assert.Contains(t, out, "urgent")
}

func TestEscalateCommand_Denied(t *testing.T) {
	resetEscalateFlags()

	deps := testDeps()
	deps.EscalateCaseFn = func(_ context.Context, _ uuid.UUID, _ string, _ *triage.CasePriority, _ string) (*triage.EscalationOutcome, error) {
		return nil, cterrors.NewEscalationDenied("Case lacks corroborating evidence", 0.85)
	}

	out, err := executeCommand(t, NewEscalateCommand(deps),
		"7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b",
		"--reason", "Please escalate")
	require.Error(t, err)

	_, ok := cterrors.IsEscalationDenied(err)
	assert.True(t, ok, "expected an escalation denied error, got %v", err)

	assert.Contains(t, out, "Escalation denied")
	assert.Contains(t, out, "85.0%")
	assert.Contains(t, out, "Case lacks corroborating evidence")
	assert.Contains(t, out, "retry with a stronger reason")
}

func TestEscalateCommand_DeniedJSONOutput(t *testing.T) {
	resetEscalateFlags()

	deps := testDeps()
	deps.EscalateCaseFn = func(_ context.Context, _ uuid.UUID, _ string, _ *triage.CasePriority, _ string) (*triage.EscalationOutcome, error) {
		return nil, cterrors.NewEscalationDenied("No new information", 0.91)
	}

	out, err := executeCommand(t, NewEscalateCommand(deps),
		"7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b",
		"--reason", "Please escalate", "--output", "json")
	require.Error(t, err)

	var result EscalateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Approved)
	assert.InDelta(t, 0.91, result.Confidence, 1e-9)
	assert.Equal(t, "No new information", result.Recommendation)
}

func TestEscalateCommand_InvalidPriority(t *testing.T) {
	resetEscalateFlags()

	deps := testDeps()
	deps.EscalateCaseFn = func(_ context.Context, _ uuid.UUID, _ string, _ *triage.CasePriority, _ string) (*triage.EscalationOutcome, error) {
		t.Fatal("escalate should not be called")
		return nil, nil
	}

	_, err := executeCommand(t, NewEscalateCommand(deps),
		"7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b",
		"--reason", "Please escalate", "--priority", "severe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestEscalateCommand_InvalidCaseID(t *testing.T) {
	resetEscalateFlags()

	deps := testDeps()
	_, err := executeCommand(t, NewEscalateCommand(deps), "not-a-uuid", "--reason", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid case ID")
}

func TestEscalateCommand_DomainErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"not found", cterrors.ErrNotFound, "not found"},
		{"already escalated", cterrors.ErrAlreadyEscalated, "already escalated"},
		{"invalid state", cterrors.ErrInvalidState, "current state"},
		{"audit failure", cterrors.ErrAuditWriteFailed, "audit record"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resetEscalateFlags()

			deps := testDeps()
			deps.EscalateCaseFn = func(_ context.Context, _ uuid.UUID, _ string, _ *triage.CasePriority, _ string) (*triage.EscalationOutcome, error) {
				return nil, tc.err
			}

			_, err := executeCommand(t, NewEscalateCommand(deps),
				"7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b", "--reason", "Please escalate")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}
