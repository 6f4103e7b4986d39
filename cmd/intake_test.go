package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openredress/casetriage/pkg/triage"
)

// resetIntakeFlags restores the intake flag globals between test runs.
func resetIntakeFlags() {
	intakeFile = ""
	intakeContext = nil
	intakeActor = ""
	intakeOutput = ""
}

func TestNewIntakeCommand(t *testing.T) {
	cmd := NewIntakeCommand(testDeps())

	require.NotNil(t, cmd)
	assert.Equal(t, "intake [report text]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "casetriage intake")

	for _, name := range []string{"file", "context", "actor", "output"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestIntakeCommand_CreatesCase(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	var gotText, gotActor string
	var gotExtra map[string]string
	deps.IntakeReportFn = func(_ context.Context, text, actor string, extra map[string]string) (*triage.Case, error) {
		gotText, gotActor, gotExtra = text, actor, extra
		return testCase(), nil
	}

	out, err := executeCommand(t, NewIntakeCommand(deps),
		"Officer demanded a bribe at the checkpoint on Tuesday evening.",
		"--context", "region=coastal", "--context", "channel=ussd")
	require.NoError(t, err)

	assert.Equal(t, "Officer demanded a bribe at the checkpoint on Tuesday evening.", gotText)
	assert.Equal(t, "tester", gotActor)
	assert.Equal(t, map[string]string{"region": "coastal", "channel": "ussd"}, gotExtra)

	assert.Contains(t, out, "Case 7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b")
	assert.Contains(t, out, "Bribery")
	assert.Contains(t, out, "92.0% confidence")
}

func TestIntakeCommand_ActorFlagOverridesConfig(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	var gotActor string
	deps.IntakeReportFn = func(_ context.Context, _, actor string, _ map[string]string) (*triage.Case, error) {
		gotActor = actor
		return testCase(), nil
	}

	_, err := executeCommand(t, NewIntakeCommand(deps),
		"Officer demanded a bribe at the checkpoint.", "--actor", "supervisor-3")
	require.NoError(t, err)
	assert.Equal(t, "supervisor-3", gotActor)
}

func TestIntakeCommand_JSONOutput(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	deps.IntakeReportFn = func(_ context.Context, _, _ string, _ map[string]string) (*triage.Case, error) {
		return testCase(), nil
	}

	out, err := executeCommand(t, NewIntakeCommand(deps),
		"Officer demanded a bribe at the checkpoint.", "--output", "json")
	require.NoError(t, err)

	var result IntakeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b", result.CaseID)
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, "Bribery", result.Category)
	assert.Equal(t, "priority", result.Tier)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.False(t, result.Fallback)
}

func TestIntakeCommand_FallbackFlagged(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	deps.IntakeReportFn = func(_ context.Context, _, _ string, _ map[string]string) (*triage.Case, error) {
		c := testCase()
		c.Classification = triage.FallbackClassification()
		return c, nil
	}

	out, err := executeCommand(t, NewIntakeCommand(deps), "Something happened somewhere recently.")
	require.NoError(t, err)
	assert.Contains(t, out, "flagged for manual review")
}

func TestIntakeCommand_StdinInput(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	var gotText string
	deps.IntakeReportFn = func(_ context.Context, text, _ string, _ map[string]string) (*triage.Case, error) {
		gotText = text
		return testCase(), nil
	}

	cmd := NewIntakeCommand(deps)
	cmd.SetIn(strings.NewReader("Report text from stdin.\n"))
	_, err := executeCommand(t, cmd, "--file", "-")
	require.NoError(t, err)
	assert.Equal(t, "Report text from stdin.", gotText)
}

func TestIntakeCommand_RequiresReportText(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	deps.IntakeReportFn = func(_ context.Context, _, _ string, _ map[string]string) (*triage.Case, error) {
		t.Fatal("intake should not be called")
		return nil, nil
	}

	_, err := executeCommand(t, NewIntakeCommand(deps))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report text is required")
}

func TestIntakeCommand_RejectsArgAndFile(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	_, err := executeCommand(t, NewIntakeCommand(deps), "some report text here", "--file", "report.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestIntakeCommand_InvalidContextPair(t *testing.T) {
	resetIntakeFlags()

	deps := testDeps()
	_, err := executeCommand(t, NewIntakeCommand(deps),
		"Officer demanded a bribe at the checkpoint.", "--context", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}
