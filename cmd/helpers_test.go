// Package cmd provides CLI commands for the casetriage tool.
package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/config"
	"github.com/openredress/casetriage/pkg/triage"
)

// mockConfig creates a mock configuration for command testing.
func mockConfig() *config.CLIConfig {
	return &config.CLIConfig{
		Timeout:      30 * time.Second,
		OutputFormat: config.OutputFormatText,
		Actor:        "tester",
	}
}

// testDeps creates command dependencies with a preloaded config.
func testDeps() *TriageDeps {
	cfg := mockConfig()
	return &TriageDeps{
		Config: cfg,
		LoadConfig: func() (*config.CLIConfig, error) {
			return cfg, nil
		},
	}
}

// testCase builds a classified case for command fixtures.
func testCase() *triage.Case {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return &triage.Case{
		ID:              uuid.MustParse("7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b"),
		Status:          triage.StatusPending,
		Priority:        triage.PriorityNormal,
		EscalationLevel: triage.TierPriority,
		UrgencyScore:    7,
		ReportText:      "Officer demanded a bribe at the checkpoint on Tuesday evening.",
		Classification: &triage.Classification{
			Category:         triage.CategoryBribery,
			Tier:             triage.TierPriority,
			Confidence:       0.92,
			UrgencyScore:     7,
			SuggestedActions: []string{"Collect witness statements", "Notify oversight unit"},
			Reasoning:        "Report describes a demand for payment by an official.",
		},
		Revision:  1,
		Metadata:  triage.NewMetadata(),
		CreatedBy: "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// executeCommand runs a command with args and captures its output.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// findSubcommand finds a subcommand by name.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, subCmd := range cmd.Commands() {
		if subCmd.Name() == name {
			return subCmd
		}
	}
	return nil
}
