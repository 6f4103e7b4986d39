package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/config"
	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/triage"
)

// Escalate command flags.
var (
	escalateReason   string
	escalatePriority string
	escalateActor    string
	escalateOutput   string
)

// EscalateResult is the machine-readable escalation output.
type EscalateResult struct {
	CaseID         string  `json:"case_id"`
	Approved       bool    `json:"approved"`
	Status         string  `json:"status,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	Tier           string  `json:"tier,omitempty"`
	Confidence     float64 `json:"analysis_confidence"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// NewEscalateCommand creates the escalate command.
func NewEscalateCommand(deps *TriageDeps) *cobra.Command {
	deps = requireDeps(deps)

	cmd := &cobra.Command{
		Use:   "escalate <case-id>",
		Short: "Request escalation of a case",
		Long: `Request escalation of a case. The request runs through an AI analysis
of the case and a confidence-gated decision policy. An approved request
moves the case to the escalated status and records the decision on the
case metadata and the audit trail. A denied request leaves the case
unchanged, prints the analysis recommendation, and is still audited, so
it can be retried with a stronger reason.

Examples:
  casetriage escalate 4f1c2a9e-... --reason "Victim receiving threats"
  casetriage escalate 4f1c2a9e-... --reason "Repeat offender" --priority critical
  casetriage escalate 4f1c2a9e-... --reason "..." --actor supervisor-3 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: closeAfterRun(deps, func(cmd *cobra.Command, args []string) error {
			caseID, err := parseCaseID(args[0])
			if err != nil {
				return err
			}

			var requested *triage.CasePriority
			if escalatePriority != "" {
				p, ok := triage.ParsePriority(escalatePriority)
				if !ok {
					return fmt.Errorf("invalid priority %q (expected low, normal, high, or critical)", escalatePriority)
				}
				requested = &p
			}

			if _, err := deps.loadConfig(); err != nil {
				return err
			}

			ctx, cancel := deps.commandContext(cmd.Context())
			defer cancel()

			outcome, err := runEscalate(ctx, deps, caseID, escalateReason, requested, deps.actor(escalateActor))
			format := deps.resolveFormat(escalateOutput)
			if err != nil {
				if denied, ok := cterrors.IsEscalationDenied(err); ok {
					return outputEscalationDenied(cmd, format, caseID, denied)
				}
				return escalateFailure(caseID, err)
			}

			return outputEscalateResult(cmd.OutOrStdout(), format, outcome)
		}),
	}

	cmd.Flags().StringVarP(&escalateReason, "reason", "r", "", "Reason for the escalation request (required)")
	cmd.Flags().StringVarP(&escalatePriority, "priority", "p", "", "Requested priority: low, normal, high, critical")
	cmd.Flags().StringVar(&escalateActor, "actor", "", "Actor recorded on the audit trail (defaults to config actor)")
	cmd.Flags().StringVarP(&escalateOutput, "output", "o", "", "Output format: text, json, yaml")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

// runEscalate dispatches to the mock or the real service.
func runEscalate(ctx context.Context, deps *TriageDeps, caseID uuid.UUID, reason string, requested *triage.CasePriority, actor string) (*triage.EscalationOutcome, error) {
	if deps.EscalateCaseFn != nil {
		return deps.EscalateCaseFn(ctx, caseID, reason, requested, actor)
	}
	if err := deps.ensureService(ctx); err != nil {
		return nil, err
	}
	return deps.service.EscalateCase(ctx, caseID, reason, requested, actor)
}

// escalateFailure maps domain errors to user-facing messages.
func escalateFailure(caseID uuid.UUID, err error) error {
	switch {
	case cterrors.IsNotFound(err):
		return fmt.Errorf("case %s not found", caseID)
	case cterrors.IsAlreadyEscalated(err):
		return fmt.Errorf("case %s is already escalated", caseID)
	case cterrors.IsInvalidState(err):
		return fmt.Errorf("case %s cannot be escalated in its current state: %w", caseID, err)
	case cterrors.IsAuditWriteFailed(err):
		return fmt.Errorf("escalation aborted, audit record could not be written: %w", err)
	}
	return err
}

func outputEscalateResult(w io.Writer, format config.OutputFormat, outcome *triage.EscalationOutcome) error {
	c := outcome.Case
	result := &EscalateResult{
		CaseID:   c.ID.String(),
		Approved: outcome.Approved,
		Status:   string(c.Status),
		Priority: string(c.Priority),
		Tier:     string(c.EscalationLevel),
	}
	if outcome.Analysis != nil {
		result.Confidence = outcome.Analysis.Confidence
		result.Recommendation = outcome.Analysis.Recommendation
	}

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(w, result)
	case config.OutputFormatYAML:
		return outputYAML(w, result)
	default:
		fmt.Fprintf(w, "Escalation approved for case %s\n", c.ID)
		fmt.Fprintf(w, "  Priority:   %s\n", c.Priority)
		fmt.Fprintf(w, "  Tier:       %s\n", c.EscalationLevel)
		if c.EscalatedAt != nil {
			fmt.Fprintf(w, "  Escalated:  by %s at %s\n", c.EscalatedBy, c.EscalatedAt.Format(time.RFC3339))
		}
		if outcome.Analysis != nil && outcome.Analysis.Recommendation != "" {
			fmt.Fprintf(w, "  Analysis:   %s\n", outcome.Analysis.Recommendation)
		}
		return nil
	}
}

// outputEscalationDenied reports a policy rejection. The command exits
// non-zero so scripts can distinguish denial from approval.
func outputEscalationDenied(cmd *cobra.Command, format config.OutputFormat, caseID uuid.UUID, denied *cterrors.EscalationDeniedError) error {
	w := cmd.OutOrStdout()
	switch format {
	case config.OutputFormatJSON, config.OutputFormatYAML:
		result := &EscalateResult{
			CaseID:         caseID.String(),
			Approved:       false,
			Confidence:     denied.Confidence,
			Recommendation: denied.Recommendation,
		}
		var err error
		if format == config.OutputFormatJSON {
			err = outputJSON(w, result)
		} else {
			err = outputYAML(w, result)
		}
		if err != nil {
			return err
		}
	default:
		fmt.Fprintf(w, "Escalation denied for case %s\n", caseID)
		fmt.Fprintf(w, "  The analysis recommends against escalation with %s confidence.\n", denied.ConfidencePercent())
		if denied.Recommendation != "" {
			fmt.Fprintf(w, "  Recommendation: %s\n", denied.Recommendation)
		}
		fmt.Fprintln(w, "  The decision was recorded. You may retry with a stronger reason.")
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return denied
}
