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

// Case command flags.
var (
	caseShowDecisions bool
	caseOutput        string
)

// CaseView is the machine-readable case output, optionally with the
// decision history attached.
type CaseView struct {
	Case      *triage.Case            `json:"case"`
	Decisions []triage.DecisionRecord `json:"decisions,omitempty"`
}

// NewCaseCommand creates the case command group.
func NewCaseCommand(deps *TriageDeps) *cobra.Command {
	deps = requireDeps(deps)

	cmd := &cobra.Command{
		Use:   "case",
		Short: "Inspect cases",
	}

	cmd.AddCommand(newCaseShowCommand(deps))

	return cmd
}

func newCaseShowCommand(deps *TriageDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a case and its classification",
		Long: `Show a case with its current classification, priority, and escalation
state. With --decisions the append-only decision history is included,
one entry per classification or escalation decision ever made for the
case, rejections included.

Examples:
  casetriage case show 4f1c2a9e-...
  casetriage case show 4f1c2a9e-... --decisions
  casetriage case show 4f1c2a9e-... --output json`,
		Args: cobra.ExactArgs(1),
		RunE: closeAfterRun(deps, func(cmd *cobra.Command, args []string) error {
			caseID, err := parseCaseID(args[0])
			if err != nil {
				return err
			}

			if _, err := deps.loadConfig(); err != nil {
				return err
			}

			ctx, cancel := deps.commandContext(cmd.Context())
			defer cancel()

			c, err := runGetCase(ctx, deps, caseID)
			if err != nil {
				if cterrors.IsNotFound(err) {
					return fmt.Errorf("case %s not found", caseID)
				}
				return err
			}

			view := &CaseView{Case: c}
			if caseShowDecisions {
				view.Decisions, err = runListDecisions(ctx, deps, caseID)
				if err != nil {
					return fmt.Errorf("loading decision history: %w", err)
				}
			}

			return outputCaseView(cmd.OutOrStdout(), deps.resolveFormat(caseOutput), view)
		}),
	}

	cmd.Flags().BoolVar(&caseShowDecisions, "decisions", false, "Include the case's decision history")
	cmd.Flags().StringVarP(&caseOutput, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runGetCase(ctx context.Context, deps *TriageDeps, id uuid.UUID) (*triage.Case, error) {
	if deps.GetCaseFn != nil {
		return deps.GetCaseFn(ctx, id)
	}
	if err := deps.ensureService(ctx); err != nil {
		return nil, err
	}
	return deps.service.GetCase(ctx, id)
}

func runListDecisions(ctx context.Context, deps *TriageDeps, caseID uuid.UUID) ([]triage.DecisionRecord, error) {
	if deps.ListDecisionsFn != nil {
		return deps.ListDecisionsFn(ctx, caseID)
	}
	if err := deps.ensureService(ctx); err != nil {
		return nil, err
	}
	return deps.repo.ListDecisions(ctx, caseID)
}

func outputCaseView(w io.Writer, format config.OutputFormat, view *CaseView) error {
	switch format {
	case config.OutputFormatJSON:
		return outputJSON(w, view)
	case config.OutputFormatYAML:
		return outputYAML(w, view)
	default:
		printCase(w, view.Case)
		if view.Decisions != nil {
			fmt.Fprintf(w, "\nDecision history (%d):\n", len(view.Decisions))
			for _, rec := range view.Decisions {
				fmt.Fprintf(w, "  %s  %-14s  %.2f  %s  by %s\n",
					rec.CreatedAt.Format(time.RFC3339), rec.Kind, rec.Confidence, rec.Model, rec.Actor)
			}
		}
		return nil
	}
}
