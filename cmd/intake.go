package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/config"
	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/triage"
)

// Intake command flags.
var (
	intakeFile    string
	intakeContext []string
	intakeActor   string
	intakeOutput  string
)

// IntakeResult is the machine-readable intake output.
type IntakeResult struct {
	CaseID       string   `json:"case_id"`
	Status       string   `json:"status"`
	Category     string   `json:"category"`
	Tier         string   `json:"tier"`
	Confidence   float64  `json:"confidence"`
	UrgencyScore int      `json:"urgency_score"`
	Actions      []string `json:"suggested_actions"`
	Fallback     bool     `json:"fallback"`
}

// NewIntakeCommand creates the intake command.
func NewIntakeCommand(deps *TriageDeps) *cobra.Command {
	deps = requireDeps(deps)

	cmd := &cobra.Command{
		Use:   "intake [report text]",
		Short: "Classify an incident report and open a case",
		Long: `Submit a free-text incident report. The report is classified into a
category and escalation tier, and a new case is created carrying the
classification. If the classification service is unavailable the case is
still created with a conservative fallback classification flagged for
manual review.

The report text comes from the argument, from --file, or from stdin when
--file is "-".

Examples:
  casetriage intake "Officer demanded payment at the checkpoint"
  casetriage intake --file report.txt
  cat report.txt | casetriage intake --file -
  casetriage intake "..." --context region=coastal --context channel=ussd
  casetriage intake "..." --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: closeAfterRun(deps, func(cmd *cobra.Command, args []string) error {
			text, err := readReportText(cmd, args)
			if err != nil {
				return err
			}

			extra, err := parseContextPairs(intakeContext)
			if err != nil {
				return err
			}

			if _, err := deps.loadConfig(); err != nil {
				return err
			}

			ctx, cancel := deps.commandContext(cmd.Context())
			defer cancel()

			c, err := runIntake(ctx, deps, text, deps.actor(intakeActor), extra)
			if err != nil {
				return err
			}

			return outputIntakeResult(cmd.OutOrStdout(), deps.resolveFormat(intakeOutput), c)
		}),
	}

	cmd.Flags().StringVarP(&intakeFile, "file", "f", "", "Read the report text from a file (\"-\" for stdin)")
	cmd.Flags().StringArrayVar(&intakeContext, "context", nil, "Additional context as key=value (repeatable)")
	cmd.Flags().StringVar(&intakeActor, "actor", "", "Actor recorded on the audit trail (defaults to config actor)")
	cmd.Flags().StringVarP(&intakeOutput, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

// runIntake dispatches to the mock or the real service.
func runIntake(ctx context.Context, deps *TriageDeps, text, actor string, extra map[string]string) (*triage.Case, error) {
	if deps.IntakeReportFn != nil {
		return deps.IntakeReportFn(ctx, text, actor, extra)
	}
	if err := deps.ensureService(ctx); err != nil {
		return nil, err
	}
	return deps.service.IntakeReport(ctx, text, actor, extra)
}

// readReportText resolves the report text from args, file, or stdin.
func readReportText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && intakeFile != "" {
		return "", fmt.Errorf("%w: provide the report as an argument or via --file, not both", cterrors.ErrValidation)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	switch intakeFile {
	case "":
		return "", fmt.Errorf("%w: report text is required (argument or --file)", cterrors.ErrValidation)
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading report from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		data, err := os.ReadFile(intakeFile)
		if err != nil {
			return "", fmt.Errorf("reading report file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
}

func outputIntakeResult(w io.Writer, format config.OutputFormat, c *triage.Case) error {
	result := &IntakeResult{
		CaseID: c.ID.String(),
		Status: string(c.Status),
	}
	if c.Classification != nil {
		result.Category = string(c.Classification.Category)
		result.Tier = string(c.Classification.Tier)
		result.Confidence = c.Classification.Confidence
		result.UrgencyScore = c.Classification.UrgencyScore
		result.Actions = c.Classification.SuggestedActions
		result.Fallback = c.Classification.Category == triage.CategoryOther &&
			c.Classification.Confidence == 0.1
	}

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(w, result)
	case config.OutputFormatYAML:
		return outputYAML(w, result)
	default:
		printCase(w, c)
		if result.Fallback {
			fmt.Fprintln(w, "\nNote: automatic classification was unavailable; the case is flagged for manual review.")
		}
		return nil
	}
}
