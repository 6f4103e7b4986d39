package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/config"
	"github.com/openredress/casetriage/pkg/triage"
)

// Classify command flags.
var (
	classifyContext []string
	classifyOutput  string
)

// ClassifyResult is the machine-readable classification output.
type ClassifyResult struct {
	Category     string   `json:"category"`
	Tier         string   `json:"tier"`
	Confidence   float64  `json:"confidence"`
	UrgencyScore int      `json:"urgency_score"`
	Actions      []string `json:"suggested_actions"`
	Reasoning    string   `json:"reasoning,omitempty"`
	Fallback     bool     `json:"fallback"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(deps *TriageDeps) *cobra.Command {
	deps = requireDeps(deps)

	cmd := &cobra.Command{
		Use:   "classify <report text>",
		Short: "Classify a report without creating a case",
		Long: `Classify a free-text incident report and print the result without
persisting anything. Useful for previewing how a report would be
categorized before submitting it with intake.

Examples:
  casetriage classify "Officer demanded payment at the checkpoint"
  casetriage classify "..." --context region=coastal
  casetriage classify "..." --output json`,
		Args: cobra.ExactArgs(1),
		RunE: closeAfterRun(deps, func(cmd *cobra.Command, args []string) error {
			extra, err := parseContextPairs(classifyContext)
			if err != nil {
				return err
			}

			if _, err := deps.loadConfig(); err != nil {
				return err
			}

			ctx, cancel := deps.commandContext(cmd.Context())
			defer cancel()

			cls, usedFallback, err := runClassify(ctx, deps, args[0], extra)
			if err != nil {
				return err
			}

			return outputClassifyResult(cmd.OutOrStdout(), deps.resolveFormat(classifyOutput), cls, usedFallback)
		}),
	}

	cmd.Flags().StringArrayVar(&classifyContext, "context", nil, "Additional context as key=value (repeatable)")
	cmd.Flags().StringVarP(&classifyOutput, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runClassify(ctx context.Context, deps *TriageDeps, text string, extra map[string]string) (*triage.Classification, bool, error) {
	if deps.ClassifyTextFn != nil {
		return deps.ClassifyTextFn(ctx, text, extra)
	}
	if err := deps.ensureService(ctx); err != nil {
		return nil, false, err
	}
	return deps.service.ClassifyText(ctx, text, extra)
}

func outputClassifyResult(w io.Writer, format config.OutputFormat, cls *triage.Classification, usedFallback bool) error {
	result := &ClassifyResult{
		Category:     string(cls.Category),
		Tier:         string(cls.Tier),
		Confidence:   cls.Confidence,
		UrgencyScore: cls.UrgencyScore,
		Actions:      cls.SuggestedActions,
		Reasoning:    cls.Reasoning,
		Fallback:     usedFallback,
	}

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(w, result)
	case config.OutputFormatYAML:
		return outputYAML(w, result)
	default:
		fmt.Fprintf(w, "Category:   %s\n", cls.Category)
		fmt.Fprintf(w, "Tier:       %s\n", cls.Tier)
		fmt.Fprintf(w, "Confidence: %.1f%%\n", cls.Confidence*100)
		fmt.Fprintf(w, "Urgency:    %d/10\n", cls.UrgencyScore)
		if len(cls.SuggestedActions) > 0 {
			fmt.Fprintln(w, "Suggested actions:")
			for _, action := range cls.SuggestedActions {
				fmt.Fprintf(w, "  - %s\n", action)
			}
		}
		if cls.Reasoning != "" {
			fmt.Fprintf(w, "Reasoning:  %s\n", cls.Reasoning)
		}
		if usedFallback {
			fmt.Fprintln(w, "\nNote: automatic classification was unavailable; this is the fallback result.")
		}
		return nil
	}
}
