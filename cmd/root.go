package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

// Root command flags.
var (
	rootTimeout time.Duration
	rootDebug   bool
)

// NewRootCommand creates the casetriage root command with all subcommands
// attached.
func NewRootCommand(deps *TriageDeps) *cobra.Command {
	deps = requireDeps(deps)

	rootCmd := &cobra.Command{
		Use:   "casetriage",
		Short: "Incident report classification and escalation engine",
		Long: `casetriage classifies free-text incident reports into a fixed category
taxonomy and gates case escalation behind a confidence-scored decision
policy. Every classification and escalation decision is recorded on an
append-only audit trail.

COMMON WORKFLOWS:
  Submit a report:   casetriage intake "report text"
  Preview a report:  casetriage classify "report text"
  Inspect a case:    casetriage case show <case-id> --decisions
  Escalate a case:   casetriage escalate <case-id> --reason "..."

Run 'casetriage <command> --help' for flags and examples.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip configuration for commands that don't need it.
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			if cmd.Parent() != nil && cmd.Parent().Name() == "auth" {
				return nil
			}

			cfg, err := deps.loadConfig()
			if err != nil {
				return err
			}

			// Override with command-line flags.
			if rootTimeout != 0 {
				cfg.Timeout = rootTimeout
			}
			if rootDebug {
				cfg.Debug = true
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().DurationVar(&rootTimeout, "timeout", 0, "Command timeout (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewIntakeCommand(deps))
	rootCmd.AddCommand(NewClassifyCommand(deps))
	rootCmd.AddCommand(NewEscalateCommand(deps))
	rootCmd.AddCommand(NewCaseCommand(deps))
	rootCmd.AddCommand(NewConfigCommand(deps))
	rootCmd.AddCommand(NewAuthCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
