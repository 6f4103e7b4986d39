package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/pkg/buildinfo"
)

var versionOutput string

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash, and build time of the casetriage CLI.

Examples:
  casetriage version
  casetriage version --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Get("casetriage-cli")
			switch versionOutput {
			case "json":
				return outputJSON(cmd.OutOrStdout(), info)
			case "yaml":
				return outputYAML(cmd.OutOrStdout(), info)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "casetriage %s\n", buildinfo.String())
				fmt.Fprintf(cmd.OutOrStdout(), "  go: %s\n", info.GoVersion)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&versionOutput, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}
