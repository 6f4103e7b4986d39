package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/credentials"
)

// NewAuthCommand creates the auth command group for managing the inference
// API key.
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the inference API key",
		Long: `Manage the API key used to authenticate against the inference service.

The key is stored in the operating system keyring. The ` + credentials.EnvAPIKey + `
environment variable takes precedence over the stored key when set.`,
	}

	cmd.AddCommand(newAuthSetKeyCommand())
	cmd.AddCommand(newAuthShowCommand())
	cmd.AddCommand(newAuthClearCommand())

	return cmd
}

func newAuthSetKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [api-key]",
		Short: "Store the inference API key in the system keyring",
		Long: `Store the inference API key in the system keyring. With no argument the
key is read from stdin, which keeps it out of shell history.

Examples:
  casetriage auth set-key
  casetriage auth set-key ct-key-abcdef123456`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "API key: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading API key: %w", err)
				}
				key = strings.TrimSpace(line)
			}

			store := credentials.NewStore()
			if err := store.Save(key); err != nil {
				if errors.Is(err, credentials.ErrKeyringUnavailable) {
					return fmt.Errorf("%w\n%s", err, credentials.KeyringDescription())
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "API key stored (%s)\n", credentials.MaskCredential(key))
			return nil
		},
	}
}

func newAuthShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured API key (masked) and its source",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credentials.NewStore()
			key, err := store.APIKey()
			if err != nil {
				if errors.Is(err, credentials.ErrNoCredentials) {
					fmt.Fprintln(cmd.OutOrStdout(), "No API key configured. Run 'casetriage auth set-key' to store one.")
					return nil
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "API key: %s\n", credentials.MaskCredential(key))
			fmt.Fprintf(cmd.OutOrStdout(), "Source:  %s\n", store.Source())
			return nil
		},
	}
}

func newAuthClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the API key from the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credentials.NewStore()
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed from the keyring.")
			return nil
		},
	}
}
