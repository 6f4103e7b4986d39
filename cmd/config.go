package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/openredress/casetriage/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(deps *TriageDeps) *cobra.Command {
	deps = requireDeps(deps)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `View and modify the casetriage CLI configuration settings.`,
	}

	cmd.AddCommand(newConfigShowCommand(deps))
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand(deps *TriageDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the current CLI configuration values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.loadConfig()
			if err != nil {
				return err
			}

			configPath, _ := config.ConfigPath()
			w := cmd.OutOrStdout()

			fmt.Fprintln(w, "Current configuration:")
			fmt.Fprintf(w, "  Config file:    %s\n", configPath)
			fmt.Fprintf(w, "  Timeout:        %s\n", cfg.Timeout)
			fmt.Fprintf(w, "  Output format:  %s\n", cfg.OutputFormat)
			fmt.Fprintf(w, "  Actor:          %s\n", cfg.Actor)
			fmt.Fprintf(w, "  Debug:          %t\n", cfg.Debug)

			if cfg.Database != nil {
				fmt.Fprintln(w, "  Database:")
				fmt.Fprintf(w, "    Host:         %s\n", cfg.Database.Host)
				fmt.Fprintf(w, "    Port:         %d\n", cfg.Database.Port)
				fmt.Fprintf(w, "    Database:     %s\n", cfg.Database.Database)
				fmt.Fprintf(w, "    User:         %s\n", cfg.Database.User)
			}
			if cfg.Redis.Enabled() {
				fmt.Fprintln(w, "  Redis:")
				fmt.Fprintf(w, "    Addr:         %s\n", cfg.Redis.Addr)
				fmt.Fprintf(w, "    Cache TTL:    %s\n", cfg.Redis.CacheTTL)
			}
			if cfg.Inference != nil {
				fmt.Fprintln(w, "  Inference:")
				fmt.Fprintf(w, "    Endpoint:     %s\n", cfg.Inference.Endpoint)
				fmt.Fprintf(w, "    Model:        %s\n", cfg.Inference.Model)
			}

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  `Create a new configuration file with default values if one doesn't exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.ConfigPath()
			if err != nil {
				return fmt.Errorf("getting config path: %w", err)
			}

			if _, err := os.Stat(configPath); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration file already exists: %s\n", configPath)
				fmt.Fprintln(cmd.OutOrStdout(), "Use 'casetriage config show' to view current settings.")
				return nil
			}

			defaultCfg := config.DefaultConfig()
			if err := config.SaveConfig(defaultCfg); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", configPath)
			fmt.Fprintln(cmd.OutOrStdout(), "\nDefault settings:")
			fmt.Fprintf(cmd.OutOrStdout(), "  Timeout:        %s\n", defaultCfg.Timeout)
			fmt.Fprintf(cmd.OutOrStdout(), "  Output format:  %s\n", defaultCfg.OutputFormat)
			fmt.Fprintf(cmd.OutOrStdout(), "  Actor:          %s\n", defaultCfg.Actor)

			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file.

Available keys:
  timeout             - Command timeout (e.g., 30s, 2m)
  output_format       - Default output format (text, json, yaml)
  actor               - Identity recorded on audit records
  debug               - Enable debug logging (true/false)
  database.host       - PostgreSQL host
  database.port       - PostgreSQL port
  database.name       - PostgreSQL database name
  database.user       - PostgreSQL user
  database.sslmode    - PostgreSQL SSL mode
  redis.addr          - Redis address for the classification cache (host:port)
  inference.endpoint  - Inference service chat-completions URL
  inference.model     - Inference model identifier

Secrets (database password, Redis password, API key) are never stored in
the config file. Use environment variables or 'casetriage auth set-key'.

Examples:
  casetriage config set timeout 1m
  casetriage config set output_format json
  casetriage config set actor supervisor-desk
  casetriage config set database.host db.internal
  casetriage config set inference.model triage-classifier-v2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			currentCfg, err := config.LoadConfig()
			if err != nil {
				currentCfg = config.DefaultConfig()
			}

			if err := setConfigValue(currentCfg, key, value); err != nil {
				return err
			}

			if err := config.SaveConfig(currentCfg); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func setConfigValue(cfg *config.CLIConfig, key, value string) error {
	switch key {
	case "timeout":
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		cfg.Timeout = duration
	case "output_format":
		format := config.OutputFormat(value)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
		}
		cfg.OutputFormat = format
	case "actor":
		cfg.Actor = value
	case "debug":
		switch value {
		case "true", "1":
			cfg.Debug = true
		case "false", "0":
			cfg.Debug = false
		default:
			return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
		}
	case "database.host":
		ensureDatabase(cfg).Host = value
	case "database.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid database port: %w", err)
		}
		ensureDatabase(cfg).Port = port
	case "database.name":
		ensureDatabase(cfg).Database = value
	case "database.user":
		ensureDatabase(cfg).User = value
	case "database.sslmode":
		ensureDatabase(cfg).SSLMode = value
	case "redis.addr":
		if cfg.Redis == nil {
			cfg.Redis = &config.RedisConfig{}
		}
		cfg.Redis.Addr = value
	case "inference.endpoint":
		ensureInference(cfg).Endpoint = value
	case "inference.model":
		ensureInference(cfg).Model = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func ensureDatabase(cfg *config.CLIConfig) *config.DatabaseConfig {
	if cfg.Database == nil {
		cfg.Database = &config.DatabaseConfig{}
	}
	return cfg.Database
}

func ensureInference(cfg *config.CLIConfig) *config.InferenceConfig {
	if cfg.Inference == nil {
		cfg.Inference = &config.InferenceConfig{}
	}
	return cfg.Inference
}
