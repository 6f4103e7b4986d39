// Package cmd provides CLI commands for the casetriage tool.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openredress/casetriage/config"
	"github.com/openredress/casetriage/credentials"
	"github.com/openredress/casetriage/pkg/db"
	"github.com/openredress/casetriage/pkg/inference"
	"github.com/openredress/casetriage/pkg/logging"
	"github.com/openredress/casetriage/pkg/observability"
	"github.com/openredress/casetriage/pkg/triage"
)

// TriageDeps holds the dependencies for triage commands. The Fn fields allow
// tests to run commands without a database, cache, or inference service.
type TriageDeps struct {
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)

	// Mock function overrides for testing.
	ClassifyTextFn  func(ctx context.Context, text string, extra map[string]string) (*triage.Classification, bool, error)
	IntakeReportFn  func(ctx context.Context, text, actor string, extra map[string]string) (*triage.Case, error)
	EscalateCaseFn  func(ctx context.Context, caseID uuid.UUID, reason string, requestedPriority *triage.CasePriority, actor string) (*triage.EscalationOutcome, error)
	GetCaseFn       func(ctx context.Context, id uuid.UUID) (*triage.Case, error)
	ListDecisionsFn func(ctx context.Context, caseID uuid.UUID) ([]triage.DecisionRecord, error)

	service *triage.Service
	repo    *triage.Repository
	cleanup []func()
}

// DefaultTriageDeps returns the default dependencies for production use.
func DefaultTriageDeps() *TriageDeps {
	return &TriageDeps{
		LoadConfig: config.LoadConfig,
	}
}

// loadConfig loads configuration once and caches it on the deps.
func (d *TriageDeps) loadConfig() (*config.CLIConfig, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	d.Config = cfg
	return cfg, nil
}

// newLogger builds the CLI logger from the loaded configuration.
func (d *TriageDeps) newLogger() logging.Logger {
	level := logging.LevelWarn
	if d.Config != nil && d.Config.Debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "casetriage-cli",
		Output:      os.Stderr,
	})
}

// ensureService wires the full triage service: PostgreSQL store, optional
// Redis cache, inference gateway, and metrics. Commands using a mock Fn never
// reach this.
func (d *TriageDeps) ensureService(ctx context.Context) error {
	if d.service != nil {
		return nil
	}

	cfg, err := d.loadConfig()
	if err != nil {
		return err
	}
	logger := d.newLogger()

	pool, err := db.Connect(ctx, cfg.Database.PoolConfig())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	d.cleanup = append(d.cleanup, func() { db.Close(pool) })

	registry := prometheus.NewRegistry()
	registry.MustRegister(db.NewPoolStatsCollector(pool, "casetriage"))
	metrics := observability.NewTriageMetrics(registry)

	d.repo = triage.NewRepository(pool, logger)

	clientCfg := cfg.Inference.ClientConfig()
	if key, err := credentials.NewStore().APIKey(); err == nil {
		clientCfg.APIKey = key
	} else if !errors.Is(err, credentials.ErrNoCredentials) {
		logger.Warn("credential store unavailable", logging.Err(err))
	}

	gateway := inference.NewGateway(
		inference.NewClient(clientCfg, logger),
		logger,
		inference.WithMetrics(metrics),
	)

	opts := []triage.ServiceOption{triage.WithMetrics(metrics)}
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.cleanup = append(d.cleanup, func() { _ = rdb.Close() })
		opts = append(opts, triage.WithCache(
			triage.NewRedisClassificationCache(rdb, cfg.Redis.CacheTTL, logger),
		))
	}

	d.service = triage.NewService(d.repo, gateway, logger, opts...)
	return nil
}

// Close releases connections opened by ensureService.
func (d *TriageDeps) Close() {
	for i := len(d.cleanup) - 1; i >= 0; i-- {
		d.cleanup[i]()
	}
	d.cleanup = nil
	d.service = nil
	d.repo = nil
}

// commandContext derives a context bounded by the configured timeout.
func (d *TriageDeps) commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := config.DefaultTimeout
	if d.Config != nil && d.Config.Timeout > 0 {
		timeout = d.Config.Timeout
	}
	return context.WithTimeout(parent, timeout)
}

// actor returns the audit actor identity for this invocation.
func (d *TriageDeps) actor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if d.Config != nil && d.Config.Actor != "" {
		return d.Config.Actor
	}
	return config.DefaultActor
}

// resolveFormat picks the output format from the flag or the config default.
func (d *TriageDeps) resolveFormat(flagValue string) config.OutputFormat {
	if flagValue != "" {
		return config.OutputFormat(flagValue)
	}
	if d.Config != nil {
		return d.Config.OutputFormat
	}
	return config.DefaultOutputFormat
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML writes v as YAML.
func outputYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	return enc.Encode(v)
}

// parseCaseID parses and validates a case ID argument.
func parseCaseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid case ID %q: %w", arg, err)
	}
	return id, nil
}

// parseContextPairs parses repeated key=value flags into a map.
func parseContextPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extra := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := cutPair(pair)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context entry %q (expected key=value)", pair)
		}
		extra[key] = value
	}
	return extra, nil
}

func cutPair(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// printCase writes a human-readable case summary.
func printCase(w io.Writer, c *triage.Case) {
	fmt.Fprintf(w, "Case %s\n", c.ID)
	fmt.Fprintf(w, "  Status:     %s\n", c.Status)
	fmt.Fprintf(w, "  Priority:   %s\n", c.Priority)
	fmt.Fprintf(w, "  Tier:       %s\n", c.EscalationLevel)
	fmt.Fprintf(w, "  Urgency:    %d/10\n", c.UrgencyScore)
	if c.Classification != nil {
		cls := c.Classification
		fmt.Fprintf(w, "  Category:   %s (%.1f%% confidence)\n", cls.Category, cls.Confidence*100)
		if len(cls.SuggestedActions) > 0 {
			fmt.Fprintln(w, "  Suggested actions:")
			for _, action := range cls.SuggestedActions {
				fmt.Fprintf(w, "    - %s\n", action)
			}
		}
		if cls.Reasoning != "" {
			fmt.Fprintf(w, "  Reasoning:  %s\n", cls.Reasoning)
		}
	}
	if c.EscalatedBy != "" && c.EscalatedAt != nil {
		fmt.Fprintf(w, "  Escalated:  by %s at %s\n", c.EscalatedBy, c.EscalatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Created:    by %s at %s\n", c.CreatedBy, c.CreatedAt.Format(time.RFC3339))
}

// requireDeps returns deps, falling back to production defaults.
func requireDeps(deps *TriageDeps) *TriageDeps {
	if deps == nil {
		return DefaultTriageDeps()
	}
	return deps
}

// closeAfterRun wraps a RunE so connections open only for the command's life.
func closeAfterRun(deps *TriageDeps, run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer deps.Close()
		return run(cmd, args)
	}
}
