// Package config provides CLI configuration management for the casetriage command-line tool.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.Actor != DefaultActor {
		t.Errorf("Actor = %v, want %v", cfg.Actor, DefaultActor)
	}
	if cfg.Debug {
		t.Error("Debug should be false by default")
	}
	if cfg.Database != nil {
		t.Error("Database should be unset by default")
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled by default")
	}
}

// TestDefaultConstants verifies default constant values.
func TestDefaultConstants(t *testing.T) {
	if DefaultTimeout != 2*time.Minute {
		t.Errorf("DefaultTimeout = %v, want 2m", DefaultTimeout)
	}
	if DefaultOutputFormat != OutputFormatText {
		t.Errorf("DefaultOutputFormat = %v, want text", DefaultOutputFormat)
	}
	if DefaultConfigDir != ".casetriage" {
		t.Errorf("DefaultConfigDir = %v, want .casetriage", DefaultConfigDir)
	}
	if DefaultConfigFile != "config.yaml" {
		t.Errorf("DefaultConfigFile = %v, want config.yaml", DefaultConfigFile)
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false}, // Case sensitive
		{"xml", false},
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestConfigDir verifies config directory resolution.
func TestConfigDir(t *testing.T) {
	t.Setenv("CASETRIAGE_CONFIG_DIR", "/tmp/custom-casetriage")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/custom-casetriage" {
		t.Errorf("ConfigDir = %v, want /tmp/custom-casetriage", dir)
	}
}

// TestLoadConfig_FromFile verifies file loading with env override.
func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CASETRIAGE_CONFIG_DIR", dir)

	content := `
timeout: 45s
output_format: json
actor: supervisor-desk
database:
  host: db.internal
  port: 5433
  database: triage
  user: triage_rw
  sslmode: require
  max_conns: 20
redis:
  addr: cache.internal:6379
  db: 2
  cache_ttl: 1h
inference:
  endpoint: http://inference.internal/v1/chat/completions
  model: triage-v2
  temperature: 0.1
  max_tokens: 512
  timeout: 15s
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if cfg.Actor != "supervisor-desk" {
		t.Errorf("Actor = %v", cfg.Actor)
	}

	if cfg.Database == nil {
		t.Fatal("Database not loaded")
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("Database = %+v", cfg.Database)
	}

	if !cfg.Redis.Enabled() {
		t.Fatal("Redis not loaded")
	}
	if cfg.Redis.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.Redis.CacheTTL)
	}

	if cfg.Inference == nil {
		t.Fatal("Inference not loaded")
	}
	if cfg.Inference.Model != "triage-v2" {
		t.Errorf("Model = %v", cfg.Inference.Model)
	}
	if cfg.Inference.Timeout != 15*time.Second {
		t.Errorf("Inference.Timeout = %v, want 15s", cfg.Inference.Timeout)
	}
}

// TestLoadConfig_EnvOverridesFile verifies environment variable precedence.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CASETRIAGE_CONFIG_DIR", dir)

	content := "output_format: json\nactor: from-file\ndatabase:\n  host: from-file\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CASETRIAGE_OUTPUT_FORMAT", "yaml")
	t.Setenv("CASETRIAGE_ACTOR", "from-env")
	t.Setenv("DB_HOST", "env-db")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.OutputFormat != OutputFormatYAML {
		t.Errorf("OutputFormat = %v, want yaml", cfg.OutputFormat)
	}
	if cfg.Actor != "from-env" {
		t.Errorf("Actor = %v, want from-env", cfg.Actor)
	}
	if cfg.Database.Host != "env-db" {
		t.Errorf("Database.Host = %v, want env-db", cfg.Database.Host)
	}
	if cfg.Database.Password != "secret" {
		t.Error("DB_PASSWORD not applied")
	}
}

// TestLoadConfig_MissingFileUsesDefaults verifies defaults without a file.
func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CASETRIAGE_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Timeout)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want default", cfg.OutputFormat)
	}
}

// TestLoadConfig_InvalidFormat verifies validation failure.
func TestLoadConfig_InvalidFormat(t *testing.T) {
	t.Setenv("CASETRIAGE_CONFIG_DIR", t.TempDir())
	t.Setenv("CASETRIAGE_OUTPUT_FORMAT", "xml")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error for invalid output format")
	}
}

// TestSaveConfig_RoundTrip verifies save and reload.
func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("CASETRIAGE_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.OutputFormat = OutputFormatJSON
	cfg.Actor = "desk-7"
	cfg.Database = &DatabaseConfig{Host: "db1", Database: "triage", User: "u"}
	cfg.Redis = &RedisConfig{Addr: "localhost:6379", CacheTTL: 30 * time.Minute}
	cfg.Inference = &InferenceConfig{Model: "triage-v2", Timeout: 10 * time.Second}

	if err := SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v", loaded.OutputFormat)
	}
	if loaded.Actor != "desk-7" {
		t.Errorf("Actor = %v", loaded.Actor)
	}
	if loaded.Database == nil || loaded.Database.Host != "db1" {
		t.Errorf("Database = %+v", loaded.Database)
	}
	if loaded.Redis.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v", loaded.Redis.CacheTTL)
	}
	if loaded.Inference == nil || loaded.Inference.Timeout != 10*time.Second {
		t.Errorf("Inference = %+v", loaded.Inference)
	}
}

// TestDatabaseConfig_PoolConfig verifies mapping onto pkg/db defaults.
func TestDatabaseConfig_PoolConfig(t *testing.T) {
	var nilCfg *DatabaseConfig
	pool := nilCfg.PoolConfig()
	if pool.Host != "localhost" || pool.Port != 5432 {
		t.Errorf("nil config should yield defaults, got %+v", pool)
	}

	cfg := &DatabaseConfig{Host: "db9", MaxConns: 25, Password: "pw"}
	pool = cfg.PoolConfig()
	if pool.Host != "db9" {
		t.Errorf("Host = %v", pool.Host)
	}
	if pool.MaxConns != 25 {
		t.Errorf("MaxConns = %v", pool.MaxConns)
	}
	if pool.Password != "pw" {
		t.Errorf("Password not mapped")
	}
	if pool.Database != "casetriage" {
		t.Errorf("unset Database should keep default, got %v", pool.Database)
	}
}

// TestInferenceConfig_ClientConfig verifies mapping onto inference defaults.
func TestInferenceConfig_ClientConfig(t *testing.T) {
	var nilCfg *InferenceConfig
	cc := nilCfg.ClientConfig()
	if cc.Model != "triage-classifier" {
		t.Errorf("nil config should yield defaults, got %+v", cc)
	}

	cfg := &InferenceConfig{Model: "triage-v2", Timeout: 5 * time.Second}
	cc = cfg.ClientConfig()
	if cc.Model != "triage-v2" {
		t.Errorf("Model = %v", cc.Model)
	}
	if cc.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cc.Timeout)
	}
	if cc.MaxTokens != 1024 {
		t.Errorf("unset MaxTokens should keep default, got %v", cc.MaxTokens)
	}
}
