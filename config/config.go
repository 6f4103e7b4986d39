// Package config provides CLI configuration management for the casetriage
// command-line tool. It supports loading configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openredress/casetriage/pkg/db"
	"github.com/openredress/casetriage/pkg/inference"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultTimeout      = 2 * time.Minute
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".casetriage"
	DefaultConfigFile   = "config.yaml"
	DefaultActor        = "cli"
)

// DatabaseConfig holds PostgreSQL connection settings from the config file.
// Any field left empty falls back to the pkg/db defaults.
type DatabaseConfig struct {
	// Host is the database server hostname.
	Host string `yaml:"host,omitempty"`

	// Port is the database server port (default: 5432).
	Port int `yaml:"port,omitempty"`

	// Database is the database name.
	Database string `yaml:"database,omitempty"`

	// User is the database username.
	User string `yaml:"user,omitempty"`

	// SSLMode is the SSL connection mode (disable, require, verify-ca, verify-full).
	SSLMode string `yaml:"sslmode,omitempty"`

	// MaxConns is the maximum pool size.
	MaxConns int `yaml:"max_conns,omitempty"`

	// MinConns is the minimum pool size.
	MinConns int `yaml:"min_conns,omitempty"`

	// Password is never read from the config file; it comes from the
	// DB_PASSWORD environment variable or the credential store.
	Password string `yaml:"-"`
}

// PoolConfig converts the file settings into a pkg/db connection config,
// filling unset fields with the package defaults.
func (c *DatabaseConfig) PoolConfig() *db.Config {
	cfg := db.DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.Host != "" {
		cfg.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if c.Database != "" {
		cfg.Database = c.Database
	}
	if c.User != "" {
		cfg.User = c.User
	}
	if c.SSLMode != "" {
		cfg.SSLMode = c.SSLMode
	}
	if c.MaxConns != 0 {
		cfg.MaxConns = int32(c.MaxConns)
	}
	if c.MinConns != 0 {
		cfg.MinConns = int32(c.MinConns)
	}
	if c.Password != "" {
		cfg.Password = c.Password
	}
	return cfg
}

// RedisConfig holds classification cache settings. The cache is optional; an
// empty Addr disables it.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr,omitempty"`

	// DB is the Redis database number.
	DB int `yaml:"db,omitempty"`

	// CacheTTL is how long cached classifications stay valid.
	CacheTTL time.Duration `yaml:"-"`

	// Password is never read from the config file; it comes from the
	// REDIS_PASSWORD environment variable.
	Password string `yaml:"-"`
}

// Enabled reports whether the cache is configured.
func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Addr != ""
}

// InferenceConfig holds inference service settings from the config file.
type InferenceConfig struct {
	// Endpoint is the chat-completions URL of the inference service.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Model is the model identifier requested from the service.
	Model string `yaml:"model,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxTokens bounds the completion length.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout bounds each outbound inference call.
	Timeout time.Duration `yaml:"-"`
}

// ClientConfig converts the file settings into a pkg/inference client config,
// filling unset fields with the package defaults. The API key is attached
// separately from the credential store.
func (c *InferenceConfig) ClientConfig() inference.Config {
	cfg := inference.DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.Model != "" {
		cfg.Model = c.Model
	}
	if c.Temperature != 0 {
		cfg.Temperature = c.Temperature
	}
	if c.MaxTokens != 0 {
		cfg.MaxTokens = c.MaxTokens
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	return cfg
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// Timeout is the default timeout for commands.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Actor is the identity recorded on audit records for CLI operations.
	Actor string `yaml:"actor,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Database holds PostgreSQL connection settings.
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// Redis holds classification cache settings.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// Inference holds inference service settings.
	Inference *InferenceConfig `yaml:"inference,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		Actor:        DefaultActor,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $CASETRIAGE_CONFIG_DIR if set, otherwise ~/.casetriage
func ConfigDir() (string, error) {
	if dir := os.Getenv("CASETRIAGE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.casetriage/config.yaml or $CASETRIAGE_CONFIG_DIR/config.yaml)
// 3. Environment variables (CASETRIAGE_*, DB_*, REDIS_*)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// We need a temp struct for unmarshaling durations as strings.
	type redisFile struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		CacheTTL string `yaml:"cache_ttl"`
	}
	type inferenceFile struct {
		Endpoint    string  `yaml:"endpoint"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		Timeout     string  `yaml:"timeout"`
	}
	type configFile struct {
		Timeout      string          `yaml:"timeout"`
		OutputFormat OutputFormat    `yaml:"output_format"`
		Actor        string          `yaml:"actor"`
		Debug        bool            `yaml:"debug"`
		Database     *DatabaseConfig `yaml:"database"`
		Redis        *redisFile      `yaml:"redis"`
		Inference    *inferenceFile  `yaml:"inference"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	if fileCfg.Actor != "" {
		cfg.Actor = fileCfg.Actor
	}
	cfg.Debug = fileCfg.Debug

	if fileCfg.Database != nil {
		cfg.Database = fileCfg.Database
	}
	if fileCfg.Redis != nil {
		redis := &RedisConfig{Addr: fileCfg.Redis.Addr, DB: fileCfg.Redis.DB}
		if fileCfg.Redis.CacheTTL != "" {
			ttl, err := time.ParseDuration(fileCfg.Redis.CacheTTL)
			if err != nil {
				return fmt.Errorf("parsing redis cache_ttl: %w", err)
			}
			redis.CacheTTL = ttl
		}
		cfg.Redis = redis
	}
	if fileCfg.Inference != nil {
		inf := &InferenceConfig{
			Endpoint:    fileCfg.Inference.Endpoint,
			Model:       fileCfg.Inference.Model,
			Temperature: fileCfg.Inference.Temperature,
			MaxTokens:   fileCfg.Inference.MaxTokens,
		}
		if fileCfg.Inference.Timeout != "" {
			timeout, err := time.ParseDuration(fileCfg.Inference.Timeout)
			if err != nil {
				return fmt.Errorf("parsing inference timeout: %w", err)
			}
			inf.Timeout = timeout
		}
		cfg.Inference = inf
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("CASETRIAGE_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}

	if v := os.Getenv("CASETRIAGE_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("CASETRIAGE_ACTOR"); v != "" {
		cfg.Actor = v
	}

	if v := os.Getenv("CASETRIAGE_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("CASETRIAGE_INFERENCE_ENDPOINT"); v != "" {
		if cfg.Inference == nil {
			cfg.Inference = &InferenceConfig{}
		}
		cfg.Inference.Endpoint = v
	}

	if v := os.Getenv("CASETRIAGE_INFERENCE_MODEL"); v != "" {
		if cfg.Inference == nil {
			cfg.Inference = &InferenceConfig{}
		}
		cfg.Inference.Model = v
	}

	loadDatabaseFromEnv(cfg)
	loadRedisFromEnv(cfg)
}

// loadDatabaseFromEnv overlays database environment variables. The variable
// names match the ones pkg/db documents for server deployments.
func loadDatabaseFromEnv(cfg *CLIConfig) {
	host := os.Getenv("DB_HOST")
	database := os.Getenv("DB_NAME")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")

	if host == "" && database == "" && user == "" && password == "" {
		return
	}

	if cfg.Database == nil {
		cfg.Database = &DatabaseConfig{}
	}

	if host != "" {
		cfg.Database.Host = host
	}
	if database != "" {
		cfg.Database.Database = database
	}
	if user != "" {
		cfg.Database.User = user
	}
	if password != "" {
		cfg.Database.Password = password
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
}

// loadRedisFromEnv overlays Redis environment variables.
func loadRedisFromEnv(cfg *CLIConfig) {
	addr := os.Getenv("REDIS_ADDR")
	password := os.Getenv("REDIS_PASSWORD")

	if addr == "" && password == "" {
		return
	}

	if cfg.Redis == nil {
		cfg.Redis = &RedisConfig{}
	}

	if addr != "" {
		cfg.Redis.Addr = addr
	}
	if password != "" {
		cfg.Redis.Password = password
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	// Convert to YAML-friendly format with durations as strings.
	type redisFile struct {
		Addr     string `yaml:"addr,omitempty"`
		DB       int    `yaml:"db,omitempty"`
		CacheTTL string `yaml:"cache_ttl,omitempty"`
	}
	type inferenceFile struct {
		Endpoint    string  `yaml:"endpoint,omitempty"`
		Model       string  `yaml:"model,omitempty"`
		Temperature float64 `yaml:"temperature,omitempty"`
		MaxTokens   int     `yaml:"max_tokens,omitempty"`
		Timeout     string  `yaml:"timeout,omitempty"`
	}
	type configFile struct {
		Timeout      string          `yaml:"timeout"`
		OutputFormat OutputFormat    `yaml:"output_format"`
		Actor        string          `yaml:"actor,omitempty"`
		Debug        bool            `yaml:"debug,omitempty"`
		Database     *DatabaseConfig `yaml:"database,omitempty"`
		Redis        *redisFile      `yaml:"redis,omitempty"`
		Inference    *inferenceFile  `yaml:"inference,omitempty"`
	}

	fileCfg := configFile{
		Timeout:      cfg.Timeout.String(),
		OutputFormat: cfg.OutputFormat,
		Actor:        cfg.Actor,
		Debug:        cfg.Debug,
		Database:     cfg.Database,
	}
	if cfg.Redis != nil {
		r := &redisFile{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}
		if cfg.Redis.CacheTTL > 0 {
			r.CacheTTL = cfg.Redis.CacheTTL.String()
		}
		fileCfg.Redis = r
	}
	if cfg.Inference != nil {
		i := &inferenceFile{
			Endpoint:    cfg.Inference.Endpoint,
			Model:       cfg.Inference.Model,
			Temperature: cfg.Inference.Temperature,
			MaxTokens:   cfg.Inference.MaxTokens,
		}
		if cfg.Inference.Timeout > 0 {
			i.Timeout = cfg.Inference.Timeout.String()
		}
		fileCfg.Inference = i
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}
