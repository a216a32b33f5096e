package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "config.yml"

// Config holds all application configuration, read from a YAML file and
// overridden by environment variables.
type Config struct {
	// Solana configuration
	Endpoint       string `yaml:"endpoint"`
	KeyPath        string `yaml:"key_path"`
	Commitment     string `yaml:"commitment"`
	ConfirmTimeout string `yaml:"confirm_timeout"`
	PollInterval   string `yaml:"poll_interval"`

	// Tokens maps mint addresses to display symbols.
	Tokens map[string]string `yaml:"tokens"`

	// Optional outputs; empty disables them.
	DatabaseURL     string `yaml:"database_url"`
	NATSURL         string `yaml:"nats_url"`
	MetricsTextfile string `yaml:"metrics_textfile"`

	LogLevel string `yaml:"log_level"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. A missing file is not an error as long as the
// environment supplies the required values.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Endpoint = getEnvOrDefault("SOLANA_RPC_URL", c.Endpoint)
	c.KeyPath = getEnvOrDefault("SOLANA_KEYPAIR", c.KeyPath)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.NATSURL = getEnvOrDefault("NATS_URL", c.NATSURL)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
}

func (c *Config) applyDefaults() {
	if c.Commitment == "" {
		c.Commitment = string(rpc.CommitmentConfirmed)
	}
	if c.ConfirmTimeout == "" {
		c.ConfirmTimeout = "60s"
	}
	if c.PollInterval == "" {
		c.PollInterval = "500ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "error"
	}
	if c.Tokens == nil {
		c.Tokens = map[string]string{}
	}
}

// Validate checks if the configuration is valid. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, fmt.Errorf("endpoint is required (or set SOLANA_RPC_URL)"))
	}
	if c.KeyPath == "" {
		errs = append(errs, fmt.Errorf("key_path is required (or set SOLANA_KEYPAIR)"))
	}

	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		errs = append(errs, fmt.Errorf("commitment: unknown level %q", c.Commitment))
	}

	confirmTimeout, err := parseDuration("confirm_timeout", c.ConfirmTimeout)
	if err != nil {
		errs = append(errs, err)
	}
	pollInterval, err := parseDuration("poll_interval", c.PollInterval)
	if err != nil {
		errs = append(errs, err)
	}
	if err == nil && pollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive"))
	}
	if pollInterval > 0 && confirmTimeout > 0 && pollInterval > confirmTimeout {
		errs = append(errs, fmt.Errorf("poll_interval (%v) cannot be greater than confirm_timeout (%v)",
			pollInterval, confirmTimeout))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	for mint := range c.Tokens {
		if _, err := solana.PublicKeyFromBase58(mint); err != nil {
			errs = append(errs, fmt.Errorf("tokens: invalid mint address %q: %w", mint, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// CommitmentType returns the configured commitment level.
func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}

// ConfirmTimeoutDuration returns confirm_timeout. Call only after Validate.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConfirmTimeout)
	return d
}

// PollIntervalDuration returns poll_interval. Call only after Validate.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// ParseLogLevel maps a level name onto a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level: unknown level %q", level)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration setting.
func parseDuration(key, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
