package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// NATS configuration
	NATSURL string

	// Redis configuration. Empty means the in-process watermark store is
	// used, which is fine for a single instance.
	RedisURL string

	// Capability table. Empty means the embedded default table.
	NetworksFile string

	// Keyed Solana endpoints. These backends are skipped entirely when the
	// URL is not configured.
	SolanaQuickNodeURL string
	SolanaAlchemyURL   string
	SolanaShadowURL    string

	// Transport configuration
	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables and validates all
// fields. Returns an error listing every problem found rather than the
// first one.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Redis configuration
	cfg.RedisURL = os.Getenv("REDIS_URL")

	// Capability table
	cfg.NetworksFile = os.Getenv("NETWORKS_FILE")

	// Keyed Solana endpoints
	cfg.SolanaQuickNodeURL = os.Getenv("SOLANA_QUICKNODE_URL")
	cfg.SolanaAlchemyURL = os.Getenv("SOLANA_ALCHEMY_URL")
	cfg.SolanaShadowURL = os.Getenv("SOLANA_SHADOW_URL")

	// Transport configuration
	timeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HTTPTimeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerAddr == "" {
		errs = append(errs, fmt.Errorf("ServerAddr is required"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LogLevel must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	if c.NATSURL == "" {
		errs = append(errs, fmt.Errorf("NATSURL is required"))
	}

	if c.HTTPTimeout < time.Second {
		errs = append(errs, fmt.Errorf("HTTPTimeout must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
