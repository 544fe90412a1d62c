// Package config loads and validates CLI configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all spanwatch CLI configuration.
type Config struct {
	// Option store settings. StoreDSN selects the backend: a postgres://
	// URL uses the pgx store, anything else is treated as a SQLite path.
	// Empty disables the store layer (built-in defaults apply).
	StoreDSN string
	// ProjectID scopes project-level overrides; 0 means no project context.
	ProjectID int64

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel     string
	AnalyzeLimit int           // max event files analyzed concurrently
	StoreTimeout time.Duration // timeout for option store connect and reads
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		StoreDSN:     envStr("SPANWATCH_STORE_DSN", ""),
		ProjectID:    int64(envInt("SPANWATCH_PROJECT_ID", 0)),
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "spanwatch"),
		LogLevel:     envStr("SPANWATCH_LOG_LEVEL", "info"),
		AnalyzeLimit: envInt("SPANWATCH_ANALYZE_LIMIT", 4),
		StoreTimeout: envDuration("SPANWATCH_STORE_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is coherent.
func (c Config) Validate() error {
	if c.ProjectID < 0 {
		return fmt.Errorf("config: SPANWATCH_PROJECT_ID must not be negative")
	}
	if c.AnalyzeLimit <= 0 {
		return fmt.Errorf("config: SPANWATCH_ANALYZE_LIMIT must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: SPANWATCH_STORE_TIMEOUT must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
