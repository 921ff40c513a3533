// Package config provides application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// KV backends.
const (
	KVBackendSQLite = "sqlite"
	KVBackendBadger = "badger"
)

// Config holds all application configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9090"`
	FrontendURL string `env:"FRONTEND_URL"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/syncup.db"`
	KVBackend   string `env:"KV_BACKEND" envDefault:"sqlite"`
	BadgerPath  string `env:"BADGER_PATH" envDefault:"./data/kv"`

	// SessionTTL is how long an idle device session is kept in memory.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"60m"`

	AI        AIConfig
	RateLimit RateLimitConfig

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	SeedEnabled bool     `env:"SEED_ENABLED" envDefault:"true"`
}

// AIConfig controls the Gemini-backed assistant.
type AIConfig struct {
	// APIKey enables generation. Without it every assistant operation
	// returns its fallback.
	APIKey         string        `env:"GEMINI_API_KEY"`
	Model          string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	Timeout        time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	SuggestionsTTL time.Duration `env:"SUGGESTIONS_TTL" envDefault:"72h"`
	FollowUpsTTL   time.Duration `env:"FOLLOWUPS_TTL" envDefault:"1h"`
}

// RateLimitConfig bounds assistant-backed requests per device.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.GRPCPort == c.Port {
		return fmt.Errorf("GRPC_PORT must differ from PORT")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.KVBackend {
	case KVBackendSQLite:
	case KVBackendBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH cannot be empty when KV_BACKEND=badger")
		}
	default:
		return fmt.Errorf("KV_BACKEND must be %q or %q, got %q", KVBackendSQLite, KVBackendBadger, c.KVBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be > 0")
	}
	if c.AI.SuggestionsTTL <= 0 || c.AI.FollowUpsTTL <= 0 {
		return fmt.Errorf("SUGGESTIONS_TTL and FOLLOWUPS_TTL must be > 0")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	return nil
}

// AIEnabled reports whether an API key is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}
