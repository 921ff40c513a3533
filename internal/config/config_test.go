package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "9090", cfg.GRPCPort)
	assert.Equal(t, "./data/syncup.db", cfg.DBPath)
	assert.Equal(t, KVBackendSQLite, cfg.KVBackend)
	assert.Equal(t, 60*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 72*time.Hour, cfg.AI.SuggestionsTTL)
	assert.Equal(t, time.Hour, cfg.AI.FollowUpsTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.SeedEnabled)
	assert.False(t, cfg.AIEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("KV_BACKEND", "badger")
	t.Setenv("BADGER_PATH", "/tmp/kv")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SUGGESTIONS_TTL", "24h")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("FRONTEND_URL", "https://syncup.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, KVBackendBadger, cfg.KVBackend)
	assert.Equal(t, 24*time.Hour, cfg.AI.SuggestionsTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.AIEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port: "8080", GRPCPort: "9090", DBPath: "x.db", KVBackend: KVBackendSQLite,
			SessionTTL: time.Hour,
			AI:         AIConfig{Timeout: time.Second, SuggestionsTTL: time.Hour, FollowUpsTTL: time.Hour},
			RateLimit:  RateLimitConfig{RPS: 1, Burst: 1},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"same ports", func(c *Config) { c.GRPCPort = c.Port }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"unknown backend", func(c *Config) { c.KVBackend = "redis" }},
		{"badger without path", func(c *Config) { c.KVBackend = KVBackendBadger; c.BadgerPath = "" }},
		{"zero ttl", func(c *Config) { c.AI.FollowUpsTTL = 0 }},
		{"zero rate", func(c *Config) { c.RateLimit.RPS = 0 }},
	}

	base := valid()
	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
