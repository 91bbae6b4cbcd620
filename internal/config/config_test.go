package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 1000, cfg.Tracking.MaxPointsPerSubject)
	assert.Equal(t, 30, cfg.Tracking.DefaultWindowDays)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.CacheTTL)
	assert.Equal(t, 500, cfg.Tracking.PatternHistoryLimit)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("MOODTRACK_SERVER_ENV", "production")
	t.Setenv("MOODTRACK_TRACKING_MAX_POINTS_PER_SUBJECT", "250")
	t.Setenv("MOODTRACK_TRACKING_CACHE_TTL", "30s")
	t.Setenv("MOODTRACK_STORAGE_BACKEND", "SQLite")
	t.Setenv("MOODTRACK_STORAGE_DSN", "file:audit.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 250, cfg.Tracking.MaxPointsPerSubject)
	assert.Equal(t, 30*time.Second, cfg.Tracking.CacheTTL)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "file:audit.db", cfg.Storage.DSN)
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MOODTRACK_RATELIMIT_REQUESTS_PER_MINUTE=15\nMOODTRACK_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MOODTRACK_RATELIMIT_REQUESTS_PER_MINUTE")
		os.Unsetenv("MOODTRACK_LOG_LEVEL")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Tracking: TrackingConfig{
				MaxPointsPerSubject: 1000,
				DefaultWindowDays:   30,
				CacheTTL:            time.Minute,
				PatternHistoryLimit: 10,
			},
			Storage:   StorageConfig{Backend: "memory"},
			RateLimit: RateLimitConfig{RequestsPerMinute: 60},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero capacity", func(c *Config) { c.Tracking.MaxPointsPerSubject = 0 }, true},
		{"negative window", func(c *Config) { c.Tracking.DefaultWindowDays = -1 }, true},
		{"negative ttl", func(c *Config) { c.Tracking.CacheTTL = -time.Second }, true},
		{"zero ttl disables caching", func(c *Config) { c.Tracking.CacheTTL = 0 }, false},
		{"zero history", func(c *Config) { c.Tracking.PatternHistoryLimit = 0 }, true},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "cassandra" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Backend = "postgres"
			c.Storage.DSN = "postgres://localhost/moodtrack"
		}, false},
		{"sqlite uses default file", func(c *Config) { c.Storage.Backend = "sqlite" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
