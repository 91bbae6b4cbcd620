package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends accepted for the assessment audit log
var storageBackends = []string{"none", "memory", "sqlite", "postgres", "mysql"}

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackingConfig holds the limits of the longitudinal pipeline
type TrackingConfig struct {
	MaxPointsPerSubject int           `mapstructure:"max_points_per_subject"`
	DefaultWindowDays   int           `mapstructure:"default_window_days"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	PatternHistoryLimit int           `mapstructure:"pattern_history_limit"`
}

// StorageConfig selects where crisis assessments are audited
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	// A local .env file is optional and never overrides the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracking.max_points_per_subject", 1000)
	v.SetDefault("tracking.default_window_days", 30)
	v.SetDefault("tracking.cache_ttl", "5m")
	v.SetDefault("tracking.pattern_history_limit", 500)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("ratelimit.requests_per_minute", 120)

	// Read from environment variables
	v.SetEnvPrefix("MOODTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Platform-provided port takes the unprefixed name
	if err := v.BindEnv("server.port", "MOODTRACK_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("error binding server.port: %w", err)
	}

	// Read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// It's okay if config file doesn't exist
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Tracking.MaxPointsPerSubject <= 0 {
		return fmt.Errorf("tracking.max_points_per_subject must be positive, got %d", c.Tracking.MaxPointsPerSubject)
	}
	if c.Tracking.DefaultWindowDays <= 0 {
		return fmt.Errorf("tracking.default_window_days must be positive, got %d", c.Tracking.DefaultWindowDays)
	}
	if c.Tracking.CacheTTL < 0 {
		return fmt.Errorf("tracking.cache_ttl must not be negative, got %s", c.Tracking.CacheTTL)
	}
	if c.Tracking.PatternHistoryLimit <= 0 {
		return fmt.Errorf("tracking.pattern_history_limit must be positive, got %d", c.Tracking.PatternHistoryLimit)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}

	backend := strings.ToLower(c.Storage.Backend)
	valid := false
	for _, b := range storageBackends {
		if backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("storage.backend %q is not one of %s", c.Storage.Backend, strings.Join(storageBackends, ", "))
	}
	if (backend == "postgres" || backend == "mysql") && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the %s backend", backend)
	}
	c.Storage.Backend = backend

	return nil
}

// IsProduction reports whether the server runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
