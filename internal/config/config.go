// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Database   DatabaseConfig  `yaml:"database"`
	Auth       AuthConfig      `yaml:"auth"`
	Cache      CacheConfig     `yaml:"cache"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Categories []CategoryEntry `yaml:"categories"`
	Users      []UserEntry     `yaml:"users"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// CacheConfig holds read-cache settings.
type CacheConfig struct {
	// Backend selects the key-value backend: "memory" or "redis".
	Backend string        `yaml:"backend"`
	MaxSize int           `yaml:"max_size"` // memory backend capacity
	Redis   RedisConfig   `yaml:"redis"`
	TTL     TTLConfig     `yaml:"ttl"`
	Breaker BreakerConfig `yaml:"breaker"`
	Janitor JanitorConfig `yaml:"janitor"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TTLConfig overrides the per-namespace cache lifetimes. Zero keeps the
// built-in default for that namespace.
type TTLConfig struct {
	Listings   time.Duration `yaml:"listings"`
	Categories time.Duration `yaml:"categories"`
	Search     time.Duration `yaml:"search"`
	Profile    time.Duration `yaml:"profile"`
}

// BreakerConfig controls the circuit breaker wrapped around a remote cache
// backend. It is ignored for the memory backend.
type BreakerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ErrorThreshold float64       `yaml:"error_threshold"`
	MinSamples     int           `yaml:"min_samples"`
	WindowSeconds  int           `yaml:"window_seconds"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
}

// JanitorConfig controls the background sweep of logically expired entries.
type JanitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // file path or ":memory:"
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	AdminKey string `yaml:"admin_key"` // key for /admin endpoints; empty disables them
}

// CategoryEntry is a category seed in the config file. Children reference
// their parent by slug, so parents must be listed first.
type CategoryEntry struct {
	Name       string `yaml:"name"`
	Slug       string `yaml:"slug"`
	ParentSlug string `yaml:"parent_slug"`
	Position   int    `yaml:"position"`
}

// UserEntry is a demo user seed in the config file.
type UserEntry struct {
	UserID      int64  `yaml:"user_id"`
	Username    string `yaml:"username"`
	DisplayName string `yaml:"display_name"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "lavka.db",
		},
		Cache: CacheConfig{
			Backend: "memory",
			MaxSize: 100_000,
			Breaker: BreakerConfig{
				Enabled:        true,
				ErrorThreshold: 0.5,
				MinSamples:     5,
				WindowSeconds:  30,
				OpenTimeout:    10 * time.Second,
			},
			Janitor: JanitorConfig{
				Enabled:  true,
				Interval: time.Minute,
			},
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return cfg, nil
}
