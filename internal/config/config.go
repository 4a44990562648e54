// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level streamd configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Workers   []WorkerEntry   `yaml:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 keeps SSE/WS attachments open indefinitely
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AuthToken       string        `yaml:"auth_token"` // static bearer token; empty disables auth
}

// SessionsConfig bounds live sessions.
type SessionsConfig struct {
	MaxLive      int           `yaml:"max_live"`      // concurrent session cap (0 = unlimited)
	MaxIdle      time.Duration `yaml:"max_idle"`      // sessions idle this long are closed
	TombstoneTTL time.Duration `yaml:"tombstone_ttl"` // how long terminated sessions stay queryable
}

// HistoryConfig controls persisted session summaries.
type HistoryConfig struct {
	DSN           string        `yaml:"dsn"` // SQLite file path or ":memory:"; empty disables history
	Retention     time.Duration `yaml:"retention"`
	FlushInterval time.Duration `yaml:"flush_interval"`
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

// WorkerEntry exposes one built-in worker over the API, with default options
// that session requests may override key by key. An empty workers list
// exposes every built-in worker with stock defaults.
type WorkerEntry struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv substitutes ${VAR} and ${VAR:-default} references with values
// from the environment. A reference that is unset and carries no default
// stays verbatim, so a missing variable shows up in the parsed config
// instead of silently becoming empty.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(ref []byte) []byte {
		groups := envPattern.FindSubmatch(ref)
		if val, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(val)
		}
		if groups[2] != nil {
			return groups[2]
		}
		return ref
	})
}

// Load reads the YAML file at path, expands environment references, and
// overlays the result on Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration streamd runs with when no file overrides
// anything.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 30 * time.Second,
		},
		Sessions: SessionsConfig{
			MaxLive:      256,
			MaxIdle:      10 * time.Minute,
			TombstoneTTL: 5 * time.Minute,
		},
		History: HistoryConfig{
			DSN:           "streamd.db",
			Retention:     7 * 24 * time.Hour,
			FlushInterval: 5 * time.Second,
		},
	}
}
