package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ptyhub/ptyhub/pkg/hub/store"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applySessionsDefaults(&cfg.Sessions)
	applyPersistenceDefaults(&cfg.Persistence)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyServerDefaults sets listener defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 4220
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.RateLimit.Capacity == 0 {
		cfg.RateLimit.Capacity = 100
	}
	if cfg.RateLimit.RefillInterval == 0 {
		cfg.RateLimit.RefillInterval = 10 * time.Millisecond
	}
}

// applySessionsDefaults sets session manager defaults.
func applySessionsDefaults(cfg *SessionsConfig) {
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = 10
	}
	// IdleTimeout default stays zero: reaping is opt-in.

	if cfg.DefaultShell == "" {
		if shell := os.Getenv("SHELL"); shell != "" {
			cfg.DefaultShell = shell
		} else {
			cfg.DefaultShell = "/bin/bash"
		}
	}
	if cfg.DefaultCols == 0 {
		cfg.DefaultCols = 80
	}
	if cfg.DefaultRows == 0 {
		cfg.DefaultRows = 24
	}
}

// applyPersistenceDefaults sets persistence defaults.
func applyPersistenceDefaults(cfg *PersistenceConfig) {
	if cfg.ScrollbackLines == 0 {
		cfg.ScrollbackLines = 10000
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	cfg.Database.ApplyDefaults()

	// Keep the sqlite file inside the data dir unless the user pointed
	// it somewhere else.
	if cfg.Database.Type == store.DatabaseTypeSQLite && cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = filepath.Join(cfg.DataDir, "ptyhub.db")
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// defaultDataDir returns $XDG_DATA_HOME/ptyhub, falling back to
// ~/.local/share/ptyhub.
func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "ptyhub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "ptyhub")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Persistence: PersistenceConfig{
			Database: store.Config{
				Type: store.DatabaseTypeSQLite, // Default to SQLite for single-node
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
