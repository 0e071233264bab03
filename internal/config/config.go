package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config is the root configuration for barsync.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig holds AKTools gateway settings.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"` // 0 disables retries
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	Adjust       string        `yaml:"adjust"` // "", "qfq" or "hfq"
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	Driver   string   `yaml:"driver"` // sqlite or postgres
	Path     string   `yaml:"path"`   // SQLite database file
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SyncConfig describes what a run synchronizes.
type SyncConfig struct {
	Mode      string   `yaml:"mode"`       // daily, minute or all
	Symbols   []string `yaml:"symbols"`    // explicit codes; empty means discover
	Limit     int      `yaml:"limit"`      // discovery prefix size; negative means no limit
	StartDate string   `yaml:"start_date"` // daily window start, YYYYMMDD
	EndDate   string   `yaml:"end_date"`   // daily window end, YYYYMMDD
	MinStart  string   `yaml:"min_start"`  // intraday window start, YYYY-MM-DD HH:MM:SS
	MinEnd    string   `yaml:"min_end"`    // intraday window end, YYYY-MM-DD HH:MM:SS
	Period    string   `yaml:"period"`     // intraday period: 1, 5, 15, 30, 60
}

// DaemonConfig holds settings for repeated runs.
type DaemonConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port     int    `yaml:"port"`
	Path     string `yaml:"path"`
	Textfile string `yaml:"textfile"` // node_exporter textfile target; empty disables
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name to a slog.Level.
// Unknown names map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
