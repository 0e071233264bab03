package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultBaseURL         = "http://127.0.0.1:8080"
	DefaultProviderTimeout = 60 * time.Second
	DefaultRetryBackoff    = time.Second
	DefaultDriver          = "sqlite"
	DefaultDBPath          = "data/stock.db"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultMode            = "all"
	DefaultLimit           = 50
	DefaultPeriod          = "30"
	DefaultDaemonInterval  = 24 * time.Hour
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
)

// ApplyDefaults fills every unset field. DB_PATH, when set, seeds the SQLite path.
func (c *Config) ApplyDefaults() {
	// Provider defaults
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultBaseURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.RetryBackoff == 0 {
		c.Provider.RetryBackoff = DefaultRetryBackoff
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.Path == "" {
		c.Database.Path = os.Getenv("DB_PATH")
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDBPath
	}
	applyDBDefaults(&c.Database.Postgres)

	// Sync defaults
	if c.Sync.Mode == "" {
		c.Sync.Mode = DefaultMode
	}
	if c.Sync.Limit == 0 {
		c.Sync.Limit = DefaultLimit
	}
	if c.Sync.Period == "" {
		c.Sync.Period = DefaultPeriod
	}

	// Daemon defaults
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = DefaultDaemonInterval
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
