package config

import (
	"errors"
	"fmt"
	"time"
)

// Layouts accepted for explicit sync windows.
const (
	DateLayout     = "20060102"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// MaxRetries bounds provider.max_retries.
const MaxRetries = 10

var validPeriods = map[string]bool{"1": true, "5": true, "15": true, "30": true, "60": true}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if c.Provider.MaxRetries < 0 || c.Provider.MaxRetries > MaxRetries {
		return fmt.Errorf("provider.max_retries must be between 0 and %d, got %d", MaxRetries, c.Provider.MaxRetries)
	}
	switch c.Provider.Adjust {
	case "", "qfq", "hfq":
	default:
		return fmt.Errorf("provider.adjust must be one of \"\", qfq, hfq, got %q", c.Provider.Adjust)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required")
		}
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if err := c.Sync.validate(); err != nil {
		return err
	}

	if c.Daemon.Interval <= 0 {
		return errors.New("daemon.interval must be > 0")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (s *SyncConfig) validate() error {
	switch s.Mode {
	case "daily", "minute", "all":
	default:
		return fmt.Errorf("sync.mode must be daily, minute or all, got %q", s.Mode)
	}
	if !validPeriods[s.Period] {
		return fmt.Errorf("sync.period must be one of 1, 5, 15, 30, 60, got %q", s.Period)
	}
	if s.Limit < -1 {
		return fmt.Errorf("sync.limit must be >= -1, got %d", s.Limit)
	}
	if err := checkLayout("sync.start_date", s.StartDate, DateLayout); err != nil {
		return err
	}
	if err := checkLayout("sync.end_date", s.EndDate, DateLayout); err != nil {
		return err
	}
	if err := checkLayout("sync.min_start", s.MinStart, DateTimeLayout); err != nil {
		return err
	}
	return checkLayout("sync.min_end", s.MinEnd, DateTimeLayout)
}

func checkLayout(field, value, layout string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(layout, value); err != nil {
		return fmt.Errorf("%s %q does not match layout %s", field, value, layout)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
