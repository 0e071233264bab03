package syncer

import (
	"time"

	"github.com/rickgao/barsync/internal/config"
	"github.com/rickgao/barsync/internal/model"
)

// Default window sizes and intraday session bounds.
const (
	DefaultDailyLookback  = 365 * 24 * time.Hour
	DefaultMinuteLookback = 20 * 24 * time.Hour
	SessionOpen           = "09:30:00"
	SessionClose          = "15:00:00"
	DefaultPeriod         = config.DefaultPeriod
)

// Options configures a single run.
type Options struct {
	Mode    model.Mode
	Symbols []string // Explicit codes; empty means discover
	Limit   int      // Discovery cap; <= 0 keeps every listed instrument

	// Window bounds; empty means the default window.
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
	MinStart  string // YYYY-MM-DD HH:MM:SS
	MinEnd    string // YYYY-MM-DD HH:MM:SS

	Period string // Intraday period in minutes, e.g. "30"
}

// OptionsFromConfig builds run options from the sync section of the config.
func OptionsFromConfig(cfg config.SyncConfig) Options {
	return Options{
		Mode:      model.Mode(cfg.Mode),
		Symbols:   cfg.Symbols,
		Limit:     cfg.Limit,
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
		MinStart:  cfg.MinStart,
		MinEnd:    cfg.MinEnd,
		Period:    cfg.Period,
	}
}

// Windows holds the resolved fetch bounds of a run.
type Windows struct {
	DailyStart  string
	DailyEnd    string
	MinuteStart string
	MinuteEnd   string
}

// DefaultWindows returns the default bounds relative to the UTC date of now:
// daily [today-365d, today] and intraday [today-20d 09:30, today 15:00].
func DefaultWindows(now time.Time) Windows {
	today := now.UTC()
	return Windows{
		DailyStart:  today.Add(-DefaultDailyLookback).Format(config.DateLayout),
		DailyEnd:    today.Format(config.DateLayout),
		MinuteStart: today.Add(-DefaultMinuteLookback).Format("2006-01-02") + " " + SessionOpen,
		MinuteEnd:   today.Format("2006-01-02") + " " + SessionClose,
	}
}

// Windows resolves the run's bounds; each explicit bound overrides its
// default independently.
func (o Options) Windows(now time.Time) Windows {
	w := DefaultWindows(now)
	if o.StartDate != "" {
		w.DailyStart = o.StartDate
	}
	if o.EndDate != "" {
		w.DailyEnd = o.EndDate
	}
	if o.MinStart != "" {
		w.MinuteStart = o.MinStart
	}
	if o.MinEnd != "" {
		w.MinuteEnd = o.MinEnd
	}
	return w
}

func (o Options) period() string {
	if o.Period == "" {
		return DefaultPeriod
	}
	return o.Period
}
