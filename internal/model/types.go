package model

import (
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// Venue is the exchange an instrument is listed on.
type Venue string

const (
	VenueShanghai Venue = "SH"
	VenueShenzhen Venue = "SZ"
	VenueBeijing  Venue = "BJ"
	VenueUnknown  Venue = ""
)

// Instrument is an exchange-listed security.
type Instrument struct {
	Code      string // Unique key (e.g., "600519")
	Name      string // Display name, provider-supplied
	Venue     Venue  // Derived from Code, never assigned independently
	CreatedAt string // First insert (UTC)
	UpdatedAt string // Last upsert (UTC)
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Family is a bar cadence family: daily or intraday.
type Family string

const (
	FamilyDaily  Family = "daily"
	FamilyMinute Family = "minute"
)

// Cadence is the tag stored with each bar, e.g. "1d" or "30m".
type Cadence string

// CadenceDaily is the tag for daily bars.
const CadenceDaily Cadence = "1d"

// MinuteCadence returns the tag for an intraday period ("30" -> "30m").
func MinuteCadence(period string) Cadence {
	return Cadence(strings.TrimSpace(period) + "m")
}

// Bar is one canonical OHLCV row as produced by the normalizer.
type Bar struct {
	Time   string // Canonical time string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// StoredBar is a bar as persisted in the store.
type StoredBar struct {
	Code      string  `json:"code" parquet:"code"`
	Cadence   string  `json:"interval" parquet:"interval"`
	Time      string  `json:"time" parquet:"time"`
	Open      float64 `json:"open" parquet:"open"`
	High      float64 `json:"high" parquet:"high"`
	Low       float64 `json:"low" parquet:"low"`
	Close     float64 `json:"close" parquet:"close"`
	Volume    float64 `json:"volume" parquet:"volume"`
	CreatedAt string  `json:"created_at" parquet:"created_at"`
}

// -----------------------------------------------------------------------------
// Provider Types
// -----------------------------------------------------------------------------

// RawTable is a provider response before normalization. Column names are
// provider-specific and may be localized. Cells hold whatever the provider
// sent: json.Number, string, bool or nil.
type RawTable struct {
	Columns []string
	Rows    []map[string]any
}

// Len returns the number of rows.
func (t RawTable) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Run Types
// -----------------------------------------------------------------------------

// Mode selects which cadence families a run syncs.
type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeMinute Mode = "minute"
	ModeAll    Mode = "all"
)

// Families returns the cadence families requested by the mode, daily first.
func (m Mode) Families() []Family {
	switch m {
	case ModeDaily:
		return []Family{FamilyDaily}
	case ModeMinute:
		return []Family{FamilyMinute}
	case ModeAll:
		return []Family{FamilyDaily, FamilyMinute}
	}
	return nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return len(m.Families()) > 0
}

// ItemError records a failed (instrument, family) attempt.
type ItemError struct {
	Symbol string `json:"symbol"`
	Mode   string `json:"mode"`
	Error  string `json:"error"`
}

// Summary is the machine-readable result of one sync run.
type Summary struct {
	Mode       Mode        `json:"mode"`
	Stocks     int         `json:"stocks"`
	DailyRows  int         `json:"daily_rows"`
	MinuteRows int         `json:"minute_rows"`
	Errors     []ItemError `json:"errors"`
}

// NewSummary returns an empty summary whose error list encodes as [].
func NewSummary(mode Mode) *Summary {
	return &Summary{Mode: mode, Errors: []ItemError{}}
}

// SyncRun is a persisted record of a completed run.
type SyncRun struct {
	ID         string
	Mode       Mode
	StartedAt  string
	FinishedAt string
	Stocks     int
	DailyRows  int
	MinuteRows int
	Errors     []ItemError
}

// TimestampLayout is the layout of bookkeeping timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
