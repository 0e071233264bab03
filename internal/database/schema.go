package database

import (
	"context"
	"fmt"

	"github.com/rickgao/barsync/internal/model"
)

// Table and index names.
const (
	TableInstruments = "stocks"
	TableBars        = "k_lines"
	TableRuns        = "sync_runs"
	IndexBarsKey     = "idx_k_lines_code_interval_time"
)

// schemaStatements returns the DDL for d. Every statement is a no-op when the
// object already exists.
func schemaStatements(d Dialect) []string {
	idType, floatType := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL"
	if d == Postgres {
		idType, floatType = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION"
	}

	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS stocks (
			id %s,
			code TEXT UNIQUE,
			name TEXT,
			exchange TEXT,
			created_at TEXT,
			updated_at TEXT
		)`, idType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS k_lines (
			id %s,
			stock_code TEXT,
			"interval" TEXT,
			time TEXT,
			open %[2]s,
			high %[2]s,
			low %[2]s,
			close %[2]s,
			volume %[2]s,
			created_at TEXT
		)`, idType, floatType),
		`
		CREATE INDEX IF NOT EXISTS idx_k_lines_code_interval_time
			ON k_lines(stock_code, "interval", time)`,
		`
		CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			mode TEXT,
			started_at TEXT,
			finished_at TEXT,
			stocks INTEGER,
			daily_rows INTEGER,
			minute_rows INTEGER,
			error_count INTEGER,
			errors TEXT
		)`,
	}
}

// EnsureSchema creates the instrument, bar and run relations and the bar
// lookup index if they are absent. It never drops or alters existing data.
func EnsureSchema(ctx context.Context, s *Store) error {
	for _, stmt := range schemaStatements(s.Dialect) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %w", model.ErrStoreUnavailable, err)
		}
	}
	return nil
}
