package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rickgao/barsync/internal/model"
)

// GetInstrument returns the stored instrument with the given code.
func (s *Store) GetInstrument(ctx context.Context, code string) (model.Instrument, bool, error) {
	row := s.DB.QueryRowContext(ctx, s.Rebind(`
		SELECT code, COALESCE(name, ''), COALESCE(exchange, ''), COALESCE(created_at, ''), COALESCE(updated_at, '')
		FROM stocks WHERE code = ?
	`), code)

	var in model.Instrument
	var venue string
	err := row.Scan(&in.Code, &in.Name, &venue, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Instrument{}, false, nil
		}
		return model.Instrument{}, false, fmt.Errorf("%w: get instrument %s: %w", model.ErrStoreUnavailable, code, err)
	}
	in.Venue = model.Venue(venue)
	return in, true, nil
}

// BarQuery filters stored bars. Empty fields match everything; From and To
// bound time inclusively.
type BarQuery struct {
	Code    string
	Cadence string
	From    string
	To      string
}

// ListBars returns stored bars ordered by code, cadence and time.
func (s *Store) ListBars(ctx context.Context, q BarQuery) ([]model.StoredBar, error) {
	var where []string
	var args []any
	if q.Code != "" {
		where = append(where, "stock_code = ?")
		args = append(args, q.Code)
	}
	if q.Cadence != "" {
		where = append(where, `"interval" = ?`)
		args = append(args, q.Cadence)
	}
	if q.From != "" {
		where = append(where, "time >= ?")
		args = append(args, q.From)
	}
	if q.To != "" {
		where = append(where, "time <= ?")
		args = append(args, q.To)
	}

	query := `SELECT stock_code, "interval", time, open, high, low, close, volume, COALESCE(created_at, '') FROM k_lines`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY stock_code, "interval", time`

	rows, err := s.DB.QueryContext(ctx, s.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list bars: %w", model.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var bars []model.StoredBar
	for rows.Next() {
		var b model.StoredBar
		if err := rows.Scan(&b.Code, &b.Cadence, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan bar: %w", model.ErrStoreUnavailable, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list bars: %w", model.ErrStoreUnavailable, err)
	}
	return bars, nil
}

// RecordRun persists a completed run.
func (s *Store) RecordRun(ctx context.Context, run model.SyncRun) error {
	errs := run.Errors
	if errs == nil {
		errs = []model.ItemError{}
	}
	errJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, s.Rebind(`
		INSERT INTO sync_runs (id, mode, started_at, finished_at, stocks, daily_rows, minute_rows, error_count, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID, string(run.Mode), run.StartedAt, run.FinishedAt,
		run.Stocks, run.DailyRows, run.MinuteRows, len(errs), string(errJSON))
	if err != nil {
		return fmt.Errorf("%w: record run %s: %w", model.ErrStoreUnavailable, run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, s.Rebind(`
		SELECT id, mode, started_at, finished_at, stocks, daily_rows, minute_rows, errors
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", model.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var r model.SyncRun
		var mode, errJSON string
		if err := rows.Scan(&r.ID, &mode, &r.StartedAt, &r.FinishedAt, &r.Stocks, &r.DailyRows, &r.MinuteRows, &errJSON); err != nil {
			return nil, fmt.Errorf("%w: scan run: %w", model.ErrStoreUnavailable, err)
		}
		r.Mode = model.Mode(mode)
		if errJSON != "" {
			if err := json.Unmarshal([]byte(errJSON), &r.Errors); err != nil {
				return nil, fmt.Errorf("decode run %s errors: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", model.ErrStoreUnavailable, err)
	}
	return runs, nil
}
