package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/model"
)

const (
	deleteSpanSQL = `
		DELETE FROM k_lines
		WHERE stock_code = ? AND "interval" = ? AND time BETWEEN ? AND ?
	`
	insertBarSQL = `
		INSERT INTO k_lines (stock_code, "interval", time, open, high, low, close, volume, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
)

// BarWriter overwrites stored bars with freshly fetched batches.
type BarWriter struct {
	dialect database.Dialect
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewBarWriter creates a BarWriter for stores of the given dialect.
func NewBarWriter(dialect database.Dialect, logger *slog.Logger) *BarWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BarWriter{
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// Stats returns current metrics.
func (w *BarWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Span returns the lexicographic min and max of the batch's times.
func Span(bars []model.Bar) (start, end string) {
	if len(bars) == 0 {
		return "", ""
	}
	start, end = bars[0].Time, bars[0].Time
	for _, b := range bars[1:] {
		if b.Time < start {
			start = b.Time
		}
		if b.Time > end {
			end = b.Time
		}
	}
	return start, end
}

// Reconcile replaces every stored bar of (code, cadence) whose time falls in
// the batch's [min, max] span with the batch, inside tx. It returns the number
// of rows inserted. An empty batch is a no-op.
func (w *BarWriter) Reconcile(ctx context.Context, tx database.DBTX, code string, cadence model.Cadence, bars []model.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	start := time.Now()
	first, last := Span(bars)

	res, err := tx.ExecContext(ctx, w.dialect.Rebind(deleteSpanSQL), code, string(cadence), first, last)
	if err != nil {
		w.recordError()
		return 0, fmt.Errorf("%w: delete %s %s bars: %w", model.ErrStoreUnavailable, code, cadence, err)
	}
	deleted, _ := res.RowsAffected()

	inserted, err := w.insert(ctx, tx, code, cadence, bars)
	if err != nil {
		w.recordError()
		return 0, err
	}

	w.mu.Lock()
	w.metrics.Inserts += int64(inserted)
	w.metrics.Deletes += deleted
	w.metrics.Batches++
	w.mu.Unlock()

	w.logger.Debug("reconciled bars",
		"code", code,
		"interval", cadence,
		"start", first,
		"end", last,
		"deleted", deleted,
		"inserted", inserted,
		"duration", time.Since(start),
	)
	return inserted, nil
}

// ReconcileTx runs Reconcile in its own transaction on s.
func (w *BarWriter) ReconcileTx(ctx context.Context, s *database.Store, code string, cadence model.Cadence, bars []model.Bar) (int, error) {
	var n int
	err := inTx(ctx, s, func(tx database.DBTX) error {
		var err error
		n, err = w.Reconcile(ctx, tx, code, cadence, bars)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (w *BarWriter) insert(ctx context.Context, tx database.DBTX, code string, cadence model.Cadence, bars []model.Bar) (int, error) {
	stmt, err := tx.PrepareContext(ctx, w.dialect.Rebind(insertBarSQL))
	if err != nil {
		return 0, fmt.Errorf("%w: prepare bar insert: %w", model.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	createdAt := model.FormatTimestamp(w.now())
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			code, string(cadence), b.Time,
			b.Open, b.High, b.Low, b.Close, b.Volume,
			createdAt,
		); err != nil {
			return 0, fmt.Errorf("%w: insert %s %s bar %s: %w", model.ErrStoreUnavailable, code, cadence, b.Time, err)
		}
	}
	return len(bars), nil
}

func (w *BarWriter) recordError() {
	w.mu.Lock()
	w.metrics.Errors++
	w.mu.Unlock()
}
