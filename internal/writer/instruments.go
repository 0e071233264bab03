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

const upsertInstrumentSQL = `
	INSERT INTO stocks (code, name, exchange, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (code) DO UPDATE SET
		name = excluded.name,
		exchange = excluded.exchange,
		updated_at = excluded.updated_at
`

// InstrumentWriter upserts instrument metadata.
type InstrumentWriter struct {
	dialect database.Dialect
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewInstrumentWriter creates an InstrumentWriter for stores of the given dialect.
func NewInstrumentWriter(dialect database.Dialect, logger *slog.Logger) *InstrumentWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentWriter{
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// Stats returns current metrics.
func (w *InstrumentWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Upsert inserts new instruments and refreshes name, venue and updated_at of
// existing ones, inside tx. created_at is only set on insert.
func (w *InstrumentWriter) Upsert(ctx context.Context, tx database.DBTX, instruments []model.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, w.dialect.Rebind(upsertInstrumentSQL))
	if err != nil {
		w.recordError()
		return fmt.Errorf("%w: prepare instrument upsert: %w", model.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	ts := model.FormatTimestamp(w.now())
	for _, in := range instruments {
		if _, err := stmt.ExecContext(ctx, in.Code, in.Name, string(in.Venue), ts, ts); err != nil {
			w.recordError()
			return fmt.Errorf("%w: upsert instrument %s: %w", model.ErrStoreUnavailable, in.Code, err)
		}
	}

	w.mu.Lock()
	w.metrics.Inserts += int64(len(instruments))
	w.metrics.Batches++
	w.mu.Unlock()

	w.logger.Debug("upserted instruments", "count", len(instruments))
	return nil
}

// UpsertTx runs Upsert in its own transaction on s.
func (w *InstrumentWriter) UpsertTx(ctx context.Context, s *database.Store, instruments []model.Instrument) error {
	return inTx(ctx, s, func(tx database.DBTX) error {
		return w.Upsert(ctx, tx, instruments)
	})
}

func (w *InstrumentWriter) recordError() {
	w.mu.Lock()
	w.metrics.Errors++
	w.mu.Unlock()
}
