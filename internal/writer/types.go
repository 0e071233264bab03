package writer

import (
	"context"
	"fmt"

	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/model"
)

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Inserts int64 // Rows written
	Deletes int64 // Rows removed by span overwrite
	Batches int64 // Successful write calls
	Errors  int64 // Failed write calls
}

// inTx runs fn in a fresh transaction on s and commits it.
func inTx(ctx context.Context, s *database.Store, fn func(database.DBTX) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", model.ErrStoreUnavailable, err)
	}
	return nil
}
