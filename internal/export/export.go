package export

import (
	"context"
	"fmt"

	"github.com/rickgao/barsync/internal/database"
)

// Export writes the bars matching q to path with s and returns the row count.
func Export(ctx context.Context, store *database.Store, q database.BarQuery, s Saver, path string) (int, error) {
	bars, err := store.ListBars(ctx, q)
	if err != nil {
		return 0, err
	}

	if err := s.Save(bars, path); err != nil {
		return 0, fmt.Errorf("export %s: %w", s.Extension(), err)
	}
	return len(bars), nil
}
