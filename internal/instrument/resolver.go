package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/barsync/internal/model"
)

// Lister provides the provider's full instrument listing.
type Lister interface {
	ListInstruments(ctx context.Context) (model.RawTable, error)
}

// listingColumns maps provider listing headers onto canonical names.
var listingColumns = map[string]string{
	"item":  "code",
	"value": "name",
}

// Resolver produces the ordered instrument set for a run.
type Resolver struct {
	lister Lister
	logger *slog.Logger
}

// NewResolver creates a Resolver. lister may be nil when only explicit lists are resolved.
func NewResolver(lister Lister, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lister: lister, logger: logger}
}

// Resolve returns the explicit instruments when symbols is non-empty,
// otherwise the first limit instruments of the provider listing.
func (r *Resolver) Resolve(ctx context.Context, symbols []string, limit int) ([]model.Instrument, error) {
	if len(symbols) > 0 {
		instruments := Explicit(symbols)
		r.logger.Info("using explicit instruments", "count", len(instruments))
		return instruments, nil
	}
	return r.Discover(ctx, limit)
}

// Discover fetches the listing and keeps the first limit rows in provider
// order. A limit <= 0 keeps every row.
func (r *Resolver) Discover(ctx context.Context, limit int) ([]model.Instrument, error) {
	if r.lister == nil {
		return nil, fmt.Errorf("%w: no instrument listing configured", model.ErrProviderUnavailable)
	}

	r.logger.Info("fetching instrument listing")
	table, err := r.lister.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}

	instruments, err := FromListing(table)
	if err != nil {
		return nil, err
	}

	total := len(instruments)
	if limit > 0 && total > limit {
		instruments = instruments[:limit]
	}

	r.logger.Info("fetched instrument listing", "listed", total, "kept", len(instruments))
	return instruments, nil
}

// FromListing converts a provider listing into instruments.
func FromListing(table model.RawTable) ([]model.Instrument, error) {
	codeCol, ok := findColumn(table, "code")
	if !ok {
		return nil, fmt.Errorf("%w: missing column code in instrument listing", model.ErrSchemaMismatch)
	}
	nameCol, hasName := findColumn(table, "name")

	instruments := make([]model.Instrument, 0, table.Len())
	for _, row := range table.Rows {
		code := cellString(row[codeCol])
		name := ""
		if hasName {
			name = cellString(row[nameCol])
		}
		instruments = append(instruments, model.Instrument{
			Code:  code,
			Name:  name,
			Venue: InferVenue(code),
		})
	}
	return instruments, nil
}

// Explicit builds instruments from caller-supplied codes, preserving order.
func Explicit(codes []string) []model.Instrument {
	instruments := make([]model.Instrument, 0, len(codes))
	for _, code := range codes {
		instruments = append(instruments, model.Instrument{
			Code:  code,
			Name:  code,
			Venue: InferVenue(code),
		})
	}
	return instruments
}

// ParseSymbols splits a comma-separated code list, trimming blanks and
// dropping empty entries.
func ParseSymbols(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// findColumn returns the provider column that renames to canonical.
func findColumn(table model.RawTable, canonical string) (string, bool) {
	for _, c := range table.Columns {
		if c == canonical || listingColumns[c] == canonical {
			return c, true
		}
	}
	return "", false
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
