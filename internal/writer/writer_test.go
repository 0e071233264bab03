package writer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/model"
)

func openTestStore(t *testing.T) *database.Store {
	t.Helper()
	ctx := context.Background()
	s, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "stock.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := database.EnsureSchema(ctx, s); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return s
}

func bar(ts string, close float64) model.Bar {
	return model.Bar{Time: ts, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func storedTimes(t *testing.T, s *database.Store, code string, cadence model.Cadence) []string {
	t.Helper()
	bars, err := s.ListBars(context.Background(), database.BarQuery{Code: code, Cadence: string(cadence)})
	if err != nil {
		t.Fatalf("ListBars failed: %v", err)
	}
	times := make([]string, len(bars))
	for i, b := range bars {
		times[i] = b.Time
	}
	return times
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSpan(t *testing.T) {
	start, end := Span([]model.Bar{bar("2024-01-03", 1), bar("2024-01-01", 1), bar("2024-01-05", 1)})
	if start != "2024-01-01" || end != "2024-01-05" {
		t.Errorf("Span() = %q, %q", start, end)
	}

	start, end = Span(nil)
	if start != "" || end != "" {
		t.Errorf("Span(nil) = %q, %q", start, end)
	}
}

func TestBarWriter_ReconcileEmpty(t *testing.T) {
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)

	// A closed store proves no statement is executed.
	s.Close()

	n, err := w.Reconcile(context.Background(), s.DB, "600519", model.CadenceDaily, nil)
	if err != nil {
		t.Fatalf("Reconcile(empty) error = %v", err)
	}
	if n != 0 {
		t.Errorf("Reconcile(empty) = %d, want 0", n)
	}
	if stats := w.Stats(); stats.Batches != 0 || stats.Errors != 0 {
		t.Errorf("Stats() = %+v, want zero", stats)
	}
}

func TestBarWriter_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)

	batch := []model.Bar{bar("2024-01-02", 10), bar("2024-01-03", 11), bar("2024-01-04", 12)}

	for i := 0; i < 3; i++ {
		n, err := w.ReconcileTx(ctx, s, "600519", model.CadenceDaily, batch)
		if err != nil {
			t.Fatalf("ReconcileTx #%d error = %v", i, err)
		}
		if n != 3 {
			t.Errorf("ReconcileTx #%d = %d, want 3", i, n)
		}
	}

	got := storedTimes(t, s, "600519", model.CadenceDaily)
	want := []string{"2024-01-02", "2024-01-03", "2024-01-04"}
	if !equalStrings(got, want) {
		t.Errorf("stored = %v, want %v", got, want)
	}

	stats := w.Stats()
	if stats.Batches != 3 || stats.Inserts != 9 || stats.Deletes != 6 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestBarWriter_SpanOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)

	initial := []model.Bar{bar("2024-01-01", 1), bar("2024-01-02", 2), bar("2024-01-05", 5)}
	if _, err := w.ReconcileTx(ctx, s, "000001", model.CadenceDaily, initial); err != nil {
		t.Fatalf("initial ReconcileTx error = %v", err)
	}

	// Another cadence and code share the table but must not be touched.
	if _, err := w.ReconcileTx(ctx, s, "000001", model.Cadence("30m"), []model.Bar{bar("2024-01-03 10:00:00", 1)}); err != nil {
		t.Fatalf("minute ReconcileTx error = %v", err)
	}
	if _, err := w.ReconcileTx(ctx, s, "600519", model.CadenceDaily, []model.Bar{bar("2024-01-03", 1)}); err != nil {
		t.Fatalf("other code ReconcileTx error = %v", err)
	}

	update := []model.Bar{bar("2024-01-04", 40), bar("2024-01-02", 20), bar("2024-01-03", 30)}
	n, err := w.ReconcileTx(ctx, s, "000001", model.CadenceDaily, update)
	if err != nil {
		t.Fatalf("update ReconcileTx error = %v", err)
	}
	if n != 3 {
		t.Errorf("update ReconcileTx = %d, want 3", n)
	}

	got := storedTimes(t, s, "000001", model.CadenceDaily)
	want := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	if !equalStrings(got, want) {
		t.Errorf("stored = %v, want %v", got, want)
	}

	bars, err := s.ListBars(ctx, database.BarQuery{Code: "000001", Cadence: "1d", From: "2024-01-02", To: "2024-01-02"})
	if err != nil {
		t.Fatalf("ListBars failed: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 20 {
		t.Errorf("2024-01-02 = %+v, want single bar with close 20", bars)
	}

	if got := storedTimes(t, s, "000001", model.Cadence("30m")); len(got) != 1 {
		t.Errorf("minute bars = %v, want 1", got)
	}
	if got := storedTimes(t, s, "600519", model.CadenceDaily); len(got) != 1 {
		t.Errorf("other code bars = %v, want 1", got)
	}
}

func TestBarWriter_InteriorGapDeletes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)

	initial := []model.Bar{bar("2024-01-02", 1), bar("2024-01-03", 1), bar("2024-01-04", 1)}
	if _, err := w.ReconcileTx(ctx, s, "000001", model.CadenceDaily, initial); err != nil {
		t.Fatalf("ReconcileTx error = %v", err)
	}

	gapped := []model.Bar{bar("2024-01-02", 2), bar("2024-01-04", 2)}
	if _, err := w.ReconcileTx(ctx, s, "000001", model.CadenceDaily, gapped); err != nil {
		t.Fatalf("ReconcileTx error = %v", err)
	}

	got := storedTimes(t, s, "000001", model.CadenceDaily)
	want := []string{"2024-01-02", "2024-01-04"}
	if !equalStrings(got, want) {
		t.Errorf("stored = %v, want %v", got, want)
	}
}

func TestBarWriter_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := w.Reconcile(ctx, tx, "000001", model.CadenceDaily, []model.Bar{bar("2024-01-02", 1)}); err != nil {
		t.Fatalf("Reconcile error = %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if got := storedTimes(t, s, "000001", model.CadenceDaily); len(got) != 0 {
		t.Errorf("stored after rollback = %v, want none", got)
	}
}

func TestBarWriter_CreatedAt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)
	w.now = func() time.Time { return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC) }

	if _, err := w.ReconcileTx(ctx, s, "000001", model.CadenceDaily, []model.Bar{bar("2024-01-02", 1)}); err != nil {
		t.Fatalf("ReconcileTx error = %v", err)
	}

	bars, err := s.ListBars(ctx, database.BarQuery{Code: "000001"})
	if err != nil {
		t.Fatalf("ListBars failed: %v", err)
	}
	if len(bars) != 1 || bars[0].CreatedAt != "2024-01-02 15:04:05" {
		t.Errorf("bars = %+v", bars)
	}
}

func TestBarWriter_StoreError(t *testing.T) {
	s := openTestStore(t)
	w := NewBarWriter(s.Dialect, nil)
	s.Close()

	_, err := w.Reconcile(context.Background(), s.DB, "000001", model.CadenceDaily, []model.Bar{bar("2024-01-02", 1)})
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("Reconcile error = %v, want ErrStoreUnavailable", err)
	}
	if stats := w.Stats(); stats.Errors != 1 {
		t.Errorf("Stats().Errors = %d, want 1", stats.Errors)
	}
}

func TestInstrumentWriter_Upsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewInstrumentWriter(s.Dialect, nil)

	t1 := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return t1 }
	first := []model.Instrument{
		{Code: "600519", Name: "600519", Venue: model.VenueShanghai},
		{Code: "000001", Name: "平安银行", Venue: model.VenueShenzhen},
	}
	if err := w.UpsertTx(ctx, s, first); err != nil {
		t.Fatalf("UpsertTx error = %v", err)
	}

	t2 := t1.Add(24 * time.Hour)
	w.now = func() time.Time { return t2 }
	second := []model.Instrument{{Code: "600519", Name: "贵州茅台", Venue: model.VenueShanghai}}
	if err := w.UpsertTx(ctx, s, second); err != nil {
		t.Fatalf("UpsertTx error = %v", err)
	}

	got, ok, err := s.GetInstrument(ctx, "600519")
	if err != nil || !ok {
		t.Fatalf("GetInstrument = %v, %v", ok, err)
	}
	if got.Name != "贵州茅台" {
		t.Errorf("Name = %q, want 贵州茅台", got.Name)
	}
	if got.Venue != model.VenueShanghai {
		t.Errorf("Venue = %q, want SH", got.Venue)
	}
	if got.CreatedAt != "2024-01-01 08:00:00" {
		t.Errorf("CreatedAt = %q, want first insert time", got.CreatedAt)
	}
	if got.UpdatedAt != "2024-01-02 08:00:00" {
		t.Errorf("UpdatedAt = %q, want second upsert time", got.UpdatedAt)
	}

	other, ok, err := s.GetInstrument(ctx, "000001")
	if err != nil || !ok {
		t.Fatalf("GetInstrument = %v, %v", ok, err)
	}
	if other.UpdatedAt != "2024-01-01 08:00:00" {
		t.Errorf("untouched UpdatedAt = %q", other.UpdatedAt)
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM stocks").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("stocks count = %d, want 2", count)
	}
}

func TestInstrumentWriter_UnknownVenue(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	w := NewInstrumentWriter(s.Dialect, nil)

	if err := w.UpsertTx(ctx, s, []model.Instrument{{Code: "A1234", Name: "A1234"}}); err != nil {
		t.Fatalf("UpsertTx error = %v", err)
	}

	got, ok, err := s.GetInstrument(ctx, "A1234")
	if err != nil || !ok {
		t.Fatalf("GetInstrument = %v, %v", ok, err)
	}
	if got.Venue != model.VenueUnknown {
		t.Errorf("Venue = %q, want empty", got.Venue)
	}
}

func TestInstrumentWriter_Empty(t *testing.T) {
	s := openTestStore(t)
	w := NewInstrumentWriter(s.Dialect, nil)
	s.Close()

	if err := w.Upsert(context.Background(), s.DB, nil); err != nil {
		t.Errorf("Upsert(nil) error = %v", err)
	}
}
