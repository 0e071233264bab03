package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/instrument"
	"github.com/rickgao/barsync/internal/model"
	"github.com/rickgao/barsync/internal/normalize"
	"github.com/rickgao/barsync/internal/writer"
)

// Provider is the market data source of a run.
type Provider interface {
	instrument.Lister
	FetchDailyBars(ctx context.Context, code, start, end string) (model.RawTable, error)
	FetchMinuteBars(ctx context.Context, code, start, end, period string) (model.RawTable, error)
}

// Recorder observes finished runs. err is nil for successful runs.
type Recorder interface {
	ObserveRun(summary *model.Summary, duration time.Duration, err error)
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRecorder sets the run observer.
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) {
		s.recorder = r
	}
}

// WithClock overrides the clock used for default windows and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// Syncer runs the sync pipeline against one store and one provider.
type Syncer struct {
	store       *database.Store
	provider    Provider
	resolver    *instrument.Resolver
	bars        *writer.BarWriter
	instruments *writer.InstrumentWriter
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Syncer. The caller owns store and closes it after the last run.
func New(store *database.Store, provider Provider, logger *slog.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		store:       store,
		provider:    provider,
		resolver:    instrument.NewResolver(provider, logger),
		bars:        writer.NewBarWriter(store.Dialect, logger),
		instruments: writer.NewInstrumentWriter(store.Dialect, logger),
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BarStats returns the bar writer's counters.
func (s *Syncer) BarStats() writer.WriterMetrics {
	return s.bars.Stats()
}

// Run executes one sync and returns its summary.
//
// On context cancellation the summary of the instruments committed so far is
// returned together with the context error. Any other error is fatal and
// the summary is nil.
func (s *Syncer) Run(ctx context.Context, opts Options) (*model.Summary, error) {
	started := s.now()
	summary, err := s.run(ctx, opts, started)

	if s.recorder != nil {
		s.recorder.ObserveRun(summary, s.now().Sub(started), err)
	}
	return summary, err
}

func (s *Syncer) run(ctx context.Context, opts Options, started time.Time) (*model.Summary, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q", opts.Mode)
	}

	if err := database.EnsureSchema(ctx, s.store); err != nil {
		return nil, err
	}

	instruments, err := s.resolver.Resolve(ctx, opts.Symbols, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("resolve instruments: %w", err)
	}

	if err := s.instruments.UpsertTx(ctx, s.store, instruments); err != nil {
		return nil, err
	}

	summary := model.NewSummary(opts.Mode)
	summary.Stocks = len(instruments)

	windows := opts.Windows(started)
	s.logger.Info("sync started",
		"mode", opts.Mode,
		"instruments", len(instruments),
		"daily_window", windows.DailyStart+"-"+windows.DailyEnd,
		"minute_window", windows.MinuteStart+" - "+windows.MinuteEnd,
		"period", opts.period(),
	)

	for i, in := range instruments {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("sync cancelled", "completed", i, "total", len(instruments))
			return summary, err
		}

		outcomes, err := s.syncInstrument(ctx, in.Code, opts, windows)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.logger.Warn("sync cancelled", "code", in.Code, "completed", i, "total", len(instruments))
				return summary, ctxErr
			}
			return nil, err
		}

		for _, o := range outcomes {
			o.Fold(summary)
		}

		s.logger.Info("synced instrument",
			"code", in.Code,
			"progress", fmt.Sprintf("%d/%d", i+1, len(instruments)),
		)
	}

	s.finish(ctx, summary, started)
	return summary, nil
}

// syncInstrument runs every requested family for code in one transaction.
// A returned error means nothing for code was committed.
func (s *Syncer) syncInstrument(ctx context.Context, code string, opts Options, w Windows) ([]Outcome, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	families := opts.Mode.Families()
	outcomes := make([]Outcome, 0, len(families))
	for _, family := range families {
		o, err := s.syncFamily(ctx, tx, code, family, opts, w)
		if err != nil {
			s.rollback(tx)
			return nil, err
		}
		outcomes = append(outcomes, o)
	}

	if err := ctx.Err(); err != nil {
		s.rollback(tx)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit %s: %w", model.ErrStoreUnavailable, code, err)
	}
	return outcomes, nil
}

// syncFamily fetches, normalizes and reconciles one family. Provider and
// schema failures land in the outcome; the error return is for store failures.
func (s *Syncer) syncFamily(ctx context.Context, tx database.DBTX, code string, family model.Family, opts Options, w Windows) (Outcome, error) {
	o := Outcome{Code: code, Family: family}

	var (
		raw     model.RawTable
		cadence model.Cadence
		err     error
	)
	switch family {
	case model.FamilyDaily:
		cadence = model.CadenceDaily
		raw, err = s.provider.FetchDailyBars(ctx, code, w.DailyStart, w.DailyEnd)
	case model.FamilyMinute:
		cadence = model.MinuteCadence(opts.period())
		raw, err = s.provider.FetchMinuteBars(ctx, code, w.MinuteStart, w.MinuteEnd, opts.period())
	default:
		o.Err = fmt.Errorf("unknown cadence family %q", family)
		return o, nil
	}
	if err != nil {
		s.logger.Warn("fetch failed", "code", code, "mode", family, "err", err)
		o.Err = err
		return o, nil
	}

	bars, err := normalize.Normalize(raw, family)
	if err != nil {
		s.logger.Warn("normalize failed", "code", code, "mode", family, "err", err)
		o.Err = err
		return o, nil
	}

	n, err := s.bars.Reconcile(ctx, tx, code, cadence, bars)
	if err != nil {
		return o, err
	}
	o.Rows = n
	return o, nil
}

// finish records the run. Failures are logged and do not fail the run.
func (s *Syncer) finish(ctx context.Context, summary *model.Summary, started time.Time) {
	finished := s.now()
	run := model.SyncRun{
		ID:         uuid.NewString(),
		Mode:       summary.Mode,
		StartedAt:  model.FormatTimestamp(started),
		FinishedAt: model.FormatTimestamp(finished),
		Stocks:     summary.Stocks,
		DailyRows:  summary.DailyRows,
		MinuteRows: summary.MinuteRows,
		Errors:     summary.Errors,
	}

	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Warn("failed to record run", "run_id", run.ID, "err", err)
	}

	s.logger.Info("sync complete",
		"run_id", run.ID,
		"stocks", summary.Stocks,
		"daily_rows", summary.DailyRows,
		"minute_rows", summary.MinuteRows,
		"errors", len(summary.Errors),
		"duration", finished.Sub(started),
	)
}

type rollbacker interface {
	Rollback() error
}

func (s *Syncer) rollback(tx rollbacker) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Warn("rollback failed", "err", err)
	}
}
