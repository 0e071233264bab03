package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc is a function adapter for Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Time between run starts (default: 24h)
	Timeout  time.Duration // Per-run timeout; 0 disables it
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 24 * time.Hour,
	}
}

// Stats is a snapshot of the poller's run history.
type Stats struct {
	Runs      int64
	Failures  int64
	LastRunAt time.Time
	LastErr   error
}

// Poller periodically runs a job.
type Poller struct {
	cfg    Config
	job    Job
	logger *slog.Logger

	runs     atomic.Int64
	failures atomic.Int64

	mu        sync.Mutex
	lastRunAt time.Time
	lastErr   error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, job Job, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Poller{
		cfg:    cfg,
		job:    job,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("sync scheduler started",
		"interval", p.cfg.Interval,
		"timeout", p.cfg.Timeout,
	)

	return nil
}

// Stop cancels any run in progress and waits for the loop to exit.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the run history.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Runs:      p.runs.Load(),
		Failures:  p.failures.Load(),
		LastRunAt: p.lastRunAt,
		LastErr:   p.lastErr,
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start.
	p.runOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runOnce()
		}
	}
}

// runOnce runs the job once under the configured timeout.
func (p *Poller) runOnce() {
	if p.ctx.Err() != nil {
		return
	}

	ctx := p.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.job.Run(ctx)

	p.runs.Add(1)
	if err != nil {
		p.failures.Add(1)
		p.logger.Error("scheduled sync failed", "err", err, "duration", time.Since(start))
	} else {
		p.logger.Info("scheduled sync complete", "duration", time.Since(start))
	}

	p.mu.Lock()
	p.lastRunAt = start
	p.lastErr = err
	p.mu.Unlock()
}
