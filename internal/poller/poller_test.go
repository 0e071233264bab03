package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoller_RunOnce(t *testing.T) {
	var calls atomic.Int32
	job := JobFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	p := New(Config{Interval: time.Hour}, job, nil)
	p.ctx = context.Background()

	p.runOnce()

	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	stats := p.Stats()
	if stats.Runs != 1 || stats.Failures != 0 || stats.LastErr != nil {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.LastRunAt.IsZero() {
		t.Error("LastRunAt not set")
	}
}

func TestPoller_RunOnceFailure(t *testing.T) {
	boom := errors.New("boom")
	p := New(Config{Interval: time.Hour}, JobFunc(func(ctx context.Context) error { return boom }), nil)
	p.ctx = context.Background()

	p.runOnce()

	stats := p.Stats()
	if stats.Failures != 1 || !errors.Is(stats.LastErr, boom) {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPoller_Timeout(t *testing.T) {
	job := JobFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	p := New(Config{Interval: time.Hour, Timeout: 20 * time.Millisecond}, job, nil)
	p.ctx = context.Background()

	p.runOnce()

	if err := p.Stats().LastErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("LastErr = %v, want DeadlineExceeded", err)
	}
}

func TestPoller_StartStop(t *testing.T) {
	var calls atomic.Int32
	job := JobFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	p := New(Config{Interval: 50 * time.Millisecond}, job, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Immediate run plus at least one tick.
	time.Sleep(120 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}
}

func TestPoller_NoOverlap(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	job := JobFunc(func(ctx context.Context) error {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			old := maxInFlight.Load()
			if current <= old || maxInFlight.CompareAndSwap(old, current) {
				break
			}
		}

		// Slower than the interval.
		select {
		case <-time.After(40 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	})

	p := New(Config{Interval: 10 * time.Millisecond}, job, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("maxInFlight = %d, want 1", got)
	}
}

func TestPoller_StopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	job := JobFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	p := New(Config{Interval: time.Hour}, job, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-started

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := p.Stats().LastErr; !errors.Is(err, context.Canceled) {
		t.Errorf("LastErr = %v, want Canceled", err)
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	p := New(Config{}, JobFunc(func(context.Context) error { return nil }), nil)
	if p.cfg.Interval != 24*time.Hour {
		t.Errorf("Interval = %v, want 24h", p.cfg.Interval)
	}
}
