package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/subcommands"

	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/metrics"
	"github.com/rickgao/barsync/internal/poller"
	"github.com/rickgao/barsync/internal/syncer"
	"github.com/rickgao/barsync/internal/version"
)

type daemonCmd struct {
	flags    syncFlags
	interval time.Duration
	port     int
}

func (*daemonCmd) Name() string     { return "daemon" }
func (*daemonCmd) Synopsis() string { return "re-run the sync on an interval and serve health and metrics" }
func (*daemonCmd) Usage() string {
	return `barsync [-config <file>] daemon [-interval <duration>] [-port <n>] [sync flags]

  Runs the sync immediately and then every -interval until interrupted.
  Runs never overlap. Serves /health and the Prometheus metrics path on -port.
`
}

func (c *daemonCmd) SetFlags(f *flag.FlagSet) {
	c.flags.register(f)
	f.DurationVar(&c.interval, "interval", 0, "time between runs (default from config, 24h)")
	f.IntVar(&c.port, "port", 0, "health and metrics port (default from config, 9090)")
}

func (c *daemonCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return subcommands.ExitFailure
	}
	c.flags.apply(f, cfg)
	if c.interval > 0 {
		cfg.Daemon.Interval = c.interval
	}
	if c.port > 0 {
		cfg.Metrics.Port = c.port
	}
	logger := setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return subcommands.ExitUsageError
	}

	logger.Info("starting barsync daemon",
		"version", version.Version,
		"commit", version.Commit,
		"interval", cfg.Daemon.Interval,
	)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	m := metrics.New()
	s := syncer.New(store, newClient(cfg, logger), logger, syncer.WithRecorder(m))
	opts := syncer.OptionsFromConfig(cfg.Sync)

	job := poller.JobFunc(func(ctx context.Context) error {
		summary, err := s.Run(ctx, opts)
		if err != nil {
			return err
		}
		if err := writeJSON(logWriter{logger}, summary); err != nil {
			return err
		}
		if cfg.Metrics.Textfile != "" {
			if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				logger.Warn("failed to write metrics", "path", cfg.Metrics.Textfile, "err", err)
			}
		}
		return nil
	})
	p := poller.New(poller.Config{Interval: cfg.Daemon.Interval}, job, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(store, p, m, cfg.Metrics.Path),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "err", err)
		}
	}()

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "err", err)
		return subcommands.ExitFailure
	}

	logger.Info("barsync daemon running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop timed out", "err", err)
	}
	server.Shutdown(shutdownCtx)

	logger.Info("barsync daemon stopped")
	return subcommands.ExitSuccess
}

// logWriter routes run summaries to the log; the daemon has no stdout consumer.
type logWriter struct {
	logger *slog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Info("run summary", "summary", string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return p[:n-1]
	}
	return p
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(store *database.Store, p *poller.Poller, m *metrics.Metrics, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, m.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if err := store.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		// Check scheduler
		stats := p.Stats()
		scheduler := map[string]interface{}{
			"runs":     stats.Runs,
			"failures": stats.Failures,
		}
		if !stats.LastRunAt.IsZero() {
			scheduler["last_run_at"] = stats.LastRunAt.UTC().Format(time.RFC3339)
		}
		if stats.LastErr != nil {
			scheduler["last_error"] = stats.LastErr.Error()
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
		health.Components["scheduler"] = scheduler

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
