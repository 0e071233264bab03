package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/barsync/internal/api"
	"github.com/rickgao/barsync/internal/config"
	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/instrument"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// loadConfig reads the -config file (or defaults) without validating it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setupLogger installs a text logger on stderr; stdout is reserved for results.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return logger
}

// openStore opens the configured store and logs where it points.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	logTarget(cfg, logger)
	return database.Open(ctx, cfg.Database)
}

// openReadOnlyStore opens an existing store for the query commands.
func openReadOnlyStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	logTarget(cfg, logger)
	return database.OpenReadOnly(ctx, cfg.Database)
}

func logTarget(cfg *config.Config, logger *slog.Logger) {
	switch cfg.Database.Driver {
	case "postgres":
		logger.Info("connecting to database",
			"driver", cfg.Database.Driver,
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
	default:
		logger.Info("opening database", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	}
}

// newClient builds the provider client from config.
func newClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(
		cfg.Provider.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithRetries(cfg.Provider.MaxRetries, cfg.Provider.RetryBackoff),
		api.WithAdjust(cfg.Provider.Adjust),
	)
}

// writeJSON writes v as one JSON line, leaving non-ASCII text unescaped.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// syncFlags are the run selection flags shared by sync and daemon.
type syncFlags struct {
	db        string
	mode      string
	symbols   string
	limit     int
	startDate string
	endDate   string
	minStart  string
	minEnd    string
	period    string
}

func (s *syncFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.db, "db", "", "SQLite database path (default $DB_PATH or "+config.DefaultDBPath+")")
	f.StringVar(&s.mode, "mode", config.DefaultMode, "cadence families to sync: daily, minute or all")
	f.StringVar(&s.symbols, "symbols", "", "comma-separated instrument codes; empty discovers from the provider")
	f.IntVar(&s.limit, "limit", config.DefaultLimit, "discovered instruments to keep; 0 or -1 keeps all")
	f.StringVar(&s.startDate, "start-date", "", "daily window start, YYYYMMDD (default one year ago)")
	f.StringVar(&s.endDate, "end-date", "", "daily window end, YYYYMMDD (default today)")
	f.StringVar(&s.minStart, "min-start", "", `intraday window start, "YYYY-MM-DD HH:MM:SS" (default 20 days ago 09:30:00)`)
	f.StringVar(&s.minEnd, "min-end", "", `intraday window end, "YYYY-MM-DD HH:MM:SS" (default today 15:00:00)`)
	f.StringVar(&s.period, "period", config.DefaultPeriod, "intraday period in minutes: 1, 5, 15, 30 or 60")
}

// apply overrides cfg with the flags set on the command line.
func (s *syncFlags) apply(f *flag.FlagSet, cfg *config.Config) {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "db":
			cfg.Database.Driver = "sqlite"
			cfg.Database.Path = s.db
		case "mode":
			cfg.Sync.Mode = s.mode
		case "symbols":
			cfg.Sync.Symbols = instrument.ParseSymbols(s.symbols)
		case "limit":
			cfg.Sync.Limit = s.limit
		case "start-date":
			cfg.Sync.StartDate = s.startDate
		case "end-date":
			cfg.Sync.EndDate = s.endDate
		case "min-start":
			cfg.Sync.MinStart = s.minStart
		case "min-end":
			cfg.Sync.MinEnd = s.minEnd
		case "period":
			cfg.Sync.Period = s.period
		}
	})
}
