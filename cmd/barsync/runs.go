package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/subcommands"
)

type runsCmd struct {
	db    string
	limit int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list recent sync runs as JSON lines" }
func (*runsCmd) Usage() string {
	return `barsync [-config <file>] runs [-db <path>] [-n <count>]

  Prints the most recent completed runs, newest first, one JSON object per line.
`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", "", "SQLite database path (default from config)")
	f.IntVar(&c.limit, "n", 20, "number of runs to list")
}

// runRecord is the JSON shape of a listed run.
type runRecord struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Stocks     int    `json:"stocks"`
	DailyRows  int    `json:"daily_rows"`
	MinuteRows int    `json:"minute_rows"`
	Errors     int    `json:"errors"`
}

func (c *runsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return subcommands.ExitFailure
	}
	if c.db != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = c.db
	}
	logger := setupLogger(cfg)

	store, err := openReadOnlyStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, c.limit)
	if err != nil {
		logger.Error("failed to list runs", "err", err)
		return subcommands.ExitFailure
	}

	for _, r := range runs {
		rec := runRecord{
			ID:         r.ID,
			Mode:       string(r.Mode),
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Stocks:     r.Stocks,
			DailyRows:  r.DailyRows,
			MinuteRows: r.MinuteRows,
			Errors:     len(r.Errors),
		}
		if err := writeJSON(os.Stdout, rec); err != nil {
			logger.Error("failed to write run", "err", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
