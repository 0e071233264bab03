package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"github.com/rickgao/barsync/internal/metrics"
	"github.com/rickgao/barsync/internal/syncer"
)

type syncCmd struct {
	flags syncFlags
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "run one sync and print its summary as JSON" }
func (*syncCmd) Usage() string {
	return `barsync [-config <file>] sync [-db <path>] [-mode daily|minute|all] [-symbols <codes>] [-limit <n>]
    [-start-date YYYYMMDD] [-end-date YYYYMMDD] [-min-start <datetime>] [-min-end <datetime>] [-period <minutes>]

  Resolves instruments (explicit list or the first -limit of the provider
  listing), fetches their daily and/or intraday bars, and overwrites the
  fetched time span in the store. Prints one JSON summary line on stdout.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	c.flags.register(f)
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return subcommands.ExitFailure
	}
	c.flags.apply(f, cfg)
	logger := setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return subcommands.ExitUsageError
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	m := metrics.New()
	s := syncer.New(store, newClient(cfg, logger), logger, syncer.WithRecorder(m))

	summary, runErr := s.Run(ctx, syncer.OptionsFromConfig(cfg.Sync))

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics", "path", cfg.Metrics.Textfile, "err", err)
		}
	}

	if runErr != nil {
		logger.Error("sync failed", "err", runErr)
		if summary != nil && errors.Is(runErr, context.Canceled) {
			writeJSON(os.Stdout, summary)
		}
		return subcommands.ExitFailure
	}

	if err := writeJSON(os.Stdout, summary); err != nil {
		logger.Error("failed to write summary", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
