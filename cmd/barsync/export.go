package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/rickgao/barsync/internal/database"
	"github.com/rickgao/barsync/internal/export"
)

type exportCmd struct {
	db       string
	format   string
	code     string
	interval string
	from     string
	to       string
	out      string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "dump stored bars to csv, json or parquet" }
func (*exportCmd) Usage() string {
	return `barsync [-config <file>] export -o <file> [-format csv|json|parquet] [-code <code>] [-interval <tag>] [-from <time>] [-to <time>]

  Writes the stored bars matching the filters, ordered by code, interval and
  time. -from and -to bound the canonical time string inclusively.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", "", "SQLite database path (default from config)")
	f.StringVar(&c.format, "format", "csv", "output format: "+strings.Join(export.Formats, ", "))
	f.StringVar(&c.code, "code", "", "instrument code filter")
	f.StringVar(&c.interval, "interval", "", `cadence filter, e.g. "1d" or "30m"`)
	f.StringVar(&c.from, "from", "", "earliest time, inclusive")
	f.StringVar(&c.to, "to", "", "latest time, inclusive")
	f.StringVar(&c.out, "o", "", "output file (default bars.<format>)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	saver := export.NewSaver(c.format)
	if saver == nil {
		fmt.Fprintf(os.Stderr, "unsupported format %q (use: %s)\n", c.format, strings.Join(export.Formats, ", "))
		return subcommands.ExitUsageError
	}

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

	out := c.out
	if out == "" {
		out = "bars." + saver.Extension()
	}

	store, err := openReadOnlyStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	q := database.BarQuery{Code: c.code, Cadence: c.interval, From: c.from, To: c.to}
	n, err := export.Export(ctx, store, q, saver, out)
	if err != nil {
		logger.Error("export failed", "err", err)
		return subcommands.ExitFailure
	}

	logger.Info("export complete", "rows", n, "format", saver.Extension(), "path", out)
	return subcommands.ExitSuccess
}
