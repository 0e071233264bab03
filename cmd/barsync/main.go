// Command barsync synchronizes A-share instruments and price bars from an
// AKTools gateway into a local SQLite or PostgreSQL store.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", os.Getenv("BARSYNC_CONFIG"), "path to config file (defaults apply when empty)")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&syncCmd{}, "sync")
	subcommands.Register(&daemonCmd{}, "sync")

	subcommands.Register(&exportCmd{}, "store")
	subcommands.Register(&runsCmd{}, "store")

	subcommands.Register(&versionCmd{}, "")

	flag.Parse()

	ctx, stop := signalContext(context.Background())
	defer stop()

	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}
