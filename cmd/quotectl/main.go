// Package main is quotectl, the maintenance CLI of the quote backend.
//
// Usage:
//
//	quotectl migrate
//	quotectl prepopulate [-count 50] [-random-likes=true] [-workers 4]
//	quotectl backfill-images [-count 50] [-workers 4]
//
// It reads the same configuration as the service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nico-vromans/random-quote-generator/internal/app"
	"github.com/nico-vromans/random-quote-generator/internal/bootstrap"
)

const (
	cmdMigrate        = "migrate"
	cmdPrepopulate    = "prepopulate"
	cmdBackfillImages = "backfill-images"

	defaultCount = 50
)

var errUsage = errors.New("usage: quotectl <migrate|prepopulate|backfill-images> [flags]")

// command is a parsed invocation.
type command struct {
	name        string
	count       int
	randomLikes bool
	workers     int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd, err := parseCommand(args, out)
	if err != nil {
		return err
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg)

	deps, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	start := time.Now()

	var tally app.Tally

	switch cmd.name {
	case cmdMigrate:
		if err := deps.Store.Migrate(ctx); err != nil {
			return err
		}

		fmt.Fprintln(out, "database is up to date")

		return nil

	case cmdPrepopulate:
		fmt.Fprintf(out, "Pre-populating database with %d quotes.\n", cmd.count)

		tally, err = deps.Service.Prepopulate(ctx, app.PrepopulateOptions{
			Count:       cmd.count,
			RandomLikes: cmd.randomLikes,
			Workers:     cmd.workers,
		})

	case cmdBackfillImages:
		fmt.Fprintf(out, "Searching for missing images for %d quotes.\n", cmd.count)

		tally, err = deps.Service.BackfillImages(ctx, cmd.count, cmd.workers)
	}

	if err != nil {
		return err
	}

	logger.Debug("command finished", slog.String("command", cmd.name))
	fmt.Fprintf(out, "Done in %s: %d succeeded, %d failed.\n",
		time.Since(start).Round(time.Millisecond), tally.Succeeded, tally.Failed)

	return nil
}

// parseCommand parses the subcommand and its flags. Flag errors and -h are
// written to out.
func parseCommand(args []string, out io.Writer) (*command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	cmd := &command{name: args[0], count: defaultCount, randomLikes: true}

	fs := flag.NewFlagSet("quotectl "+cmd.name, flag.ContinueOnError)
	fs.SetOutput(out)

	switch cmd.name {
	case cmdMigrate:
	case cmdPrepopulate:
		fs.IntVar(&cmd.count, "count", cmd.count, "number of quotes to fetch")
		fs.BoolVar(&cmd.randomLikes, "random-likes", cmd.randomLikes, "seed random like and dislike counts")
		fs.IntVar(&cmd.workers, "workers", app.DefaultMaintenanceWorkers, "concurrent fetches")
	case cmdBackfillImages:
		fs.IntVar(&cmd.count, "count", cmd.count, "number of quotes to update")
		fs.IntVar(&cmd.workers, "workers", app.DefaultMaintenanceWorkers, "concurrent image lookups")
	default:
		return nil, fmt.Errorf("unknown command %q: %w", cmd.name, errUsage)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments %v: %w", fs.Args(), errUsage)
	}

	if cmd.count < 1 {
		return nil, fmt.Errorf("-count must be at least 1, got %d", cmd.count)
	}

	return cmd, nil
}
