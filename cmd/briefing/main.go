// Package main provides the one-shot briefing CLI.
// Usage: briefing <weather|news|schedule|evening|night|health>
//
// The process exits 0 when the briefing was delivered, even degraded to
// a placeholder; it exits 1 only when delivery or the state flush failed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"briefing-bot/internal/app"
	"briefing-bot/internal/config"
	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/observability/logging"
)

const runTimeout = 10 * time.Minute

func main() {
	os.Exit(run())
}

// run holds the real flow so deferred cleanups execute before the
// process exits; os.Exit in main would skip them.
func run() int {
	if len(os.Args) < 2 {
		usage()
		return 2
	}
	command := os.Args[1]

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	coordinator, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build coordinator", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	if command == "health" {
		report, err := coordinator.Health(ctx)
		if err != nil {
			logger.Error("health check failed", slog.Any("error", err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(report)
		return 0
	}

	category := entity.Category(command)
	if !category.Valid() {
		usage()
		return 2
	}

	if err := coordinator.Run(ctx, category); err != nil {
		logger.Error("briefing run failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: briefing <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  weather    morning weather briefing")
	fmt.Fprintln(os.Stderr, "  news       deduplicated news briefing")
	fmt.Fprintln(os.Stderr, "  schedule   today's calendar events")
	fmt.Fprintln(os.Stderr, "  evening    tonight's events plus tomorrow preview")
	fmt.Fprintln(os.Stderr, "  night      active project reminders")
	fmt.Fprintln(os.Stderr, "  health     provider and state backend readiness report")
}
