// Package main provides the daemon mode: a cron scheduler that fires
// each briefing category at its profile time, plus health and metrics
// HTTP servers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"briefing-bot/internal/app"
	"briefing-bot/internal/config"
	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/infra/worker"
	"briefing-bot/internal/observability/logging"
	"briefing-bot/internal/usecase/briefing"
)

func main() {
	os.Exit(run())
}

// run holds the real flow so deferred cleanups execute before the
// process exits; os.Exit in main would skip them.
func run() int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		return 1
	}

	workerCfg, err := worker.FromProfile(cfg.Profile, logger)
	if err != nil {
		logger.Error("failed to build daemon configuration", slog.Any("error", err))
		return 1
	}
	logger.Info("daemon configuration loaded",
		slog.String("timezone", workerCfg.Timezone),
		slog.Int("scheduled_categories", len(workerCfg.Schedule)),
		slog.Duration("run_timeout", workerCfg.RunTimeout),
		slog.Int("health_port", workerCfg.HealthPort),
		slog.Int("metrics_port", workerCfg.MetricsPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coordinator, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build coordinator", slog.Any("error", err))
		return 1
	}
	defer cleanup()

	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := healthServer.Start(groupCtx); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return runMetricsServer(groupCtx, logger, workerCfg.MetricsPort)
	})
	group.Go(func() error {
		return runScheduler(groupCtx, logger, coordinator, workerCfg, healthServer)
	})

	if err := group.Wait(); err != nil {
		logger.Error("daemon stopped with error", slog.Any("error", err))
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

// runScheduler registers one cron entry per scheduled category and
// blocks until the context is canceled.
func runScheduler(ctx context.Context, logger *slog.Logger, coordinator *briefing.Coordinator, cfg worker.Config, healthServer *worker.HealthServer) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	scheduler := cron.New(cron.WithLocation(loc))
	for category, expr := range cfg.Schedule {
		category := category
		if _, err := scheduler.AddFunc(expr, func() {
			runBriefing(logger, coordinator, category, cfg.RunTimeout)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", category, err)
		}
		logger.Info("category scheduled",
			slog.String("category", string(category)),
			slog.String("cron", expr))
	}

	scheduler.Start()
	healthServer.SetReady(true)
	logger.Info("scheduler started", slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("scheduler stopping, waiting for running jobs")
	<-scheduler.Stop().Done()
	return nil
}

// runBriefing executes one scheduled run. A failed run is logged and
// counted; the daemon itself keeps going.
func runBriefing(logger *slog.Logger, coordinator *briefing.Coordinator, category entity.Category, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := coordinator.Run(ctx, category); err != nil {
		logger.Error("scheduled briefing failed",
			slog.String("category", string(category)),
			slog.Any("error", err))
	}
}
