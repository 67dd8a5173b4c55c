// Package app assembles the briefing coordinator from configuration.
// Both the one-shot CLI and the daemon share this wiring so a category
// run behaves identically regardless of how it was triggered.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"briefing-bot/internal/config"
	"briefing-bot/internal/infra/calendar"
	"briefing-bot/internal/infra/news"
	"briefing-bot/internal/infra/notifier"
	"briefing-bot/internal/infra/projects"
	"briefing-bot/internal/infra/rewriter"
	statefile "briefing-bot/internal/infra/state/file"
	"briefing-bot/internal/infra/state/gist"
	"briefing-bot/internal/infra/state/postgres"
	"briefing-bot/internal/infra/weather"
	"briefing-bot/internal/state"
	"briefing-bot/internal/usecase/briefing"
)

// Build wires the full coordinator: state backend, provider chains,
// rewriter, and delivery sink. The returned cleanup releases backend
// resources and must be called before process exit.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*briefing.Coordinator, func(), error) {
	docs, cleanup, err := buildDocumentStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := state.NewStore(docs)

	sources := briefing.Sources{
		Weather: []briefing.WeatherSource{
			weather.NewOpenWeather(cfg.Weather.OpenWeatherAPIKey),
			weather.NewWttr(),
		},
		News: []briefing.NewsSource{
			news.NewNewsAPI(cfg.News.NewsAPIKey, cfg.Profile.Topics, cfg.News.MaxItems),
			news.NewGoogleRSS(cfg.Profile.Topics, cfg.News.MaxItems),
			news.NewHeadlineScraper(cfg.News.HeadlineURL, cfg.News.MaxItems),
		},
		Calendar: []briefing.CalendarSource{
			calendar.NewGoogle(cfg.Google, cfg.Profile.ImportantKeywords),
		},
		Projects: []briefing.ProjectSource{
			projects.NewObsidian(cfg.Projects.VaultPath),
		},
	}

	var opts []briefing.Option
	if cfg.News.FetchContent {
		opts = append(opts, briefing.WithContentEnhancer(news.NewContentExtractor(logger)))
	}

	coordinator := briefing.NewCoordinator(
		cfg,
		sources,
		rewriter.NewFromConfig(cfg.Rewriter, logger),
		buildSink(cfg, logger),
		store,
		logger,
		opts...,
	)
	return coordinator, cleanup, nil
}

// buildDocumentStore selects the state backend. Only Postgres needs a
// cleanup; the others hold no long-lived resources.
func buildDocumentStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (state.DocumentStore, func(), error) {
	noop := func() {}

	switch cfg.State.Backend {
	case config.StateBackendGist:
		return gist.New(cfg.State.GistToken, cfg.State.GistID, logger), noop, nil

	case config.StateBackendPostgres:
		store, err := postgres.Open(ctx, cfg.State.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres state backend: %w", err)
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close state database", slog.Any("error", err))
			}
		}
		return store, cleanup, nil

	case config.StateBackendFile:
		return statefile.New(cfg.State.FilePath), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// buildSink returns the Telegram sink when credentials are present and a
// logging no-op otherwise, so local runs without a bot token still show
// the composed briefing.
func buildSink(cfg *config.Config, logger *slog.Logger) notifier.Notifier {
	if cfg.Telegram.Configured() {
		return notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
	}
	logger.Warn("telegram credentials missing, briefings will only be logged")
	return notifier.NewNoop(logger)
}
