// Package briefing contains the run coordinator: the use case that turns
// one scheduled trigger into one delivered briefing. A run resolves the
// category's settings, walks the provider fallback chain, composes and
// optionally rewrites the message, delivers it, and flushes staged state
// exactly once.
//
// Failure policy: providers and the rewriter degrade (placeholder or
// plain text); only delivery failure and state flush failure escalate to
// the invoking process.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"briefing-bot/internal/config"
	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/infra/notifier"
	"briefing-bot/internal/infra/rewriter"
	"briefing-bot/internal/observability/logging"
	"briefing-bot/internal/observability/metrics"
	"briefing-bot/internal/provider"
	"briefing-bot/internal/resilience/retry"
	"briefing-bot/internal/state"
)

// WeatherSource fetches the current report for one city.
type WeatherSource interface {
	Name() string
	Available() bool
	Fetch(ctx context.Context, city, country string) (entity.WeatherReport, error)
}

// NewsSource fetches recent articles.
type NewsSource interface {
	Name() string
	Available() bool
	Fetch(ctx context.Context) ([]entity.NewsItem, error)
}

// CalendarSource fetches events inside a time window.
type CalendarSource interface {
	Name() string
	Available() bool
	Events(ctx context.Context, from, to time.Time) ([]entity.CalendarEvent, error)
}

// ProjectSource fetches the active project reminders.
type ProjectSource interface {
	Name() string
	Available() bool
	Fetch(ctx context.Context) (entity.ProjectReminders, error)
}

// ContentEnhancer extracts the readable body of a news article page,
// giving the briefing a real summary instead of the feed's stub
// description. Always best-effort.
type ContentEnhancer interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Sources groups the provider implementations per category, in fallback
// priority order.
type Sources struct {
	Weather  []WeatherSource
	News     []NewsSource
	Calendar []CalendarSource
	Projects []ProjectSource
}

// Coordinator orchestrates one briefing run per invocation.
type Coordinator struct {
	cfg      *config.Config
	sources  Sources
	rewriter rewriter.Rewriter
	sink     notifier.Notifier
	store    *state.Store
	dedup    *state.DedupTracker
	enhancer ContentEnhancer
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time

	providerRetry retry.Config
	deliveryRetry retry.Config
	flushRetry    retry.Config
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the coordinator's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithContentEnhancer enables readable-body extraction for news items.
func WithContentEnhancer(e ContentEnhancer) Option {
	return func(c *Coordinator) { c.enhancer = e }
}

// WithRetryConfigs overrides the delivery and flush retry budgets, for tests.
func WithRetryConfigs(delivery, flush retry.Config) Option {
	return func(c *Coordinator) {
		c.deliveryRetry = delivery
		c.flushRetry = flush
	}
}

// WithProviderRetry overrides the per-provider retry budget applied
// inside every fallback chain, for tests.
func WithProviderRetry(cfg retry.Config) Option {
	return func(c *Coordinator) { c.providerRetry = cfg }
}

// NewCoordinator wires the run coordinator. The profile timezone decides
// day boundaries; an unknown zone falls back to UTC with a warning.
func NewCoordinator(cfg *config.Config, sources Sources, rw rewriter.Rewriter, sink notifier.Notifier, store *state.Store, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	location, err := time.LoadLocation(cfg.Profile.Timezone)
	if err != nil {
		logger.Warn("unknown timezone in profile, using UTC",
			slog.String("timezone", cfg.Profile.Timezone))
		location = time.UTC
	}

	c := &Coordinator{
		cfg:           cfg,
		sources:       sources,
		rewriter:      rw,
		sink:          sink,
		store:         store,
		dedup:         state.NewDedupTracker(store),
		logger:        logger,
		location:      location,
		now:           time.Now,
		providerRetry: retry.ProviderConfig(),
		deliveryRetry: retry.DeliveryConfig(),
		flushRetry:    retry.StateFlushConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one briefing for the category. The returned error is
// non-nil only for delivery failure, state flush failure, or an invalid
// category; every upstream failure degrades into the delivered message.
func (c *Coordinator) Run(ctx context.Context, category entity.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", entity.ErrInvalidInput, category)
	}

	runID := uuid.New().String()
	logger := logging.WithRunID(c.logger, runID).With(slog.String("category", string(category)))
	ctx = logging.WithLogger(ctx, logger)
	start := c.now()

	logger.Info("briefing run started")

	settings := c.loadSettings(ctx, category, logger)
	if !settings.IsEnabled() {
		logger.Info("category disabled in settings, skipping run")
		metrics.RecordRun(string(category), "success", c.now().Sub(start))
		return nil
	}

	msg, itemIDs, degraded := c.buildMessage(ctx, category, settings, logger)

	// Rewriting is cosmetic: never rewrite placeholders, never fail the
	// run over it.
	if !degraded && c.rewriter != nil {
		if polished, err := c.rewriter.Rewrite(ctx, msg.Body); err == nil && polished != "" {
			msg.Body = polished
		}
	}

	deliveryErr := c.deliver(ctx, msg, logger)
	if deliveryErr == nil {
		c.markDelivered(ctx, itemIDs, logger)
	}

	flushErr := c.flush(ctx, logger)

	status := "success"
	switch {
	case deliveryErr != nil || flushErr != nil:
		status = "failure"
	case degraded:
		status = "degraded"
	}
	metrics.RecordRun(string(category), status, c.now().Sub(start))
	logger.Info("briefing run finished",
		slog.String("status", status),
		slog.Duration("duration", c.now().Sub(start)))

	return errors.Join(deliveryErr, flushErr)
}

// loadSettings reads the category settings, degrading to defaults when
// the state document is unreadable. A broken state store must not
// silence the briefing.
func (c *Coordinator) loadSettings(ctx context.Context, category entity.Category, logger *slog.Logger) state.CategorySettings {
	settings, err := state.LoadCategorySettings(ctx, c.store, category)
	if err != nil {
		logger.Warn("state document unreadable, using default settings",
			slog.Any("error", err))
		return state.CategorySettings{}
	}
	return settings
}

// buildMessage walks the category's provider chain and composes the
// briefing. It returns the dedup identifiers of the items the message
// references (news only) and whether a placeholder was substituted.
func (c *Coordinator) buildMessage(ctx context.Context, category entity.Category, settings state.CategorySettings, logger *slog.Logger) (entity.Message, []string, bool) {
	var (
		body     string
		provName string
		itemIDs  []string
		err      error
	)

	switch category {
	case entity.CategoryWeather:
		body, provName, err = c.weatherBody(ctx, settings)
	case entity.CategoryNews:
		body, provName, itemIDs, err = c.newsBody(ctx, logger)
	case entity.CategorySchedule:
		body, provName, err = c.scheduleBody(ctx)
	case entity.CategoryEvening:
		body, provName, err = c.eveningBody(ctx)
	case entity.CategoryNight:
		body, provName, err = c.nightBody(ctx)
	}

	if err != nil {
		logger.Warn("provider chain exhausted, delivering placeholder",
			slog.Any("error", err))
		metrics.RecordChainExhausted(string(category))
		return entity.Message{Category: category, Body: placeholder(category)}, nil, true
	}
	return entity.Message{Category: category, Body: body, Provider: provName}, itemIDs, false
}

func (c *Coordinator) weatherBody(ctx context.Context, settings state.CategorySettings) (string, string, error) {
	locations := c.weatherLocations(settings)

	descriptors := make([]provider.Descriptor[[]entity.WeatherReport], 0, len(c.sources.Weather))
	for _, src := range c.sources.Weather {
		src := src
		descriptors = append(descriptors, provider.Descriptor[[]entity.WeatherReport]{
			Name:      src.Name(),
			Available: src.Available,
			Fetch: func(ctx context.Context) ([]entity.WeatherReport, error) {
				reports := make([]entity.WeatherReport, 0, len(locations))
				for _, loc := range locations {
					fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
					report, err := src.Fetch(fetchCtx, loc.City, loc.Country)
					cancel()
					if err != nil {
						return nil, err
					}
					reports = append(reports, report)
				}
				return reports, nil
			},
		})
	}

	chain := provider.NewChain(entity.CategoryWeather, descriptors,
		provider.WithRetryConfig[[]entity.WeatherReport](c.providerRetry),
		provider.WithObserver[[]entity.WeatherReport](recordAttempt))
	reports, provName, err := chain.Fetch(ctx)
	if err != nil {
		return "", "", err
	}
	return composeWeather(reports, c.now().In(c.location)), provName, nil
}

// weatherLocations applies the per-category overrides from settings on
// top of the profile locations.
func (c *Coordinator) weatherLocations(settings state.CategorySettings) []config.Location {
	locations := c.cfg.Profile.Locations
	if settings.City != "" {
		return []config.Location{{City: settings.City, Country: settings.CountryCode}}
	}
	if len(locations) == 0 {
		return []config.Location{{City: "Seoul", Country: "KR"}}
	}
	return locations
}

func (c *Coordinator) newsBody(ctx context.Context, logger *slog.Logger) (string, string, []string, error) {
	descriptors := make([]provider.Descriptor[[]entity.NewsItem], 0, len(c.sources.News))
	for _, src := range c.sources.News {
		src := src
		descriptors = append(descriptors, provider.Descriptor[[]entity.NewsItem]{
			Name:      src.Name(),
			Available: src.Available,
			Fetch: func(ctx context.Context) ([]entity.NewsItem, error) {
				fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
				defer cancel()
				return src.Fetch(fetchCtx)
			},
		})
	}

	chain := provider.NewChain(entity.CategoryNews, descriptors,
		provider.WithRetryConfig[[]entity.NewsItem](c.providerRetry),
		provider.WithObserver[[]entity.NewsItem](recordAttempt))
	items, provName, err := chain.Fetch(ctx)
	if err != nil {
		return "", "", nil, err
	}

	fresh := c.filterSeen(ctx, items, logger)
	if len(fresh) > c.cfg.News.MaxItems {
		fresh = fresh[:c.cfg.News.MaxItems]
	}
	c.enhanceSummaries(ctx, fresh, logger)
	ids := make([]string, 0, len(fresh))
	for _, item := range fresh {
		ids = append(ids, item.ID())
	}
	return composeNews(fresh), provName, ids, nil
}

// enhanceSummaries replaces feed stub descriptions with an excerpt of
// the article body when content extraction is enabled. Extraction is
// best-effort per item; a failure leaves the feed description in place.
func (c *Coordinator) enhanceSummaries(ctx context.Context, items []entity.NewsItem, logger *slog.Logger) {
	if !c.cfg.News.FetchContent || c.enhancer == nil {
		return
	}
	for i := range items {
		if items[i].URL == "" {
			continue
		}
		extractCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
		text, err := c.enhancer.Extract(extractCtx, items[i].URL)
		cancel()
		if err != nil {
			logger.Warn("article content extraction failed",
				slog.String("url", items[i].URL),
				slog.Any("error", err))
			continue
		}
		items[i].Summary = excerpt(text, 200)
	}
}

// excerpt trims text to at most n runes, cutting at the last space.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// filterSeen drops items delivered within the retention window. Dedup
// errors fail open: a broken state document must not block the news.
func (c *Coordinator) filterSeen(ctx context.Context, items []entity.NewsItem, logger *slog.Logger) []entity.NewsItem {
	fresh := make([]entity.NewsItem, 0, len(items))
	suppressed := 0
	for _, item := range items {
		isNew, err := c.dedup.IsNew(ctx, entity.CategoryNews, item.ID())
		if err != nil {
			logger.Warn("dedup lookup failed, treating item as new",
				slog.String("item", item.ID()),
				slog.Any("error", err))
			isNew = true
		}
		if isNew {
			fresh = append(fresh, item)
		} else {
			suppressed++
		}
	}
	metrics.RecordDedupSuppressed(string(entity.CategoryNews), suppressed)
	return fresh
}

func (c *Coordinator) scheduleBody(ctx context.Context) (string, string, error) {
	now := c.now().In(c.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, provName, err := c.fetchEvents(ctx, entity.CategorySchedule, dayStart, dayEnd)
	if err != nil {
		return "", "", err
	}

	briefing := entity.ScheduleBriefing{Events: events}
	for _, e := range events {
		if e.Important {
			briefing.ImportantCount++
		}
	}
	return composeSchedule(briefing, now), provName, nil
}

func (c *Coordinator) eveningBody(ctx context.Context) (string, string, error) {
	now := c.now().In(c.location)
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.location).AddDate(0, 0, 1)
	tomorrowEnd := dayEnd.AddDate(0, 0, 1)

	// "Tonight" starts at 18:00 even when the command is triggered early.
	from := now
	if six := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, c.location); now.Before(six) {
		from = six
	}

	events, provName, err := c.fetchEvents(ctx, entity.CategoryEvening, from, tomorrowEnd)
	if err != nil {
		return "", "", err
	}

	var briefing entity.EveningBriefing
	for _, e := range events {
		switch {
		case e.Start.Before(dayEnd) && !e.AllDay:
			briefing.EveningEvents = append(briefing.EveningEvents, e)
		case !e.Start.Before(dayEnd):
			briefing.TomorrowPreview = append(briefing.TomorrowPreview, e)
		}
	}
	return composeEvening(briefing, now), provName, nil
}

func (c *Coordinator) fetchEvents(ctx context.Context, category entity.Category, from, to time.Time) ([]entity.CalendarEvent, string, error) {
	descriptors := make([]provider.Descriptor[[]entity.CalendarEvent], 0, len(c.sources.Calendar))
	for _, src := range c.sources.Calendar {
		src := src
		descriptors = append(descriptors, provider.Descriptor[[]entity.CalendarEvent]{
			Name:      src.Name(),
			Available: src.Available,
			Fetch: func(ctx context.Context) ([]entity.CalendarEvent, error) {
				fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
				defer cancel()
				return src.Events(fetchCtx, from, to)
			},
		})
	}

	chain := provider.NewChain(category, descriptors,
		provider.WithRetryConfig[[]entity.CalendarEvent](c.providerRetry),
		provider.WithObserver[[]entity.CalendarEvent](recordAttempt))
	return chain.Fetch(ctx)
}

func (c *Coordinator) nightBody(ctx context.Context) (string, string, error) {
	descriptors := make([]provider.Descriptor[entity.ProjectReminders], 0, len(c.sources.Projects))
	for _, src := range c.sources.Projects {
		src := src
		descriptors = append(descriptors, provider.Descriptor[entity.ProjectReminders]{
			Name:      src.Name(),
			Available: src.Available,
			Fetch: func(ctx context.Context) (entity.ProjectReminders, error) {
				fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
				defer cancel()
				return src.Fetch(fetchCtx)
			},
		})
	}

	chain := provider.NewChain(entity.CategoryNight, descriptors,
		provider.WithRetryConfig[entity.ProjectReminders](c.providerRetry),
		provider.WithObserver[entity.ProjectReminders](recordAttempt))
	reminders, provName, err := chain.Fetch(ctx)
	if err != nil {
		return "", "", err
	}
	return composeNight(reminders), provName, nil
}

// deliver pushes the message through the sink under the delivery retry
// budget. Exhaustion is the run's primary failure mode.
func (c *Coordinator) deliver(ctx context.Context, msg entity.Message, logger *slog.Logger) error {
	start := c.now()
	err := retry.WithBackoff(ctx, c.deliveryRetry, func() error {
		return c.sink.Send(ctx, msg)
	})
	metrics.RecordDelivery(c.sink.Name(), err == nil, c.now().Sub(start))

	if err != nil {
		logger.Error("delivery failed after retries",
			slog.String("sink", c.sink.Name()),
			slog.Any("error", err))
		return fmt.Errorf("%w: %s: %v", entity.ErrDeliveryFailed, c.sink.Name(), err)
	}
	return nil
}

// markDelivered stages dedup entries for every item referenced in a
// delivered news briefing. Items are marked only after successful
// delivery so a failed send leaves them eligible for the next run.
func (c *Coordinator) markDelivered(ctx context.Context, itemIDs []string, logger *slog.Logger) {
	for _, id := range itemIDs {
		if err := c.dedup.MarkSeen(ctx, entity.CategoryNews, id); err != nil {
			logger.Warn("failed to stage dedup entry",
				slog.String("item", id),
				slog.Any("error", err))
		}
	}
}

// flush persists staged state exactly once per run, with its own small
// retry budget. Failure escalates: losing dedup state silently would
// cause duplicate deliveries tomorrow.
func (c *Coordinator) flush(ctx context.Context, logger *slog.Logger) error {
	if !c.store.Dirty() {
		return nil
	}

	err := retry.WithBackoff(ctx, c.flushRetry, func() error {
		return c.store.Flush(ctx)
	})
	metrics.RecordStateFlush(c.cfg.State.Backend, err == nil)

	if err != nil {
		logger.Error("state flush failed after retries", slog.Any("error", err))
		return fmt.Errorf("state flush: %w", err)
	}
	return nil
}

func recordAttempt(category entity.Category, provider, outcome string) {
	metrics.RecordProviderAttempt(string(category), provider, outcome)
}
