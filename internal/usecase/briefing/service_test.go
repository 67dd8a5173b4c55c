package briefing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-bot/internal/config"
	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
	"briefing-bot/internal/state"
)

// memoryDocs is an in-memory state document backend with injectable
// save failures.
type memoryDocs struct {
	data    []byte
	saves   int
	saveErr error
}

func (m *memoryDocs) Load(ctx context.Context) ([]byte, error) {
	if m.data == nil {
		return []byte("{}"), nil
	}
	return m.data, nil
}

func (m *memoryDocs) Save(ctx context.Context, data []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

type stubWeather struct {
	name      string
	available bool
	report    entity.WeatherReport
	err       error
	calls     int
}

func (s *stubWeather) Name() string    { return s.name }
func (s *stubWeather) Available() bool { return s.available }
func (s *stubWeather) Fetch(_ context.Context, city, _ string) (entity.WeatherReport, error) {
	s.calls++
	if s.err != nil {
		return entity.WeatherReport{}, s.err
	}
	r := s.report
	r.City = city
	return r, nil
}

type stubNews struct {
	name      string
	available bool
	items     []entity.NewsItem
	err       error
}

func (s *stubNews) Name() string    { return s.name }
func (s *stubNews) Available() bool { return s.available }
func (s *stubNews) Fetch(_ context.Context) ([]entity.NewsItem, error) {
	return s.items, s.err
}

type stubCalendar struct {
	name      string
	available bool
	events    []entity.CalendarEvent
	err       error
}

func (s *stubCalendar) Name() string    { return s.name }
func (s *stubCalendar) Available() bool { return s.available }
func (s *stubCalendar) Events(_ context.Context, from, to time.Time) ([]entity.CalendarEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var inWindow []entity.CalendarEvent
	for _, e := range s.events {
		if !e.Start.Before(from) && e.Start.Before(to) {
			inWindow = append(inWindow, e)
		}
	}
	return inWindow, nil
}

type stubProjects struct {
	name      string
	available bool
	reminders entity.ProjectReminders
	err       error
}

func (s *stubProjects) Name() string    { return s.name }
func (s *stubProjects) Available() bool { return s.available }
func (s *stubProjects) Fetch(_ context.Context) (entity.ProjectReminders, error) {
	return s.reminders, s.err
}

type stubSink struct {
	sent    []entity.Message
	failFor int // fail the first N sends
	err     error
}

func (s *stubSink) Name() string { return "test-sink" }
func (s *stubSink) Send(_ context.Context, msg entity.Message) error {
	if s.failFor > 0 {
		s.failFor--
		if s.err != nil {
			return s.err
		}
		return errors.New("send failed")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubRewriter struct {
	prefix string
	calls  int
}

func (s *stubRewriter) Name() string    { return "stub-rewriter" }
func (s *stubRewriter) Available() bool { return true }
func (s *stubRewriter) Rewrite(_ context.Context, text string) (string, error) {
	s.calls++
	return s.prefix + text, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func testConfig() *config.Config {
	return &config.Config{
		News:            config.NewsConfig{MaxItems: 2},
		State:           config.StateConfig{Backend: config.StateBackendFile},
		ProviderTimeout: time.Second,
		Profile:         config.DefaultProfile(),
	}
}

func newTestCoordinator(t *testing.T, docs *memoryDocs, sources Sources, sink *stubSink, rw *stubRewriter) *Coordinator {
	t.Helper()
	store := state.NewStore(docs)
	c := NewCoordinator(testConfig(), sources, nil, sink, store, nil,
		WithRetryConfigs(fastRetry(), fastRetry()),
		WithProviderRetry(fastRetry()))
	if rw != nil {
		c.rewriter = rw
	}
	return c
}

func TestRun_WeatherHappyPath(t *testing.T) {
	sink := &stubSink{}
	rw := &stubRewriter{prefix: "[polished] "}
	sources := Sources{Weather: []WeatherSource{
		&stubWeather{name: "primary", available: true, report: entity.WeatherReport{Description: "clear sky", TempC: 21.4, FeelsLikeC: 20.6, RainProbability: 10}},
	}}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, rw)
	require.NoError(t, c.Run(context.Background(), entity.CategoryWeather))

	require.Len(t, sink.sent, 1)
	msg := sink.sent[0]
	assert.Equal(t, entity.CategoryWeather, msg.Category)
	assert.Equal(t, "primary", msg.Provider)
	assert.True(t, strings.HasPrefix(msg.Body, "[polished] "), "rewriter output should be delivered")
	assert.Contains(t, msg.Body, "clear sky")
	assert.Contains(t, msg.Body, "21°C (feels like 21°C)", "fractional temperatures render rounded")
	assert.Equal(t, 1, rw.calls)
}

func TestRun_FallbackProviderWinsAfterPrimaryFails(t *testing.T) {
	sink := &stubSink{}
	primary := &stubWeather{name: "primary", available: true, err: errors.New("upstream 503")}
	fallback := &stubWeather{name: "fallback", available: true, report: entity.WeatherReport{Description: "cloudy"}}

	c := newTestCoordinator(t, &memoryDocs{}, Sources{Weather: []WeatherSource{primary, fallback}}, sink, nil)
	require.NoError(t, c.Run(context.Background(), entity.CategoryWeather))

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "fallback", sink.sent[0].Provider)
	assert.Equal(t, 2, primary.calls, "primary should use its full retry budget first")
}

func TestRun_AllProvidersFailDeliversPlaceholder(t *testing.T) {
	sink := &stubSink{}
	rw := &stubRewriter{prefix: "[polished] "}
	sources := Sources{Weather: []WeatherSource{
		&stubWeather{name: "primary", available: false},
		&stubWeather{name: "fallback", available: true, err: errors.New("down")},
	}}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, rw)
	err := c.Run(context.Background(), entity.CategoryWeather)

	require.NoError(t, err, "exhausted providers degrade, they do not fail the run")
	require.Len(t, sink.sent, 1)
	assert.Empty(t, sink.sent[0].Provider)
	assert.Contains(t, sink.sent[0].Body, "unreachable")
	assert.Zero(t, rw.calls, "placeholders are never rewritten")
}

func TestRun_DeliveryFailureEscalates(t *testing.T) {
	sink := &stubSink{failFor: 99}
	sources := Sources{Projects: []ProjectSource{
		&stubProjects{name: "vault", available: true, reminders: entity.ProjectReminders{}},
	}}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	err := c.Run(context.Background(), entity.CategoryNight)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
}

func TestRun_NewsDedupAcrossRuns(t *testing.T) {
	docs := &memoryDocs{}
	items := []entity.NewsItem{
		{Title: "Story A", URL: "https://example.com/a", Topic: entity.TopicAI},
		{Title: "Story B", URL: "https://example.com/b", Topic: entity.TopicTech},
	}
	sources := Sources{News: []NewsSource{&stubNews{name: "feed", available: true, items: items}}}

	sink := &stubSink{}
	c := newTestCoordinator(t, docs, sources, sink, nil)
	require.NoError(t, c.Run(context.Background(), entity.CategoryNews))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0].Body, "Story A")

	// Second invocation over the persisted document: both items suppressed
	sink2 := &stubSink{}
	c2 := newTestCoordinator(t, docs, sources, sink2, nil)
	require.NoError(t, c2.Run(context.Background(), entity.CategoryNews))
	require.Len(t, sink2.sent, 1)
	assert.NotContains(t, sink2.sent[0].Body, "Story A")
	assert.Contains(t, sink2.sent[0].Body, "nothing new")
}

func TestRun_FailedDeliveryDoesNotMarkNewsSeen(t *testing.T) {
	docs := &memoryDocs{}
	items := []entity.NewsItem{{Title: "Story A", URL: "https://example.com/a", Topic: entity.TopicAI}}
	sources := Sources{News: []NewsSource{&stubNews{name: "feed", available: true, items: items}}}

	failing := &stubSink{failFor: 99}
	c := newTestCoordinator(t, docs, sources, failing, nil)
	require.ErrorIs(t, c.Run(context.Background(), entity.CategoryNews), entity.ErrDeliveryFailed)

	// Next run with a healthy sink must still carry the story
	sink := &stubSink{}
	c2 := newTestCoordinator(t, docs, sources, sink, nil)
	require.NoError(t, c2.Run(context.Background(), entity.CategoryNews))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0].Body, "Story A")
}

func TestRun_NewsCappedAtMaxItems(t *testing.T) {
	items := []entity.NewsItem{
		{Title: "One", URL: "u1", Topic: entity.TopicAI},
		{Title: "Two", URL: "u2", Topic: entity.TopicAI},
		{Title: "Three", URL: "u3", Topic: entity.TopicAI},
	}
	sources := Sources{News: []NewsSource{&stubNews{name: "feed", available: true, items: items}}}
	sink := &stubSink{}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	require.NoError(t, c.Run(context.Background(), entity.CategoryNews))

	body := sink.sent[0].Body
	assert.Contains(t, body, "One")
	assert.Contains(t, body, "Two")
	assert.NotContains(t, body, "Three", "MaxItems caps the briefing")
}

type stubEnhancer struct {
	text string
	err  error
	urls []string
}

func (s *stubEnhancer) Extract(_ context.Context, pageURL string) (string, error) {
	s.urls = append(s.urls, pageURL)
	return s.text, s.err
}

func TestRun_NewsContentEnhancement(t *testing.T) {
	items := []entity.NewsItem{
		{Title: "Story A", URL: "https://example.com/a", Description: "feed stub", Topic: entity.TopicAI},
	}
	sources := Sources{News: []NewsSource{&stubNews{name: "feed", available: true, items: items}}}
	sink := &stubSink{}
	enhancer := &stubEnhancer{text: "The full article body with actual substance."}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	c.cfg.News.FetchContent = true
	c.enhancer = enhancer
	require.NoError(t, c.Run(context.Background(), entity.CategoryNews))

	require.Len(t, sink.sent, 1)
	assert.Equal(t, []string{"https://example.com/a"}, enhancer.urls)
	assert.Contains(t, sink.sent[0].Body, "actual substance")
	assert.NotContains(t, sink.sent[0].Body, "feed stub")
}

func TestRun_NewsContentEnhancementFailureDegrades(t *testing.T) {
	items := []entity.NewsItem{
		{Title: "Story A", URL: "https://example.com/a", Description: "feed stub", Topic: entity.TopicAI},
	}
	sources := Sources{News: []NewsSource{&stubNews{name: "feed", available: true, items: items}}}
	sink := &stubSink{}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	c.cfg.News.FetchContent = true
	c.enhancer = &stubEnhancer{err: errors.New("paywall")}
	require.NoError(t, c.Run(context.Background(), entity.CategoryNews))

	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0].Body, "feed stub", "failed extraction keeps the feed description")
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 200))
	long := strings.Repeat("word ", 100)
	cut := excerpt(long, 50)
	assert.LessOrEqual(t, len([]rune(cut)), 51)
	assert.True(t, strings.HasSuffix(cut, "…"))
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(cut, "…"), " "), "cut lands on a word boundary")
}

func TestRun_FlushFailureEscalatesAfterSuccessfulDelivery(t *testing.T) {
	docs := &memoryDocs{saveErr: errors.New("gist 502")}
	items := []entity.NewsItem{{Title: "Story A", URL: "https://example.com/a", Topic: entity.TopicAI}}
	sources := Sources{News: []NewsSource{&stubNews{name: "feed", available: true, items: items}}}
	sink := &stubSink{}

	c := newTestCoordinator(t, docs, sources, sink, nil)
	err := c.Run(context.Background(), entity.CategoryNews)

	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "state flush")
	assert.Len(t, sink.sent, 1, "the briefing itself was delivered")
	assert.Equal(t, 2, docs.saves, "flush gets its own retry budget")
}

func TestRun_DisabledCategorySkips(t *testing.T) {
	docs := &memoryDocs{}

	// Persist disabled settings the way a previous run would have
	store := state.NewStore(docs)
	disabled := false
	ctx := context.Background()
	require.NoError(t, state.SaveCategorySettings(ctx, store, entity.CategoryWeather, state.CategorySettings{Enabled: &disabled}))
	require.NoError(t, store.Flush(ctx))

	primary := &stubWeather{name: "primary", available: true}
	sink := &stubSink{}
	c := newTestCoordinator(t, docs, Sources{Weather: []WeatherSource{primary}}, sink, nil)

	require.NoError(t, c.Run(ctx, entity.CategoryWeather))
	assert.Empty(t, sink.sent, "disabled categories deliver nothing")
	assert.Zero(t, primary.calls, "disabled categories fetch nothing")
}

func TestRun_SettingsCityOverridesProfile(t *testing.T) {
	docs := &memoryDocs{}
	store := state.NewStore(docs)
	ctx := context.Background()
	require.NoError(t, state.SaveCategorySettings(ctx, store, entity.CategoryWeather, state.CategorySettings{City: "Busan", CountryCode: "KR"}))
	require.NoError(t, store.Flush(ctx))

	sink := &stubSink{}
	src := &stubWeather{name: "primary", available: true, report: entity.WeatherReport{Description: "clear"}}
	c := newTestCoordinator(t, docs, Sources{Weather: []WeatherSource{src}}, sink, nil)

	require.NoError(t, c.Run(ctx, entity.CategoryWeather))
	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0].Body, "Busan")
	assert.NotContains(t, sink.sent[0].Body, "Seoul")
}

func TestRun_ScheduleComposesEvents(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	now := time.Date(2025, 6, 2, 8, 30, 0, 0, seoul)

	events := []entity.CalendarEvent{
		{Title: "Standup", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)},
		{Title: "Flight to Tokyo", Start: now.Add(3 * time.Hour), End: now.Add(5 * time.Hour), Important: true},
	}
	sources := Sources{Calendar: []CalendarSource{&stubCalendar{name: "gcal", available: true, events: events}}}
	sink := &stubSink{}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Run(context.Background(), entity.CategorySchedule))

	body := sink.sent[0].Body
	assert.Contains(t, body, "Standup")
	assert.Contains(t, body, "Flight to Tokyo ⭐")
	assert.Contains(t, body, "1 important event")
}

func TestRun_EveningSplitsTonightAndTomorrow(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	now := time.Date(2025, 6, 2, 20, 0, 0, 0, seoul)

	events := []entity.CalendarEvent{
		{Title: "Dinner with friends", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)},
		{Title: "Visa interview", Start: now.Add(14 * time.Hour), End: now.Add(15 * time.Hour), Important: true},
	}
	sources := Sources{Calendar: []CalendarSource{&stubCalendar{name: "gcal", available: true, events: events}}}
	sink := &stubSink{}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Run(context.Background(), entity.CategoryEvening))

	body := sink.sent[0].Body
	assert.Contains(t, body, "Still ahead tonight")
	assert.Contains(t, body, "Dinner with friends")
	assert.Contains(t, body, "Tomorrow to keep in mind")
	assert.Contains(t, body, "Visa interview ⭐")
}

func TestRun_NightListsProjects(t *testing.T) {
	reminders := entity.ProjectReminders{Projects: []entity.ProjectNote{
		{Title: "briefing-bot", Status: "active", NextActions: []string{"ship it"}},
	}}
	sources := Sources{Projects: []ProjectSource{&stubProjects{name: "vault", available: true, reminders: reminders}}}
	sink := &stubSink{}

	c := newTestCoordinator(t, &memoryDocs{}, sources, sink, nil)
	require.NoError(t, c.Run(context.Background(), entity.CategoryNight))

	body := sink.sent[0].Body
	assert.Contains(t, body, "briefing-bot (active)")
	assert.Contains(t, body, "ship it")
	assert.Contains(t, body, "Good night!")
}

func TestRun_InvalidCategoryRejected(t *testing.T) {
	c := newTestCoordinator(t, &memoryDocs{}, Sources{}, &stubSink{}, nil)
	err := c.Run(context.Background(), entity.Category("brunch"))
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestHealth_ReportsSourceReadiness(t *testing.T) {
	sources := Sources{
		Weather: []WeatherSource{&stubWeather{name: "openweathermap"}, &stubWeather{name: "wttr.in", available: true}},
		News:    []NewsSource{&stubNews{name: "newsapi"}},
	}
	c := newTestCoordinator(t, &memoryDocs{}, sources, &stubSink{}, nil)

	report, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report, "openweathermap: not configured")
	assert.Contains(t, report, "wttr.in: ready")
	assert.Contains(t, report, "state backend (file): ok")
	assert.Contains(t, report, "test-sink")
}

func TestHealth_DeliversReportThroughSink(t *testing.T) {
	sink := &stubSink{}
	c := newTestCoordinator(t, &memoryDocs{}, Sources{}, sink, nil)

	report, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, report, sink.sent[0].Body)
}

func TestHealth_DeliveryFailureEscalates(t *testing.T) {
	sink := &stubSink{failFor: 99}
	c := newTestCoordinator(t, &memoryDocs{}, Sources{}, sink, nil)

	_, err := c.Health(context.Background())
	assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
}
