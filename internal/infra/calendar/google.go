// Package calendar implements the schedule provider on the Google
// Calendar API. Two auth flows are supported: a personal OAuth refresh
// token and a service-account JWT assertion; the refresh token wins
// when both are configured.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"briefing-bot/internal/config"
	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

const (
	calendarBaseURL = "https://www.googleapis.com"
	requestTimeout  = 10 * time.Second
)

// Google fetches events from the Google Calendar API.
type Google struct {
	baseURL           string
	calendarID        string
	tokens            tokenSource
	importantKeywords []string
	httpClient        *http.Client
}

// NewGoogle creates the provider from the configured credentials. A
// nil token source (no flow configured) leaves it unusable.
func NewGoogle(cfg config.GoogleConfig, importantKeywords []string) *Google {
	httpClient := &http.Client{Timeout: requestTimeout}
	g := &Google{
		baseURL:           calendarBaseURL,
		calendarID:        cfg.CalendarID,
		importantKeywords: importantKeywords,
		httpClient:        httpClient,
	}
	switch {
	case cfg.HasRefreshToken():
		g.tokens = refreshTokenSource(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, googleTokenURL, httpClient)
	case cfg.HasServiceAccount():
		g.tokens = serviceAccountSource(cfg.ServiceAccountEmail, cfg.ServiceAccountKeyPEM, googleTokenURL, httpClient)
	}
	return g
}

// NewGoogleWithEndpoints overrides the API and token endpoints, for tests.
func NewGoogleWithEndpoints(cfg config.GoogleConfig, importantKeywords []string, apiBase, tokenURL string) *Google {
	g := NewGoogle(cfg, importantKeywords)
	g.baseURL = apiBase
	switch {
	case cfg.HasRefreshToken():
		g.tokens = refreshTokenSource(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, tokenURL, g.httpClient)
	case cfg.HasServiceAccount():
		g.tokens = serviceAccountSource(cfg.ServiceAccountEmail, cfg.ServiceAccountKeyPEM, tokenURL, g.httpClient)
	}
	return g
}

// Name identifies the provider in logs and degradation notes.
func (g *Google) Name() string { return "google-calendar" }

// Available reports whether an auth flow is configured.
func (g *Google) Available() bool { return g.tokens != nil }

type eventsResponse struct {
	Items []struct {
		Summary  string `json:"summary"`
		Location string `json:"location"`
		Status   string `json:"status"`
		Start    struct {
			Date     string    `json:"date"`
			DateTime time.Time `json:"dateTime"`
		} `json:"start"`
		End struct {
			Date     string    `json:"date"`
			DateTime time.Time `json:"dateTime"`
		} `json:"end"`
	} `json:"items"`
}

// Events returns the events between from and to, expanded from any
// recurrences and sorted by start time.
func (g *Google) Events(ctx context.Context, from, to time.Time) ([]entity.CalendarEvent, error) {
	if !g.Available() {
		return nil, &entity.UnavailableError{Provider: g.Name(), Reason: "no calendar credentials configured"}
	}

	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar auth: %w", err)
	}

	params := url.Values{}
	params.Set("timeMin", from.Format(time.RFC3339))
	params.Set("timeMax", to.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", "50")

	u := fmt.Sprintf("%s/calendar/v3/calendars/%s/events?%s", g.baseURL, url.PathEscape(g.calendarID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "calendar events"}
	}

	var payload eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode calendar response: %w", err)
	}

	events := make([]entity.CalendarEvent, 0, len(payload.Items))
	for _, it := range payload.Items {
		if it.Status == "cancelled" {
			continue
		}
		event := entity.CalendarEvent{
			Title:     it.Summary,
			Location:  it.Location,
			Important: g.isImportant(it.Summary),
		}
		if it.Start.Date != "" {
			event.AllDay = true
			event.Start, _ = time.ParseInLocation("2006-01-02", it.Start.Date, from.Location())
			event.End, _ = time.ParseInLocation("2006-01-02", it.End.Date, from.Location())
		} else {
			event.Start = it.Start.DateTime
			event.End = it.End.DateTime
		}
		events = append(events, event)
	}
	return events, nil
}

func (g *Google) isImportant(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range g.importantKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
