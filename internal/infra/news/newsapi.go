package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

const (
	newsAPIBaseURL = "https://newsapi.org"
	requestTimeout = 10 * time.Second
)

// NewsAPI fetches articles from newsapi.org's everything endpoint,
// queried by the configured interest topics.
type NewsAPI struct {
	apiKey     string
	baseURL    string
	topics     []string
	maxItems   int
	httpClient *http.Client
}

// NewNewsAPI creates the primary news provider.
func NewNewsAPI(apiKey string, topics []string, maxItems int) *NewsAPI {
	return &NewsAPI{
		apiKey:     apiKey,
		baseURL:    newsAPIBaseURL,
		topics:     topics,
		maxItems:   maxItems,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// NewNewsAPIWithBase overrides the endpoint, for tests.
func NewNewsAPIWithBase(apiKey string, topics []string, maxItems int, baseURL string) *NewsAPI {
	p := NewNewsAPI(apiKey, topics, maxItems)
	p.baseURL = baseURL
	return p
}

// Name identifies the provider in logs and degradation notes.
func (p *NewsAPI) Name() string { return "newsapi" }

// Available reports whether an API key is configured.
func (p *NewsAPI) Available() bool { return p.apiKey != "" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch returns recent articles matching the interest topics, newest
// first, capped at the configured item count.
func (p *NewsAPI) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	if !p.Available() {
		return nil, &entity.UnavailableError{Provider: p.Name(), Reason: "no API key configured"}
	}

	params := url.Values{}
	params.Set("q", strings.Join(p.topics, " OR "))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", fmt.Sprintf("%d", p.maxItems*3)) // headroom for dedup filtering
	params.Set("from", time.Now().AddDate(0, 0, -2).Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "newsapi everything"}
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned status %q", payload.Status)
	}

	items := make([]entity.NewsItem, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		items = append(items, entity.NewsItem{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			Topic:       Classify(a.Title, a.Description),
			PublishedAt: a.PublishedAt,
		})
	}
	return items, nil
}
