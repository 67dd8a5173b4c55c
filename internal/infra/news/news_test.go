package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		desc  string
		want  entity.NewsTopic
	}{
		{"OpenAI ships new LLM", "", entity.TopicAI},
		{"Daily market wrap", "nothing special", entity.TopicOther},
		{"Classroom software raises round", "learning platform for schools", entity.TopicEdTech},
		{"Chip maker expands fab", "", entity.TopicTech},
		{"Maintain your garden", "", entity.TopicOther}, // "ai" inside a word must not match
		{"Machine learning beats benchmark", "also a startup", entity.TopicAI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.title, tt.desc), "title=%q", tt.title)
	}
}

func TestNewsAPI_FetchParsesArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Contains(t, r.URL.Query().Get("q"), "AI")
		_, _ = w.Write([]byte(`{
			"status":"ok",
			"articles":[
				{"source":{"name":"The Verge"},"title":"New AI model released","description":"a big LLM","url":"https://example.com/a","publishedAt":"2025-06-01T08:00:00Z"},
				{"source":{"name":"Empty"},"title":"","description":"","url":"https://example.com/b"},
				{"source":{"name":"Wired"},"title":"Quiet day in markets","description":"","url":"https://example.com/c","publishedAt":"2025-06-01T09:00:00Z"}
			]
		}`))
	}))
	defer server.Close()

	p := NewNewsAPIWithBase("secret", []string{"AI", "Tech"}, 5, server.URL)
	require.True(t, p.Available())

	items, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "untitled articles are dropped")

	assert.Equal(t, "New AI model released", items[0].Title)
	assert.Equal(t, entity.TopicAI, items[0].Topic)
	assert.Equal(t, "The Verge", items[0].Source)
	assert.Equal(t, "https://example.com/a", items[0].ID())
	assert.Equal(t, entity.TopicOther, items[1].Topic)
}

func TestNewsAPI_MissingKeyIsUnavailable(t *testing.T) {
	p := NewNewsAPI("", []string{"AI"}, 5)
	assert.False(t, p.Available())

	_, err := p.Fetch(context.Background())
	assert.ErrorIs(t, err, entity.ErrUnavailable)
}

func TestNewsAPI_RateLimitedIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewNewsAPIWithBase("secret", []string{"AI"}, 5, server.URL)
	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestGoogleRSS_FetchParsesFeed(t *testing.T) {
	recent := time.Now().Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := time.Now().AddDate(0, 0, -10).Format(time.RFC1123Z)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Google News</title>
<item><title>AI lab announces model</title><link>https://example.com/ai</link><description>&lt;a href="x"&gt;AI lab announces model&lt;/a&gt; - Reuters</description><pubDate>` + recent + `</pubDate></item>
<item><title>Old story</title><link>https://example.com/old</link><pubDate>` + stale + `</pubDate></item>
</channel></rss>`))
	}))
	defer server.Close()

	p := NewGoogleRSSWithBase([]string{"AI"}, 5, server.URL)
	require.True(t, p.Available())

	items, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1, "items older than the window are dropped")

	assert.Equal(t, "AI lab announces model", items[0].Title)
	assert.Equal(t, entity.TopicAI, items[0].Topic)
	assert.NotContains(t, items[0].Description, "<")
}

func TestHeadlineScraper_FetchExtractsAnchors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<h2><a href="/story/ai-beats-humans-at-go-again">AI beats humans at board games once more</a></h2>
			<h3><a href="https://other.example.com/chip">Chip shortage easing across the industry</a></h3>
			<h3><a href="/story/ai-beats-humans-at-go-again">AI beats humans at board games once more</a></h3>
			<h2><a href="/x">tiny</a></h2>
		</body></html>`))
	}))
	defer server.Close()

	p := NewHeadlineScraper(server.URL+"/news", 5)
	require.True(t, p.Available())

	items, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "duplicates and short anchors are dropped")

	assert.Equal(t, "AI beats humans at board games once more", items[0].Title)
	assert.Equal(t, server.URL+"/story/ai-beats-humans-at-go-again", items[0].URL)
	assert.Equal(t, entity.TopicAI, items[0].Topic)
}

func TestHeadlineScraper_UnconfiguredIsUnavailable(t *testing.T) {
	p := NewHeadlineScraper("", 5)
	assert.False(t, p.Available())

	_, err := p.Fetch(context.Background())
	assert.ErrorIs(t, err, entity.ErrUnavailable)
}

func TestHeadlineScraper_NoHeadlinesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	}))
	defer server.Close()

	p := NewHeadlineScraper(server.URL, 5)
	_, err := p.Fetch(context.Background())
	assert.Error(t, err)
}

func TestContentExtractor_ExtractsBodyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Story</title></head><body>
			<article><h1>Story</h1>
			<p>First paragraph of the article body with enough words to count as content.</p>
			<p>Second paragraph continues the story in additional detail for the reader.</p>
			</article></body></html>`))
	}))
	defer server.Close()

	e := NewContentExtractor(nil)
	text, err := e.Extract(context.Background(), server.URL+"/story")
	require.NoError(t, err)
	assert.Contains(t, text, "First paragraph of the article body")
}

func TestContentExtractor_HTTPErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	e := NewContentExtractor(nil)
	_, err := e.Extract(context.Background(), server.URL+"/story")
	assert.Error(t, err)
}
