package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"briefing-bot/internal/domain/entity"
)

const googleNewsBaseURL = "https://news.google.com"

// GoogleRSS fetches headlines from Google News search RSS. It needs no
// credentials and backs up NewsAPI.
type GoogleRSS struct {
	baseURL  string
	topics   []string
	maxItems int
	parser   *gofeed.Parser
}

// NewGoogleRSS creates the RSS fallback provider.
func NewGoogleRSS(topics []string, maxItems int) *GoogleRSS {
	return &GoogleRSS{
		baseURL:  googleNewsBaseURL,
		topics:   topics,
		maxItems: maxItems,
		parser:   gofeed.NewParser(),
	}
}

// NewGoogleRSSWithBase overrides the endpoint, for tests.
func NewGoogleRSSWithBase(topics []string, maxItems int, baseURL string) *GoogleRSS {
	p := NewGoogleRSS(topics, maxItems)
	p.baseURL = baseURL
	return p
}

// Name identifies the provider in logs and degradation notes.
func (p *GoogleRSS) Name() string { return "google-news-rss" }

// Available always reports true: the feed is keyless.
func (p *GoogleRSS) Available() bool { return true }

// Fetch returns recent items from the topic search feed.
func (p *GoogleRSS) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	query := url.QueryEscape(strings.Join(p.topics, " OR "))
	feedURL := fmt.Sprintf("%s/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en", p.baseURL, query)

	feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse google news feed: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -2)
	items := make([]entity.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it.Title == "" || it.Link == "" {
			continue
		}
		published := time.Time{}
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
			if published.Before(cutoff) {
				continue
			}
		}
		source := feed.Title
		if it.Author != nil && it.Author.Name != "" {
			source = it.Author.Name
		}
		items = append(items, entity.NewsItem{
			Title:       it.Title,
			Description: strippedDescription(it.Description),
			URL:         it.Link,
			Source:      source,
			Topic:       Classify(it.Title, it.Description),
			PublishedAt: published,
		})
		if len(items) >= p.maxItems*3 {
			break
		}
	}
	return items, nil
}

// strippedDescription drops the HTML markup Google News embeds in
// item descriptions, keeping the leading text.
func strippedDescription(desc string) string {
	var b strings.Builder
	inTag := false
	for _, r := range desc {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
