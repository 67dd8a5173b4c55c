package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

// HeadlineScraper extracts headline links from a configured HTML page.
// It is the last resort in the news chain: no key, no structured feed,
// just anchor tags inside headline-looking elements.
type HeadlineScraper struct {
	pageURL    string
	maxItems   int
	httpClient *http.Client
}

// NewHeadlineScraper creates the scraper. An empty pageURL leaves it
// unusable.
func NewHeadlineScraper(pageURL string, maxItems int) *HeadlineScraper {
	return &HeadlineScraper{
		pageURL:    pageURL,
		maxItems:   maxItems,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Name identifies the provider in logs and degradation notes.
func (p *HeadlineScraper) Name() string { return "headline-scrape" }

// Available reports whether a page URL is configured.
func (p *HeadlineScraper) Available() bool { return p.pageURL != "" }

// Fetch scrapes headline anchors from the configured page.
func (p *HeadlineScraper) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	if !p.Available() {
		return nil, &entity.UnavailableError{Provider: p.Name(), Reason: "no headline page configured"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; briefing-bot/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headline page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "headline page"}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse headline page: %w", err)
	}

	base, err := url.Parse(p.pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	now := time.Now()
	seen := make(map[string]bool)
	var items []entity.NewsItem
	doc.Find("h1 a, h2 a, h3 a, article a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		if !ok || len(title) < 15 {
			return true
		}
		link, err := base.Parse(href)
		if err != nil || (link.Scheme != "http" && link.Scheme != "https") {
			return true
		}
		abs := link.String()
		if seen[abs] {
			return true
		}
		seen[abs] = true

		items = append(items, entity.NewsItem{
			Title:       title,
			URL:         abs,
			Source:      base.Hostname(),
			Topic:       Classify(title, ""),
			PublishedAt: now,
		})
		return len(items) < p.maxItems*3
	})

	if len(items) == 0 {
		return nil, fmt.Errorf("no headlines found at %s", p.pageURL)
	}
	return items, nil
}
