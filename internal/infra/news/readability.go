package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-shiori/go-readability"

	"briefing-bot/internal/resilience/circuitbreaker"
)

const maxArticleBodySize = 2 << 20 // 2 MiB

// ContentExtractor fetches an article page and extracts its readable
// body text. The text is handed to the rewriter for a better summary;
// extraction failure is never fatal because the RSS description still
// makes a deliverable item.
type ContentExtractor struct {
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	maxBody    int64
	logger     *slog.Logger
}

// NewContentExtractor creates the extractor with its own breaker so a
// run of unreachable article hosts stops costing timeouts.
func NewContentExtractor(logger *slog.Logger) *ContentExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentExtractor{
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    circuitbreaker.New(circuitbreaker.ProviderConfig("article-content")),
		maxBody:    maxArticleBodySize,
		logger:     logger,
	}
}

// Extract returns the readable text of the article at pageURL.
func (e *ContentExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	result, err := e.breaker.Execute(func() (any, error) {
		return e.doExtract(ctx, pageURL)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (e *ContentExtractor) doExtract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; briefing-bot/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article fetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("read article body: %w", err)
	}
	if int64(len(body)) > e.maxBody {
		return "", fmt.Errorf("article body exceeds %d bytes", e.maxBody)
	}

	parsedURL, _ := url.Parse(pageURL)
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract article content: %w", err)
	}
	if article.TextContent == "" {
		return "", fmt.Errorf("no readable content at %s", pageURL)
	}
	return article.TextContent, nil
}
