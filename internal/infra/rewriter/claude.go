package rewriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"briefing-bot/internal/resilience/circuitbreaker"
	"briefing-bot/internal/resilience/retry"
)

const (
	claudeModel     = "claude-sonnet-4-5-20250929"
	claudeMaxTokens = 1024
	rewriteTimeout  = 60 * time.Second

	// rewritePrompt asks for tone, not content changes. The briefing
	// facts must survive the rewrite verbatim.
	rewritePrompt = "Rewrite the following briefing message in a warm, concise tone. " +
		"Keep every fact, number, time, and link exactly as given. " +
		"Do not add commentary or preamble; return only the rewritten message.\n\n%s"

	// Inputs are already short briefings; anything longer is a bug
	// upstream, truncated defensively before the API call.
	maxRewriteInput = 10000
)

// Claude polishes briefings with Anthropic's API. Primary rewriter.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	available      bool
}

// NewClaude creates the rewriter. An empty API key leaves it unusable.
func NewClaude(apiKey string) *Claude {
	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.RewriterConfig("claude-api")),
		retryConfig:    retry.RewriterConfig(),
		available:      apiKey != "",
	}
}

// Name identifies the rewriter in logs.
func (c *Claude) Name() string { return "claude" }

// Available reports whether an API key is configured.
func (c *Claude) Available() bool { return c.available }

// Rewrite returns a polished version of text.
func (c *Claude) Rewrite(ctx context.Context, text string) (string, error) {
	if !c.available {
		return "", fmt.Errorf("claude rewriter has no API key")
	}

	ctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doRewrite(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("claude rewrite failed after retries: %w", retryErr)
	}
	return result, nil
}

func (c *Claude) doRewrite(ctx context.Context, text string) (string, error) {
	if len(text) > maxRewriteInput {
		text = text[:maxRewriteInput]
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(claudeModel),
		MaxTokens: int64(claudeMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(fmt.Sprintf(rewritePrompt, text)),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	slog.Debug("rewrite completed",
		slog.String("rewriter", "claude"),
		slog.Duration("duration", time.Since(start)),
		slog.Int("output_length", len(textBlock.Text)))
	return textBlock.Text, nil
}
