package rewriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"briefing-bot/internal/resilience/circuitbreaker"
	"briefing-bot/internal/resilience/retry"
)

const openAIModel = "gpt-4o-mini"

// OpenAI polishes briefings with the OpenAI API. Fallback rewriter.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	available      bool
}

// NewOpenAI creates the rewriter. An empty API key leaves it unusable.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.RewriterConfig("openai-api")),
		retryConfig:    retry.RewriterConfig(),
		available:      apiKey != "",
	}
}

// Name identifies the rewriter in logs.
func (o *OpenAI) Name() string { return "openai" }

// Available reports whether an API key is configured.
func (o *OpenAI) Available() bool { return o.available }

// Rewrite returns a polished version of text.
func (o *OpenAI) Rewrite(ctx context.Context, text string) (string, error) {
	if !o.available {
		return "", fmt.Errorf("openai rewriter has no API key")
	}

	ctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doRewrite(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("openai rewrite failed after retries: %w", retryErr)
	}
	return result, nil
}

func (o *OpenAI) doRewrite(ctx context.Context, text string) (string, error) {
	if len(text) > maxRewriteInput {
		text = text[:maxRewriteInput]
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf(rewritePrompt, text),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}

	slog.Debug("rewrite completed",
		slog.String("rewriter", "openai"),
		slog.Duration("duration", time.Since(start)),
		slog.Int("output_length", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}
