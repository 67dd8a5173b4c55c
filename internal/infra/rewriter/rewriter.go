// Package rewriter provides AI-powered message polishing. A rewriter
// takes the composed briefing text and returns a friendlier rendition;
// every implementation is best-effort and the caller keeps the original
// text when rewriting fails.
package rewriter

import (
	"context"
	"log/slog"

	"briefing-bot/internal/config"
)

// Rewriter polishes briefing text.
type Rewriter interface {
	// Name identifies the rewriter in logs.
	Name() string

	// Available reports whether the rewriter can be called at all.
	Available() bool

	// Rewrite returns a polished version of text.
	Rewrite(ctx context.Context, text string) (string, error)
}

// Fallback tries rewriters in order and settles for the first success.
// With a Noop at the end it never fails.
type Fallback struct {
	rewriters []Rewriter
	logger    *slog.Logger
}

// NewFallback chains rewriters in priority order.
func NewFallback(logger *slog.Logger, rewriters ...Rewriter) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{rewriters: rewriters, logger: logger}
}

// NewFromConfig builds the standard chain: Claude, then OpenAI, then
// the pass-through.
func NewFromConfig(cfg config.RewriterConfig, logger *slog.Logger) *Fallback {
	return NewFallback(logger,
		NewClaude(cfg.AnthropicAPIKey),
		NewOpenAI(cfg.OpenAIAPIKey),
		Noop{},
	)
}

// Name identifies the chain in logs.
func (f *Fallback) Name() string { return "rewriter-chain" }

// Available reports whether any member is usable.
func (f *Fallback) Available() bool {
	for _, r := range f.rewriters {
		if r.Available() {
			return true
		}
	}
	return false
}

// Rewrite returns the first successful rewrite. When every member
// fails it returns the original text untouched: a plain briefing beats
// no briefing.
func (f *Fallback) Rewrite(ctx context.Context, text string) (string, error) {
	for _, r := range f.rewriters {
		if !r.Available() {
			continue
		}
		polished, err := r.Rewrite(ctx, text)
		if err != nil {
			f.logger.Warn("rewriter failed, trying next",
				slog.String("rewriter", r.Name()),
				slog.String("error", err.Error()))
			continue
		}
		return polished, nil
	}
	return text, nil
}
