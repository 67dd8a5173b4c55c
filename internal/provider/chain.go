// Package provider implements the ordered fallback protocol shared by all
// briefing categories. A category declares its data sources as a fixed,
// priority-ordered list of descriptors; the chain tries each in turn,
// applying retry with backoff per provider, and reports a single exhausted
// outcome when no provider can produce data.
//
// Provider order is configuration, never runtime-computed: the chain does
// no adaptive routing, which keeps fallback behavior predictable and
// auditable across runs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

// Descriptor identifies one data source for a category.
type Descriptor[T any] struct {
	// Name identifies the provider in logs and metrics (e.g. "openweather").
	Name string

	// Available reports whether the provider is usable with the current
	// credentials. When false the chain skips the provider without
	// invoking retry, so a missing credential costs zero network calls.
	Available func() bool

	// Fetch performs one fetch attempt. Transient failures are returned
	// as plain or HTTP errors (retried); a provider that discovers
	// mid-call that it cannot run returns entity.ErrUnavailable.
	Fetch func(ctx context.Context) (T, error)
}

// Chain tries providers in declaration order until one succeeds.
type Chain[T any] struct {
	category    entity.Category
	descriptors []Descriptor[T]
	retryConfig retry.Config
	observer    AttemptObserver
}

// AttemptObserver receives the outcome of every provider attempt, for metrics.
// Outcome is one of "success", "unavailable", "failed".
type AttemptObserver func(category entity.Category, provider, outcome string)

// ExhaustedError is returned when every descriptor ended in unavailable or
// exhausted failure. It matches entity.ErrExhausted via errors.Is and
// carries the per-provider reasons for logging.
type ExhaustedError struct {
	Category entity.Category
	Reasons  []Reason
}

// Reason records why one provider produced no data.
type Reason struct {
	Provider string
	Err      error
}

// Error returns a formatted message listing every provider's failure reason.
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		parts = append(parts, fmt.Sprintf("%s: %v", r.Provider, r.Err))
	}
	return fmt.Sprintf("all providers exhausted for %s [%s]", e.Category, strings.Join(parts, "; "))
}

// Is makes the error match entity.ErrExhausted via errors.Is.
func (e *ExhaustedError) Is(target error) bool { return target == entity.ErrExhausted }

// Option configures a Chain.
type Option[T any] func(*Chain[T])

// WithRetryConfig overrides the per-provider retry configuration.
func WithRetryConfig[T any](cfg retry.Config) Option[T] {
	return func(c *Chain[T]) { c.retryConfig = cfg }
}

// WithObserver registers an attempt observer, typically a metrics recorder.
func WithObserver[T any](obs AttemptObserver) Option[T] {
	return func(c *Chain[T]) { c.observer = obs }
}

// NewChain creates a fallback chain for a category. Descriptors are tried
// strictly in the order given.
func NewChain[T any](category entity.Category, descriptors []Descriptor[T], opts ...Option[T]) *Chain[T] {
	c := &Chain[T]{
		category:    category,
		descriptors: descriptors,
		retryConfig: retry.ProviderConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch walks the chain in priority order and returns the first success
// together with the winning provider's name.
//
// Per descriptor:
//   - Available() == false: skipped, no retry invoked, no network call made.
//   - Fetch returns entity.ErrUnavailable: recorded, next provider tried,
//     no retry budget consumed.
//   - Fetch fails transiently: retried under the chain's retry config,
//     then the next provider is tried.
//
// When every descriptor ends in unavailable or exhausted failure, Fetch
// returns an *ExhaustedError. Callers must treat it as "no data for this
// category", not as a fatal run error.
func (c *Chain[T]) Fetch(ctx context.Context) (T, string, error) {
	var zero T
	reasons := make([]Reason, 0, len(c.descriptors))

	for _, d := range c.descriptors {
		if d.Available != nil && !d.Available() {
			slog.Debug("provider skipped, not configured",
				slog.String("category", string(c.category)),
				slog.String("provider", d.Name))
			c.observe(d.Name, "unavailable")
			reasons = append(reasons, Reason{Provider: d.Name, Err: entity.ErrUnavailable})
			continue
		}

		var result T
		fetchErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
			var err error
			result, err = d.Fetch(ctx)
			return err
		})

		if fetchErr == nil {
			slog.Info("provider fetch succeeded",
				slog.String("category", string(c.category)),
				slog.String("provider", d.Name))
			c.observe(d.Name, "success")
			return result, d.Name, nil
		}

		if errors.Is(fetchErr, entity.ErrUnavailable) {
			c.observe(d.Name, "unavailable")
		} else {
			slog.Warn("provider exhausted, falling back",
				slog.String("category", string(c.category)),
				slog.String("provider", d.Name),
				slog.Any("error", fetchErr))
			c.observe(d.Name, "failed")
		}
		reasons = append(reasons, Reason{Provider: d.Name, Err: fetchErr})

		// A canceled invocation must not keep walking the chain
		if ctx.Err() != nil {
			break
		}
	}

	return zero, "", &ExhaustedError{Category: c.category, Reasons: reasons}
}

func (c *Chain[T]) observe(provider, outcome string) {
	if c.observer != nil {
		c.observer(c.category, provider, outcome)
	}
}
