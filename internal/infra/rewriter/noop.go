package rewriter

import "context"

// Noop returns text unchanged. It terminates the fallback chain so a
// briefing always goes out even with no LLM credentials at all.
type Noop struct{}

// Name identifies the rewriter in logs.
func (Noop) Name() string { return "noop" }

// Available always reports true.
func (Noop) Available() bool { return true }

// Rewrite returns text as-is.
func (Noop) Rewrite(_ context.Context, text string) (string, error) {
	return text, nil
}
