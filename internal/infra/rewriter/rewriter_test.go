package rewriter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-bot/internal/config"
)

type stubRewriter struct {
	name      string
	available bool
	out       string
	err       error
	calls     int
}

func (s *stubRewriter) Name() string    { return s.name }
func (s *stubRewriter) Available() bool { return s.available }
func (s *stubRewriter) Rewrite(_ context.Context, text string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

func TestFallback_FirstSuccessWins(t *testing.T) {
	primary := &stubRewriter{name: "primary", available: true, out: "polished"}
	secondary := &stubRewriter{name: "secondary", available: true, out: "other"}
	chain := NewFallback(nil, primary, secondary)

	got, err := chain.Rewrite(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "polished", got)
	assert.Zero(t, secondary.calls)
}

func TestFallback_SkipsUnavailableAndFailed(t *testing.T) {
	unconfigured := &stubRewriter{name: "unconfigured"}
	failing := &stubRewriter{name: "failing", available: true, err: errors.New("quota")}
	last := &stubRewriter{name: "last", available: true, out: "rescued"}
	chain := NewFallback(nil, unconfigured, failing, last)

	got, err := chain.Rewrite(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "rescued", got)
	assert.Zero(t, unconfigured.calls)
	assert.Equal(t, 1, failing.calls)
}

func TestFallback_AllFailedReturnsOriginal(t *testing.T) {
	failing := &stubRewriter{name: "failing", available: true, err: errors.New("down")}
	chain := NewFallback(nil, failing)

	got, err := chain.Rewrite(context.Background(), "the original briefing")
	require.NoError(t, err)
	assert.Equal(t, "the original briefing", got)
}

func TestNoop_PassesThrough(t *testing.T) {
	got, err := Noop{}.Rewrite(context.Background(), "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)
	assert.True(t, Noop{}.Available())
}

func TestNewFromConfig_AlwaysUsable(t *testing.T) {
	chain := NewFromConfig(config.RewriterConfig{}, nil)
	assert.True(t, chain.Available(), "the noop terminator keeps the chain usable")

	got, err := chain.Rewrite(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func TestClaudeOpenAI_UnconfiguredReportUnavailable(t *testing.T) {
	assert.False(t, NewClaude("").Available())
	assert.False(t, NewOpenAI("").Available())

	_, err := NewClaude("").Rewrite(context.Background(), "x")
	assert.Error(t, err)
	_, err = NewOpenAI("").Rewrite(context.Background(), "x")
	assert.Error(t, err)
}
