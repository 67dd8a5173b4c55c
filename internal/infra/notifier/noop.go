package notifier

import (
	"context"
	"log/slog"

	"briefing-bot/internal/domain/entity"
)

// Noop logs the briefing instead of sending it. Used for dry runs and
// local development without a bot token.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates the no-op sink.
func NewNoop(logger *slog.Logger) *Noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Noop{logger: logger}
}

// Name identifies the sink in logs and error messages.
func (n *Noop) Name() string { return "noop" }

// Send logs the message and reports success.
func (n *Noop) Send(_ context.Context, msg entity.Message) error {
	n.logger.Info("briefing suppressed (noop sink)",
		slog.String("category", string(msg.Category)),
		slog.Int("length", len(msg.Body)))
	return nil
}
