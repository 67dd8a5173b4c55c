// Package notifier provides the outbound messaging sink. The briefing
// pipeline talks to the Notifier interface; Telegram is the production
// implementation and Noop backs disabled or dry-run setups.
package notifier

import (
	"context"

	"briefing-bot/internal/domain/entity"
)

// Notifier delivers a composed briefing message to the user.
type Notifier interface {
	// Name identifies the sink in logs and error messages.
	Name() string

	// Send delivers one message. Implementations rate-limit internally
	// but leave retries to the caller so the delivery retry budget
	// lives in one place.
	Send(ctx context.Context, msg entity.Message) error
}
