package channel

import (
	"context"

	"mediabot/internal/domain"
)

// Channel is a chat transport: it turns platform messages into Turns on the
// bus and delivers outbound replies.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus domain.MessageBus) error
	Stop() error
}
