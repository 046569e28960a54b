package bus

import (
	"context"

	"github.com/specbridge/specbridge-backend/internal/realtime"
)

// Bus publishes sync events for external consumers subscribed to the redis
// channel. Nothing in this process consumes them.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	Close() error
}
