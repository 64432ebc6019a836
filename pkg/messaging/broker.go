package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe streams raw payloads published on channel until ctx is done,
	// at which point the returned channel is closed.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
