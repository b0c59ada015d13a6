package messaging

import (
	"context"
	"time"
)

// Noop accepts every message and drops it.
type Noop struct{}

// NewNoop returns a Publisher that discards messages.
func NewNoop() *Noop { return &Noop{} }

func (*Noop) Close() error { return nil }

func (*Noop) Publish(ctx context.Context, destination string, _ Message) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}
