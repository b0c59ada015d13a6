package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrClosed is returned when publishing on a closed publisher.
	ErrClosed = errors.New("messaging: publisher is closed")
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
)

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg Message) (PublishResult, error)
}

// Message is a broker-agnostic outgoing message.
type Message struct {
	Body []byte
	// Key is used by Kafka for partitioning and by Pub/Sub as ordering key.
	Key     []byte
	Headers []Header
}

// Header is a key/value pair attached to a message.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries what the broker reported back, if anything.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

func (m Message) headerMap() map[string]string {
	if len(m.Headers) == 0 {
		return nil
	}

	out := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		if h.Key == "" {
			continue
		}
		out[h.Key] = string(h.Value)
	}
	return out
}
