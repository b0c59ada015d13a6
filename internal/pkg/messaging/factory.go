package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverNoop discards messages.
	DriverNoop = "noop"
	// DriverNSQ selects the NSQ backend.
	DriverNSQ = "nsq"
	// DriverNATS selects the NATS backend.
	DriverNATS = "nats"
	// DriverKafka selects the Kafka backend.
	DriverKafka = "kafka"
	// DriverGooglePubSub selects the Google Pub/Sub backend.
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
}

// NewFromDriver constructs a Publisher by driver name. An empty driver
// selects Noop.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNoop:
		return NewNoop(), nil
	case DriverNSQ:
		return wrap(NewNSQ(opts.NSQ))
	case DriverKafka:
		return wrap(NewKafka(opts.Kafka))
	case DriverNATS:
		return wrap(NewNATS(opts.NATS))
	case DriverGooglePubSub:
		return wrap(NewPubSub(ctx, opts.PubSub))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// wrap keeps a failed constructor from leaking a typed nil into the interface.
func wrap[T Publisher](p T, err error) (Publisher, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
