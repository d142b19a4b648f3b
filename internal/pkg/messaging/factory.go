package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by NewFromDriver. An empty name means DriverNoop.
const (
	DriverNoop         = "noop"
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the settings of every backend; only the one matching
// the selected driver is read.
type FactoryOptions struct {
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
}

type constructor func(ctx context.Context, opts FactoryOptions) (Messaging, error)

var drivers = map[string]constructor{
	DriverNoop: func(context.Context, FactoryOptions) (Messaging, error) {
		return NewNoop(), nil
	},
	DriverNSQ: func(_ context.Context, opts FactoryOptions) (Messaging, error) {
		return NewNSQ(opts.NSQ)
	},
	DriverKafka: func(_ context.Context, opts FactoryOptions) (Messaging, error) {
		return NewKafka(opts.Kafka)
	},
	DriverNATS: func(_ context.Context, opts FactoryOptions) (Messaging, error) {
		return NewNATS(opts.NATS)
	},
	DriverGooglePubSub: func(ctx context.Context, opts FactoryOptions) (Messaging, error) {
		return NewPubSub(ctx, opts.PubSub)
	},
}

// NewFromDriver builds the backend named by driver (case-insensitive).
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "" {
		name = DriverNoop
	}

	build, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	m, err := build(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("messaging: %s: %w", name, err)
	}

	return m, nil
}
