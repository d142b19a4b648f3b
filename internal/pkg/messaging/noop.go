package messaging

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// Noop accepts every message and discards it.
type Noop struct {
	published atomic.Int64
}

// NewNoop returns a discarding publisher.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish implements Publisher.
func (n *Noop) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := validDestination(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	n.published.Inc()
	slog.DebugContext(ctx, "message discarded by noop publisher", "destination", destination, "bytes", len(msg.Body))

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Published returns how many messages were accepted.
func (n *Noop) Published() int64 {
	return n.published.Load()
}

// Close implements io.Closer.
func (n *Noop) Close() error {
	return nil
}
