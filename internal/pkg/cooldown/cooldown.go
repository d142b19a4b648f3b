// Package cooldown throttles repeated actions that share a key.
package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown defines the contract for per-key cooldown windows.
type Cooldown interface {
	// Acquire starts a window for key. It reports false while a previous
	// window is still running.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release ends the window for key early.
	Release(ctx context.Context, key string) error
}

// Redis tracks cooldown windows with SET NX, so concurrent callers across
// instances observe the same window.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis-backed cooldown. Keys are namespaced with "cooldown:".
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "cooldown:"}
}

// Acquire implements Cooldown. A non-positive window always succeeds.
func (r *Redis) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	return r.client.SetNX(ctx, r.prefix+key, time.Now().UTC().Format(time.RFC3339), window).Result()
}

// Release implements Cooldown.
func (r *Redis) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Noop never blocks. It is used when the cooldown is disabled.
type Noop struct{}

// Acquire implements Cooldown.
func (Noop) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }

// Release implements Cooldown.
func (Noop) Release(context.Context, string) error { return nil }
