package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter counts hits per key inside a fixed window that opens on the first hit.
type Counter interface {
	// Hit records one hit and returns the count inside the current window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	// Reset forgets key.
	Reset(ctx context.Context, key string) error
}

// RedisCounter keeps counters in redis so every instance shares them.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCounter returns a redis-backed Counter. Keys are namespaced with "attempts:".
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client, prefix: "attempts:"}
}

// Hit implements Counter.
func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	fk := r.prefix + key

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fk)
		pipe.ExpireNX(ctx, fk, window)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

// Reset implements Counter.
func (r *RedisCounter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// memorySweepAt is the map size above which expired counters are dropped.
const memorySweepAt = 4096

type memoryCount struct {
	n       int64
	resetAt time.Time
}

// MemoryCounter is a Counter for a single instance.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]memoryCount
	now    func() time.Time
}

// NewMemoryCounter returns an in-process Counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]memoryCount), now: time.Now}
}

// Hit implements Counter.
func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.counts) >= memorySweepAt {
		for k, c := range m.counts {
			if !now.Before(c.resetAt) {
				delete(m.counts, k)
			}
		}
	}

	c, ok := m.counts[key]
	if !ok || !now.Before(c.resetAt) {
		c = memoryCount{resetAt: now.Add(window)}
	}
	c.n++
	m.counts[key] = c

	return c.n, nil
}

// Reset implements Counter.
func (m *MemoryCounter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.counts, key)
	m.mu.Unlock()
	return nil
}
