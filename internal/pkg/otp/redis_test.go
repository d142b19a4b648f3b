package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/atomic"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedis_IssueConsume(t *testing.T) {
	client := newRedisClient(t)
	store := NewRedis(client)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("SingleUse", func(t *testing.T) {
		require.NoError(t, store.Issue(ctx, "single@example.com", "hash-1", now.Add(time.Minute)))

		first, err := store.Consume(ctx, "single@example.com", "hash-1", now)
		require.NoError(t, err)
		second, err := store.Consume(ctx, "single@example.com", "hash-1", now)
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
	})

	t.Run("ExpiredAtCallerClock", func(t *testing.T) {
		require.NoError(t, store.Issue(ctx, "late@example.com", "hash-1", now.Add(time.Minute)))

		ok, err := store.Consume(ctx, "late@example.com", "hash-1", now.Add(2*time.Minute))

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReissueSupersedes", func(t *testing.T) {
		require.NoError(t, store.Issue(ctx, "re@example.com", "hash-old", now.Add(time.Minute)))
		require.NoError(t, store.Issue(ctx, "re@example.com", "hash-new", now.Add(time.Minute)))

		old, err := store.Consume(ctx, "re@example.com", "hash-old", now)
		require.NoError(t, err)
		latest, err := store.Consume(ctx, "re@example.com", "hash-new", now)
		require.NoError(t, err)

		assert.False(t, old)
		assert.True(t, latest)
	})

	t.Run("ConcurrentConsumeSucceedsOnce", func(t *testing.T) {
		require.NoError(t, store.Issue(ctx, "race@example.com", "hash-1", now.Add(time.Minute)))

		var (
			wg      sync.WaitGroup
			success atomic.Int32
		)
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := store.Consume(ctx, "race@example.com", "hash-1", now); err == nil && ok {
					success.Inc()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), success.Load())
	})
}
