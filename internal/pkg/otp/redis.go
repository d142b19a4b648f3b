package otp

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the key only when both the code matches and the
// stored expiry (unix millis) is not before the supplied instant.
var consumeScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code or code ~= ARGV[1] then
	return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'exp'))
if exp == nil or exp < tonumber(ARGV[2]) then
	return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// Redis is a Store shared by every instance pointing at the same server.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis-backed store. Keys are namespaced with "otp:".
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "otp:"}
}

// Issue implements Store.
func (r *Redis) Issue(ctx context.Context, key, code string, expiresAt time.Time) error {
	fk := r.prefix + key

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, fk)
		pipe.HSet(ctx, fk, "code", code, "exp", expiresAt.UnixMilli())
		pipe.PExpireAt(ctx, fk, expiresAt)
		return nil
	})

	return err
}

// Consume implements Store.
func (r *Redis) Consume(ctx context.Context, key, code string, at time.Time) (bool, error) {
	n, err := consumeScript.Run(ctx, r.client, []string{r.prefix + key}, code, at.UnixMilli()).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
