package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// decrementFloor never lets a release drive a counter negative.
var decrementFloor = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v or tonumber(v) <= 0 then
  return 0
end
return redis.call("DECR", KEYS[1])
`)

// Redis keeps usage counters in Redis so every instance shares one view.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Increment runs INCR and EXPIREAT in one MULTI. Every increment of a period
// sets the same expiry.
func (s *Redis) Increment(ctx context.Context, key string, expiresAt time.Time) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *Redis) Decrement(ctx context.Context, key string) (int64, error) {
	n, err := decrementFloor.Run(ctx, s.client, []string{key}).Int64()
	if err != nil {
		return 0, fmt.Errorf("decrement %s: %w", key, err)
	}
	return n, nil
}

func (s *Redis) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return n, nil
}
