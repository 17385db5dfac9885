package persistence

import (
	"context"

	"ListingHub/pkg/redis"
)

// RedisCounter backs the stats-trigger counter with the shared Redis
// instance, so the every-Nth-file cadence holds across worker processes.
type RedisCounter struct{}

func NewRedisCounter() *RedisCounter { return &RedisCounter{} }

func (RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return redis.Incr(ctx, key)
}
