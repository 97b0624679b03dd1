package gate

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type redisGate struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisGate backs the gate with SET NX PX, so the window holds across
// every replica sharing the Redis.
func NewRedisGate(rdb *goredis.Client, baseLog *logger.Logger) (Gate, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisGate{
		log: baseLog.With("service", "RedisGate"),
		rdb: rdb,
	}, nil
}

func (g *redisGate) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("gate setnx %s: %w", key, err)
	}
	return ok, nil
}

func (g *redisGate) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("gate del %s: %w", key, err)
	}
	return nil
}
