package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

const invalidationChannel = "profile.invalidated"

// ProfileCache invalidates any cached views of a user's style profile after
// the learning policy writes a new version. Readers repopulate lazily.
type ProfileCache interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type profileCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewProfileCache(rdb *goredis.Client, baseLog *logger.Logger) (ProfileCache, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &profileCache{
		log: baseLog.With("service", "ProfileCache"),
		rdb: rdb,
	}, nil
}

func (c *profileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	keys := []string{
		fmt.Sprintf("profile:%s", userID),
		fmt.Sprintf("evolution:%s", userID),
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	// Best effort: a missed publish only delays other replicas until their
	// next read-through.
	if err := c.rdb.Publish(ctx, invalidationChannel, userID.String()).Err(); err != nil {
		c.log.Warn("profile invalidation publish failed", "user_id", userID, "error", err)
	}
	return nil
}

type noopProfileCache struct{}

// NewNoopProfileCache is the fallback when Redis is not configured.
func NewNoopProfileCache() ProfileCache { return noopProfileCache{} }

func (noopProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error { return nil }
