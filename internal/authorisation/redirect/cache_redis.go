package redirect

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
)

// Redis key prefix for redirect sessions.
const redirectKeyPrefix = "sca:redirect:"

// RedisCache is the production cache for distributed deployments: every
// instance sees the same redirect sessions, and Redis expires them without a
// cleanup job.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed redirect cache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Save(ctx context.Context, redirectID id.RedirectID, authorisationID id.AuthorisationID) error {
	key := redirectKeyPrefix + redirectID.String()
	return c.client.Set(ctx, key, authorisationID.String(), c.ttl).Err()
}

func (c *RedisCache) Resolve(ctx context.Context, redirectID id.RedirectID) (id.AuthorisationID, error) {
	key := redirectKeyPrefix + redirectID.String()
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired and missing are indistinguishable in Redis; both mean
			// the session is no longer usable.
			return "", sentinel.ErrExpired
		}
		return "", err
	}
	return id.AuthorisationID(val), nil
}

func (c *RedisCache) Delete(ctx context.Context, redirectID id.RedirectID) error {
	return c.client.Del(ctx, redirectKeyPrefix+redirectID.String()).Err()
}
