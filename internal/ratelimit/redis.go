package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps counters in a shared Redis so that a multi-process
// deployment enforces one budget instead of one budget per process. The
// policy (points, window, block) is identical to MemoryLimiter.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	cfg    Config
}

// NewRedisLimiter creates a Redis-backed limiter. prefix namespaces the
// keys so independent limiter instances do not collide.
func NewRedisLimiter(client *redis.Client, prefix string, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, cfg: cfg}
}

// Consume spends one attempt for key. Connectivity failures are returned
// to the caller; the auth service fails open on them so a Redis outage
// does not lock every admin out.
func (l *RedisLimiter) Consume(ctx context.Context, key string) (bool, error) {
	blockKey := fmt.Sprintf("ratelimit:%s:block:%s", l.prefix, key)
	countKey := fmt.Sprintf("ratelimit:%s:count:%s", l.prefix, key)

	blocked, err := l.client.Exists(ctx, blockKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit block check failed: %w", err)
	}
	if blocked > 0 {
		return false, nil
	}

	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit increment failed: %w", err)
	}
	if count == 1 {
		// First hit in a fresh window; the TTL is the window boundary.
		if err := l.client.Expire(ctx, countKey, l.cfg.Window).Err(); err != nil &&
			!errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}

	if count > int64(l.cfg.Points) {
		if err := l.client.Set(ctx, blockKey, 1, l.cfg.Block).Err(); err != nil {
			return false, fmt.Errorf("rate limit block set failed: %w", err)
		}
		return false, nil
	}

	return true, nil
}
