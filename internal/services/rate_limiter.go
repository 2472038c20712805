package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter caps consume attempts per account in a fixed window.
type RateLimiter struct {
	redis  *redis.Client
	max    int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: client, max: max, window: window}
}

// Allow counts one attempt and reports whether it is within the limit.
// Redis errors fail open.
func (l *RateLimiter) Allow(ctx context.Context, accountID string) (bool, error) {
	if l == nil || l.redis == nil || l.max <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("credits:ratelimit:%s", accountID)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.max), nil
}
