// internal/pkg/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter kept in Redis.
type Limiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

func NewLimiter(client *redis.Client, prefix string, max int64, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, max: max, window: window}
}

// Allow counts one attempt for subject and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, subject string) (bool, int64, error) {
	key := l.key(subject)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment %s attempt: %w", l.prefix, err)
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set %s window: %w", l.prefix, err)
		}
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= l.max, remaining, nil
}

// Remaining returns how many attempts subject has left in the current window
func (l *Limiter) Remaining(ctx context.Context, subject string) (int64, error) {
	count, err := l.client.Get(ctx, l.key(subject)).Int64()
	if err == redis.Nil {
		return l.max, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s attempts: %w", l.prefix, err)
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter
func (l *Limiter) Reset(ctx context.Context, subject string) error {
	return l.client.Del(ctx, l.key(subject)).Err()
}

func (l *Limiter) key(subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.prefix, subject)
}
