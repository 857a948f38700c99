package redis

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether a keyed action may proceed within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var (
	_ Limiter = (*RateLimiter)(nil)
	_ Limiter = AllowAll{}
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	count, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

// AllowAll is used when Redis is not configured.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }

// UserCommandKey scopes a counter to one Telegram user and command.
func UserCommandKey(userID int64, command string) string {
	return fmt.Sprintf("rl:%d:%s", userID, command)
}
