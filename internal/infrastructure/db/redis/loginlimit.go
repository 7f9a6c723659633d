package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginWindow = time.Minute

// LoginLimiter throttles authentication attempts per key using fixed windows
// backed by Redis, so the limit holds across process restarts and replicas.
// Key format: loginlimit:<key>:<window_start_unix>
type LoginLimiter struct {
	client *redis.Client
	limit  int
}

// NewLoginLimiter creates a LoginLimiter allowing up to limit attempts per
// key per window.
func NewLoginLimiter(client *redis.Client, limit int) *LoginLimiter {
	return &LoginLimiter{client: client, limit: limit}
}

// Allow counts one attempt for key and reports whether it is still within
// the window's limit.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key, time.Now())
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("login limit incr: %w", err)
	}
	if n == 1 {
		// First attempt in this window; the key expires with the window so
		// stale counters never accumulate.
		if err := l.client.Expire(ctx, k, loginWindow).Err(); err != nil {
			return false, fmt.Errorf("login limit expire: %w", err)
		}
	}
	return n <= int64(l.limit), nil
}

func (l *LoginLimiter) key(key string, now time.Time) string {
	return fmt.Sprintf("loginlimit:%s:%d", key, now.Truncate(loginWindow).Unix())
}
