package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR and PEXPIRE must be one atomic step; otherwise a crash between them
// leaves a counter with no expiry.
var incrWithExpiry = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

const redisCallTimeout = 2 * time.Second

// FixedWindowLimiter counts requests per key in fixed wall-clock windows,
// with the counters in Redis so all replicas share one budget.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	prefix string
	client *redis.Client
}

// NewRedisFixedWindowLimiter validates the inputs and connects lazily; the
// first Allow call hits Redis.
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "skyward:ratelimit"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		prefix: prefix,
		client: client,
	}, nil
}

// Allow reports whether the key still has quota in the current window.
// Redis failures deny the request rather than opening the gate.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	slot := time.Now().UTC().UnixMilli() / windowMs
	counter := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	count, err := incrWithExpiry.Run(ctx, l.client, []string{counter}, windowMs).Int64()
	if err != nil {
		return false
	}
	return count <= int64(l.limit)
}
