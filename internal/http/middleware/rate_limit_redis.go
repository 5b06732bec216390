package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript counts one request and returns the new count together with the
// remaining window in milliseconds.
var windowScript = redis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {used, redis.call("PTTL", KEYS[1])}
`)

// RedisFixedWindowLimiter shares request counts between replicas. Keys are
// prefix:key and expire with their window.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("rate limit: redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	if window < time.Millisecond {
		window = time.Second
	}

	reply, err := windowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(reply) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", reply)
	}
	used, ttl := reply[0], time.Duration(reply[1])*time.Millisecond
	if ttl <= 0 {
		ttl = window
	}
	now := l.now()
	return windowDecision(used, limit, now.Add(ttl), now), nil
}
