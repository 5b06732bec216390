package middleware

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiterForTest(t *testing.T) (*miniredis.Miniredis, *redis.Client, *RedisFixedWindowLimiter) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		m.Close()
	})
	return m, client, NewRedisFixedWindowLimiter(client, "rl_test")
}

func TestRedisFixedWindowLimiterAllowDenyAndFallbackKey(t *testing.T) {
	_, _, limiter := newRedisLimiterForTest(t)
	ctx := context.Background()
	d1, err := limiter.Allow(ctx, "", 1, time.Second)
	if err != nil {
		t.Fatalf("allow first request: %v", err)
	}
	if !d1.Allowed {
		t.Fatalf("expected first request to be allowed: %+v", d1)
	}

	d2, err := limiter.Allow(ctx, "", 1, time.Second)
	if err != nil {
		t.Fatalf("allow second request: %v", err)
	}
	if d2.Allowed {
		t.Fatalf("expected second request denied: %+v", d2)
	}
	if d2.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", d2.RetryAfter)
	}
	if d1.Remaining != 0 || d2.Remaining != 0 {
		t.Fatalf("expected remaining to bottom out at 0, got %d and %d", d1.Remaining, d2.Remaining)
	}
}

func TestRedisFixedWindowLimiterWindowExpiry(t *testing.T) {
	m, _, limiter := newRedisLimiterForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "auth:198.51.100.4", 3, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: expected allow, got %+v err=%v", i+1, d, err)
		}
	}
	if d, _ := limiter.Allow(ctx, "auth:198.51.100.4", 3, time.Minute); d.Allowed {
		t.Fatal("expected fourth request to be denied")
	}
	if !m.Exists("rl_test:auth:198.51.100.4") {
		t.Fatalf("expected prefixed key, have %v", m.Keys())
	}
	m.FastForward(time.Minute + time.Second)
	if d, _ := limiter.Allow(ctx, "auth:198.51.100.4", 3, time.Minute); !d.Allowed {
		t.Fatal("expected allow after window expiry")
	}
}

func TestRedisFixedWindowLimiterBackendAndNilClientErrors(t *testing.T) {
	limiter := NewRedisFixedWindowLimiter(nil, "")
	if _, err := limiter.Allow(context.Background(), "k", 1, time.Second); err == nil {
		t.Fatal("expected nil client error")
	}

	badClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond, ReadTimeout: 20 * time.Millisecond, WriteTimeout: 20 * time.Millisecond})
	t.Cleanup(func() { _ = badClient.Close() })
	limiter = NewRedisFixedWindowLimiter(badClient, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := limiter.Allow(ctx, "k", 1, time.Second); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestWindowDecision(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	reset := now.Add(30 * time.Second)

	d := windowDecision(2, 3, reset, now)
	if !d.Allowed || d.Remaining != 1 || d.RetryAfter != 0 || !d.ResetAt.Equal(reset) {
		t.Fatalf("unexpected allow decision %+v", d)
	}
	d = windowDecision(4, 3, reset, now)
	if d.Allowed || d.Remaining != 0 || d.RetryAfter != 30*time.Second {
		t.Fatalf("unexpected deny decision %+v", d)
	}
	if d = windowDecision(4, 3, now.Add(-time.Second), now); d.RetryAfter != 0 {
		t.Fatalf("expected retry-after floored at zero, got %v", d.RetryAfter)
	}
}
