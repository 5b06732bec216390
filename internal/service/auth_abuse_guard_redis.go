package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// registerFailureScript bumps every counter in KEYS and returns the longest
// cooldown in milliseconds. Each counter is a hash of failures, last and until.
var registerFailureScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local base = tonumber(ARGV[2])
local mult = tonumber(ARGV[3])
local cap = tonumber(ARGV[4])
local window = tonumber(ARGV[5])
local free = tonumber(ARGV[6])

local longest = 0
for _, key in ipairs(KEYS) do
  local failures = tonumber(redis.call("HGET", key, "failures") or "0")
  local last = tonumber(redis.call("HGET", key, "last") or "0")
  if last == 0 or now - last > window then
    failures = 0
  end
  failures = failures + 1

  local delay = 0
  if failures > free then
    delay = math.min(math.floor(base * mult ^ (failures - free - 1)), cap)
  end
  redis.call("HSET", key, "failures", tostring(failures), "last", tostring(now), "until", tostring(now + delay))
  redis.call("PEXPIRE", key, tostring(window + delay))
  if delay > longest then
    longest = delay
  end
end
return longest
`)

// RedisAuthAbuseGuard shares counters between replicas. Identity and IP are
// hashed before they become part of a key name.
type RedisAuthAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AuthAbusePolicy
	now    func() time.Time
}

func NewRedisAuthAbuseGuard(client redis.UniversalClient, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	if prefix == "" {
		prefix = "auth_abuse"
	}
	return &RedisAuthAbuseGuard{client: client, prefix: prefix, policy: policy.withDefaults(), now: time.Now}
}

func (g *RedisAuthAbuseGuard) keys(scope AuthAbuseScope, identity, ip string) []string {
	return newAbuseSubject(scope, identity, ip).keys(g.prefix, hashKeyPart)
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	keys := g.keys(scope, identity, ip)
	cmds := make([]*redis.SliceCmd, len(keys))
	_, err := g.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.HMGet(ctx, key, "last", "until")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("auth abuse lookup: %w", err)
	}

	nowMS := g.now().UTC().UnixMilli()
	var longestMS int64
	for _, cmd := range cmds {
		last, until, ok, err := counterTimes(cmd.Val())
		if err != nil {
			return 0, err
		}
		if !ok || nowMS-last > g.policy.ResetWindow.Milliseconds() {
			continue
		}
		longestMS = max(longestMS, until-nowMS)
	}
	return time.Duration(longestMS) * time.Millisecond, nil
}

// RegisterFailure runs the script once per counter. The identity and ip keys
// may live in different cluster slots.
func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UTC().UnixMilli()
	var longestMS int64
	for _, key := range g.keys(scope, identity, ip) {
		delayMS, err := registerFailureScript.Run(ctx, g.client, []string{key},
			nowMS,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
			g.policy.FreeAttempts,
		).Int64()
		if err != nil {
			return 0, fmt.Errorf("auth abuse bump: %w", err)
		}
		longestMS = max(longestMS, delayMS)
	}
	return time.Duration(longestMS) * time.Millisecond, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	return g.client.Del(ctx, g.keys(scope, identity, ip)...).Err()
}

// counterTimes parses an HMGET of last and until. ok is false when the
// counter does not exist.
func counterTimes(values []any) (last, until int64, ok bool, err error) {
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return 0, 0, false, nil
	}
	parsed := [2]int64{}
	for i, v := range values {
		s, isString := v.(string)
		if !isString {
			return 0, 0, false, fmt.Errorf("unexpected redis response type %T", v)
		}
		if parsed[i], err = strconv.ParseInt(s, 10, 64); err != nil {
			return 0, 0, false, fmt.Errorf("parse redis int: %w", err)
		}
	}
	return parsed[0], parsed[1], true, nil
}

// hashKeyPart keeps emails and IPs out of redis key names.
func hashKeyPart(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:16])
}
