package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuthAbuseScope separates the counters of the throttled flows, so failed
// logins never slow down a password reset and the other way around.
type AuthAbuseScope string

const (
	AuthAbuseScopeLogin  AuthAbuseScope = "login"
	AuthAbuseScopeForgot AuthAbuseScope = "forgot"
	AuthAbuseScopeReset  AuthAbuseScope = "reset"
)

// AuthAbusePolicy describes the cooldown curve. The first FreeAttempts
// failures cost nothing, after that the delay grows by Multiplier per failure
// up to MaxDelay. Counters are forgotten after ResetWindow of quiet.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

func (p AuthAbusePolicy) withDefaults() AuthAbusePolicy {
	p.FreeAttempts = max(p.FreeAttempts, 0)
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = 5 * time.Minute
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = 30 * time.Minute
	}
	return p
}

// AuthAbuseGuard tracks failures per requester identity and per client IP.
// The larger of the two cooldowns wins.
type AuthAbuseGuard interface {
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}

// NewAuthAbuseGuard returns a redis backed guard when a client is available so
// that every replica shares the counters.
func NewAuthAbuseGuard(enabled bool, client redis.UniversalClient, prefix string, policy AuthAbusePolicy) AuthAbuseGuard {
	if !enabled {
		return NewNoopAuthAbuseGuard()
	}
	if client != nil {
		return NewRedisAuthAbuseGuard(client, prefix+":auth_abuse", policy)
	}
	return NewInMemoryAuthAbuseGuard(policy)
}

// ThrottledError carries the remaining cooldown of a throttled auth flow.
type ThrottledError struct {
	Scope      AuthAbuseScope
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s throttled, retry after %s", e.Scope, e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return ErrLoginThrottled }

// abuseSubject is one requester of one flow, identified along both
// dimensions.
type abuseSubject struct {
	scope    AuthAbuseScope
	identity string
	ip       string
}

func newAbuseSubject(scope AuthAbuseScope, identity, ip string) abuseSubject {
	s := abuseSubject{
		scope:    scope,
		identity: strings.ToLower(strings.TrimSpace(identity)),
		ip:       strings.ToLower(strings.TrimSpace(ip)),
	}
	if s.identity == "" {
		s.identity = "anonymous"
	}
	if s.ip == "" {
		s.ip = "unknown"
	}
	return s
}

// keys renders the identity and ip counter names, passing each value through
// encode first.
func (s abuseSubject) keys(prefix string, encode func(string) string) []string {
	if encode == nil {
		encode = func(v string) string { return v }
	}
	base := string(s.scope)
	if prefix != "" {
		base = prefix + ":" + base
	}
	return []string{
		base + ":id:" + encode(s.identity),
		base + ":ip:" + encode(s.ip),
	}
}

// abuseCooldown is BaseDelay * Multiplier^(n-FreeAttempts-1) capped at MaxDelay.
func abuseCooldown(policy AuthAbusePolicy, failCount int) time.Duration {
	excess := failCount - policy.FreeAttempts
	if excess <= 0 {
		return 0
	}
	delay := time.Duration(float64(policy.BaseDelay) * math.Pow(policy.Multiplier, float64(excess-1)))
	if delay < 0 || delay > policy.MaxDelay {
		return policy.MaxDelay
	}
	return delay
}

type NoopAuthAbuseGuard struct{}

func NewNoopAuthAbuseGuard() *NoopAuthAbuseGuard { return &NoopAuthAbuseGuard{} }

func (*NoopAuthAbuseGuard) Check(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (*NoopAuthAbuseGuard) RegisterFailure(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (*NoopAuthAbuseGuard) Reset(context.Context, AuthAbuseScope, string, string) error { return nil }

type failureCounter struct {
	failures  int
	lastFail  time.Time
	blockedTo time.Time
}

// InMemoryAuthAbuseGuard keeps counters in process memory. It is meant for
// single replica deployments and tests.
type InMemoryAuthAbuseGuard struct {
	mu       sync.Mutex
	policy   AuthAbusePolicy
	counters map[string]*failureCounter
	now      func() time.Time
}

func NewInMemoryAuthAbuseGuard(policy AuthAbusePolicy) *InMemoryAuthAbuseGuard {
	return &InMemoryAuthAbuseGuard{
		policy:   policy.withDefaults(),
		counters: make(map[string]*failureCounter),
		now:      time.Now,
	}
}

func (g *InMemoryAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	var longest time.Duration
	for _, key := range newAbuseSubject(scope, identity, ip).keys("", nil) {
		c, ok := g.counters[key]
		if !ok {
			continue
		}
		if now.Sub(c.lastFail) > g.policy.ResetWindow {
			delete(g.counters, key)
			continue
		}
		if remaining := c.blockedTo.Sub(now); remaining > longest {
			longest = remaining
		}
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	var longest time.Duration
	for _, key := range newAbuseSubject(scope, identity, ip).keys("", nil) {
		c := g.counters[key]
		if c == nil || now.Sub(c.lastFail) > g.policy.ResetWindow {
			c = &failureCounter{}
			g.counters[key] = c
		}
		c.failures++
		c.lastFail = now
		delay := abuseCooldown(g.policy, c.failures)
		c.blockedTo = now.Add(delay)
		longest = max(longest, delay)
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, key := range newAbuseSubject(scope, identity, ip).keys("", nil) {
		delete(g.counters, key)
	}
	return nil
}
