package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProfileCacheStore holds rendered public member profiles. Entries are grouped
// per member so that one invalidation drops every section of that member.
type ProfileCacheStore interface {
	Get(ctx context.Context, member, section string) ([]byte, bool, error)
	Set(ctx context.Context, member, section string, value []byte, ttl time.Duration) error
	InvalidateMember(ctx context.Context, member string) error
}

// NewProfileCacheStore picks the store for the configured deployment shape. A
// non-positive ttl disables caching.
func NewProfileCacheStore(client redis.UniversalClient, prefix string, ttl time.Duration) ProfileCacheStore {
	switch {
	case ttl <= 0:
		return NewNoopProfileCacheStore()
	case client != nil:
		return NewRedisProfileCacheStore(client, prefix+":profile_cache")
	default:
		return NewInMemoryProfileCacheStore()
	}
}

type NoopProfileCacheStore struct{}

func NewNoopProfileCacheStore() *NoopProfileCacheStore {
	return &NoopProfileCacheStore{}
}

func (s *NoopProfileCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NoopProfileCacheStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

func (s *NoopProfileCacheStore) InvalidateMember(context.Context, string) error {
	return nil
}

type memoryCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemoryProfileCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]memoryCacheEntry
	now   func() time.Time
}

func NewInMemoryProfileCacheStore() *InMemoryProfileCacheStore {
	return &InMemoryProfileCacheStore{
		store: make(map[string]map[string]memoryCacheEntry),
		now:   time.Now,
	}
}

func (s *InMemoryProfileCacheStore) Get(_ context.Context, member, section string) ([]byte, bool, error) {
	member = normalizeCacheMember(member)
	now := s.now().UTC()
	s.mu.RLock()
	entry, ok := s.store[member][section]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		if sections, ok := s.store[member]; ok {
			delete(sections, section)
			if len(sections) == 0 {
				delete(s.store, member)
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryProfileCacheStore) Set(_ context.Context, member, section string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	member = normalizeCacheMember(member)
	s.mu.Lock()
	defer s.mu.Unlock()
	sections, ok := s.store[member]
	if !ok {
		sections = make(map[string]memoryCacheEntry)
		s.store[member] = sections
	}
	sections[section] = memoryCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().UTC().Add(ttl),
	}
	return nil
}

func (s *InMemoryProfileCacheStore) InvalidateMember(_ context.Context, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, normalizeCacheMember(member))
	return nil
}

func normalizeCacheMember(member string) string {
	v := strings.ToLower(strings.TrimSpace(member))
	if v == "" {
		return "unknown"
	}
	return v
}

func loadCachedProfile(ctx context.Context, store ProfileCacheStore, logger *slog.Logger, member, section string) (*MemberProfile, bool) {
	raw, ok, err := store.Get(ctx, member, section)
	if err != nil {
		logger.WarnContext(ctx, "profile cache read failed", "member", member, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var profile MemberProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		logger.WarnContext(ctx, "profile cache entry unreadable", "member", member, "error", err)
		return nil, false
	}
	return &profile, true
}

func storeCachedProfile(ctx context.Context, store ProfileCacheStore, logger *slog.Logger, profile *MemberProfile, ttl time.Duration) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := store.Set(ctx, profile.Username, profile.Section, raw, ttl); err != nil {
		logger.WarnContext(ctx, "profile cache write failed", "member", profile.Username, "error", err)
	}
}

func invalidateCachedProfile(ctx context.Context, store ProfileCacheStore, logger *slog.Logger, member string) {
	if err := store.InvalidateMember(ctx, member); err != nil {
		logger.WarnContext(ctx, "profile cache invalidation failed", "member", member, "error", err)
	}
}
