package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisProfileCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisProfileCacheStore(client redis.UniversalClient, prefix string) *RedisProfileCacheStore {
	if prefix == "" {
		prefix = "profile_cache"
	}
	return &RedisProfileCacheStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisProfileCacheStore) Get(ctx context.Context, member, section string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	value, err := s.client.Get(ctx, s.dataKey(member, section)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("profile cache get: %w", err)
	}
	return value, true, nil
}

func (s *RedisProfileCacheStore) Set(ctx context.Context, member, section string, value []byte, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	dataKey := s.dataKey(member, section)
	memberIndex := s.memberIndexKey(member)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey, value, ttl)
	pipe.SAdd(ctx, memberIndex, dataKey)
	pipe.Expire(ctx, memberIndex, ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("profile cache set: %w", err)
	}
	return nil
}

func (s *RedisProfileCacheStore) InvalidateMember(ctx context.Context, member string) error {
	if s.client == nil {
		return nil
	}
	memberIndex := s.memberIndexKey(member)
	keys, err := s.client.SMembers(ctx, memberIndex).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("profile cache index: %w", err)
	}
	pipe := s.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, memberIndex)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("profile cache invalidate: %w", err)
	}
	return nil
}

func (s *RedisProfileCacheStore) dataKey(member, section string) string {
	return fmt.Sprintf("%s:data:%s:%s", s.prefix, hashKeyPart(normalizeCacheMember(member)), section)
}

func (s *RedisProfileCacheStore) memberIndexKey(member string) string {
	return fmt.Sprintf("%s:index:%s", s.prefix, hashKeyPart(normalizeCacheMember(member)))
}
