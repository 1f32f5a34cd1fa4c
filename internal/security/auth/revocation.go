package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/aryan0dhankhar/aptlease/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/aptlease/pkg/cache"
)

// RevocationStore remembers logged-out token ids until the token would have
// expired anyway
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedPrefix = "revoked:"

// RedisRevocationStore keeps revoked token ids in Redis with a TTL
type RedisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedPrefix+tokenID, "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := s.client.Exists(ctx, revokedPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return revoked, nil
}

// CacheRevocationStore keeps revoked token ids in process memory. Used when
// Redis is not configured; revocations are lost on restart.
type CacheRevocationStore struct {
	cache *cache.Cache
}

func NewCacheRevocationStore(c *cache.Cache) *CacheRevocationStore {
	if c == nil {
		c = cache.New()
	}
	return &CacheRevocationStore{cache: c}
}

func (s *CacheRevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(revokedPrefix+tokenID, true, ttl)
	return nil
}

func (s *CacheRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := s.cache.Get(revokedPrefix + tokenID)
	return ok, nil
}
