package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "feedbackhub:revoked:"

// Revoker remembers signed-out token IDs until the token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker keeps revocations in an in-process expiring cache.
type MemoryRevoker struct {
	cache *gocache.Cache
}

// NewMemoryRevoker creates a revoker that sweeps expired entries every cleanup interval.
func NewMemoryRevoker(cleanup time.Duration) *MemoryRevoker {
	return &MemoryRevoker{cache: gocache.New(gocache.NoExpiration, cleanup)}
}

// Revoke implements Revoker.
func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	m.cache.Set(tokenID, struct{}{}, ttl)
	return nil
}

// IsRevoked implements Revoker.
func (m *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := m.cache.Get(tokenID)
	return found, nil
}

// RedisRevoker shares revocations across instances.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker creates a redis-backed revoker.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// Revoke implements Revoker.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements Revoker.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, revokedPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return true, nil
}
