package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"salesgate/internal/auth/models"
)

const (
	blacklistKeyPrefix = "blacklist:"

	// minEntryTTL keeps an entry for a token that is about to expire.
	minEntryTTL = time.Second
)

// RedisStore keeps blacklisted hashes as keys whose TTL mirrors the token's
// remaining life, so Redis itself performs the purge.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed blacklist store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(tokenHash string) string {
	return blacklistKeyPrefix + tokenHash
}

// Insert uses SETNX so concurrent logouts of the same token agree on a single winner.
func (s *RedisStore) Insert(ctx context.Context, entry *models.BlacklistedToken) (bool, error) {
	ttl := entry.ExpiresAt.Sub(entry.CreatedAt)
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}
	ok, err := s.client.SetNX(ctx, s.key(entry.TokenHash), entry.UserID.String(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("insert blacklisted token: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Exists(ctx context.Context, tokenHash string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: key TTLs already remove expired entries.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
