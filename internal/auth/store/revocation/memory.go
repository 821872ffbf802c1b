package revocation

import (
	"context"
	"time"

	"salesgate/internal/auth/models"
	platformsync "salesgate/pkg/platform/sync"
)

// Error Contract:
// All store methods follow this error pattern:
// - Insert reports false (and no error) when the hash is already present
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps blacklisted token hashes in memory for tests and dev.
// Entries are sharded by hash since Exists runs on every protected request.
type InMemoryStore struct {
	entries *platformsync.Map[*models.BlacklistedToken]
}

// NewInMemory constructs an empty in-memory blacklist store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: platformsync.NewMap[*models.BlacklistedToken]()}
}

// Insert adds the entry unless its hash is already blacklisted.
func (s *InMemoryStore) Insert(_ context.Context, entry *models.BlacklistedToken) (bool, error) {
	stored := *entry
	_, loaded := s.entries.LoadOrStore(entry.TokenHash, &stored)
	return !loaded, nil
}

func (s *InMemoryStore) Exists(_ context.Context, tokenHash string) (bool, error) {
	_, ok := s.entries.Load(tokenHash)
	return ok, nil
}

// DeleteExpired removes entries whose mirrored token expiry is at or before now.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	return s.entries.DeleteFunc(func(_ string, entry *models.BlacklistedToken) bool {
		return !entry.ExpiresAt.After(now)
	}), nil
}

// Len is used by tests and the health endpoint.
func (s *InMemoryStore) Len() int {
	return s.entries.Len()
}
