package revocation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) entry(hash string, ttl time.Duration) *models.BlacklistedToken {
	return &models.BlacklistedToken{
		TokenHash: hash,
		UserID:    id.NewUserID(),
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(ttl),
	}
}

func (s *InMemoryStoreSuite) TestInsertAndExists() {
	ctx := context.Background()

	inserted, err := s.store.Insert(ctx, s.entry("h1", time.Hour))
	require.NoError(s.T(), err)
	assert.True(s.T(), inserted)

	exists, err := s.store.Exists(ctx, "h1")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	exists, err = s.store.Exists(ctx, "missing")
	require.NoError(s.T(), err)
	assert.False(s.T(), exists)
}

func (s *InMemoryStoreSuite) TestInsertIsIdempotent() {
	ctx := context.Background()

	first, err := s.store.Insert(ctx, s.entry("h1", time.Hour))
	require.NoError(s.T(), err)
	second, err := s.store.Insert(ctx, s.entry("h1", 2*time.Hour))
	require.NoError(s.T(), err)

	assert.True(s.T(), first)
	assert.False(s.T(), second)
	assert.Equal(s.T(), 1, s.store.Len())
	stored, ok := s.store.entries.Load("h1")
	require.True(s.T(), ok)
	assert.Equal(s.T(), s.now.Add(time.Hour), stored.ExpiresAt, "first writer wins")
}

func (s *InMemoryStoreSuite) TestConcurrentInsertHasOneWinner() {
	ctx := context.Background()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.Insert(ctx, s.entry("race", time.Hour))
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(s.T(), int32(1), wins.Load())
}

func (s *InMemoryStoreSuite) TestDeleteExpired() {
	ctx := context.Background()
	_, _ = s.store.Insert(ctx, s.entry("short", time.Minute))
	_, _ = s.store.Insert(ctx, s.entry("long", time.Hour))

	deleted, err := s.store.DeleteExpired(ctx, s.now.Add(time.Minute))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, deleted)

	exists, _ := s.store.Exists(ctx, "short")
	assert.False(s.T(), exists)
	exists, _ = s.store.Exists(ctx, "long")
	assert.True(s.T(), exists)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
