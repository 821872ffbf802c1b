package blacklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"salesgate/internal/auth/models"
	"salesgate/internal/auth/store/revocation"
	"salesgate/internal/auth/token"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/requestcontext"
)

type BlacklistSuite struct {
	suite.Suite
	store *revocation.InMemoryStore
	bl    *Blacklist
	now   time.Time
	ctx   context.Context
}

func TestBlacklistSuite(t *testing.T) {
	suite.Run(t, new(BlacklistSuite))
}

func (s *BlacklistSuite) SetupTest() {
	s.store = revocation.NewInMemory()
	s.bl = New(s.store)
	s.now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *BlacklistSuite) TestRevokeIsIdempotent() {
	userID := id.NewUserID()

	first, err := s.bl.Revoke(s.ctx, "tok-1", userID, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.True(first)

	second, err := s.bl.Revoke(s.ctx, "tok-1", userID, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(second)
}

func (s *BlacklistSuite) TestIsRevoked() {
	_, err := s.bl.Revoke(s.ctx, "tok-1", id.NewUserID(), s.now.Add(time.Hour))
	s.Require().NoError(err)

	revoked, err := s.bl.IsRevoked(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.bl.IsRevoked(s.ctx, "tok-2")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *BlacklistSuite) TestStoresOnlyTheHash() {
	_, err := s.bl.Revoke(s.ctx, "raw-secret-token", id.NewUserID(), s.now.Add(time.Hour))
	s.Require().NoError(err)

	exists, err := s.store.Exists(s.ctx, "raw-secret-token")
	s.Require().NoError(err)
	s.False(exists)

	exists, err = s.store.Exists(s.ctx, token.Hash("raw-secret-token"))
	s.Require().NoError(err)
	s.True(exists)
}

func (s *BlacklistSuite) TestRevokeHashMatchesRawRevocation() {
	inserted, err := s.bl.RevokeHash(s.ctx, token.Hash("tok-1"), id.NewUserID(), s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.True(inserted)

	again, err := s.bl.Revoke(s.ctx, "tok-1", id.NewUserID(), s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(again)

	_, err = s.bl.RevokeHash(s.ctx, "", id.NewUserID(), s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *BlacklistSuite) TestPurge() {
	_, _ = s.bl.Revoke(s.ctx, "short", id.NewUserID(), s.now.Add(time.Minute))
	_, _ = s.bl.Revoke(s.ctx, "long", id.NewUserID(), s.now.Add(time.Hour))

	n, err := s.bl.Purge(s.ctx, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(1, s.store.Len())
}

type failingStore struct{ mock.Mock }

func (f *failingStore) Insert(ctx context.Context, entry *models.BlacklistedToken) (bool, error) {
	args := f.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (f *failingStore) Exists(ctx context.Context, tokenHash string) (bool, error) {
	args := f.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (f *failingStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := f.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (s *BlacklistSuite) TestStoreFailuresAreUnavailable() {
	store := new(failingStore)
	store.On("Insert", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
	store.On("Exists", mock.Anything, mock.Anything).Return(false, errors.New("i/o timeout"))
	bl := New(store)

	_, err := bl.Revoke(s.ctx, "tok", id.NewUserID(), s.now.Add(time.Hour))
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	_, err = bl.IsRevoked(s.ctx, "tok")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
