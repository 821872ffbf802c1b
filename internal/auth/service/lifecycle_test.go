package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"salesgate/internal/auth/blacklist"
	"salesgate/internal/auth/credentials"
	"salesgate/internal/auth/models"
	"salesgate/internal/auth/store/revocation"
	sessionStore "salesgate/internal/auth/store/session"
	userStore "salesgate/internal/auth/store/user"
	"salesgate/internal/auth/token"
	"salesgate/internal/tenant/resolver"
	tenantstore "salesgate/internal/tenant/store/tenant"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/requestcontext"
	fixtures "salesgate/pkg/testutil"
)

// LifecycleSuite wires the real codec, blacklist and in-memory stores.
type LifecycleSuite struct {
	suite.Suite
	service   *Service
	sessions  *sessionStore.InMemorySessionStore
	blacklist *blacklist.Blacklist
	codec     *token.Codec
	user      *models.User
	now       time.Time
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	ctx := context.Background()
	s.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	tenants := tenantstore.NewInMemory()
	s.Require().NoError(tenants.Create(ctx, fixtures.NewTestTenant(fixtures.TestIDs.TenantID1, "acme")))
	s.Require().NoError(tenants.Create(ctx, fixtures.NewTestTenant(fixtures.TestIDs.TenantID2, "globex")))

	users := userStore.New()
	s.user = fixtures.NewTestUser(fixtures.TestIDs.TenantID1, "acme", "u1", "p1")
	s.Require().NoError(users.Create(ctx, s.user))

	codec, err := token.New(token.Key{ID: "k1", Secret: []byte("0123456789abcdef0123456789abcdef")})
	s.Require().NoError(err)
	s.codec = codec
	s.sessions = sessionStore.New()
	s.blacklist = blacklist.New(revocation.NewInMemory())

	s.service = New(
		credentials.New(users, resolver.New(tenants)),
		s.codec,
		s.blacklist,
		s.sessions,
		users,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *LifecycleSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *LifecycleSuite) login(ctx context.Context, scope string) (*models.LoginResult, error) {
	return s.service.Login(ctx, &models.LoginRequest{Code: "u1", Password: "p1", TenantScope: scope})
}

func (s *LifecycleSuite) TestLoginConflictLogoutRelogin() {
	ctx := s.at(s.now)

	first, err := s.login(ctx, "acme")
	s.Require().NoError(err)

	_, err = s.login(s.at(s.now.Add(time.Minute)), "acme")
	s.True(dErrors.HasCode(err, dErrors.CodeActiveSessionConflict), "second login must conflict")

	s.Require().NoError(s.service.Logout(s.at(s.now.Add(2*time.Minute)), first.Token))

	revoked, err := s.blacklist.IsRevoked(ctx, first.Token)
	s.Require().NoError(err)
	s.True(revoked)

	stored, err := s.sessions.FindByID(ctx, first.Session.ID)
	s.Require().NoError(err)
	s.Equal(models.RevokeReasonLogout, stored.RevokeReason)

	err = s.service.Logout(s.at(s.now.Add(3*time.Minute)), first.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked), "second logout must report the token as revoked")

	second, err := s.login(s.at(s.now.Add(4*time.Minute)), "acme")
	s.Require().NoError(err)
	s.NotEqual(first.Session.ID, second.Session.ID)
	s.NotEqual(first.Token, second.Token)
}

func (s *LifecycleSuite) TestExpiredSessionDoesNotLockUserOut() {
	first, err := s.login(s.at(s.now), "acme")
	s.Require().NoError(err)

	later := s.now.Add(token.DefaultTTL + time.Second)
	second, err := s.login(s.at(later), "acme")
	s.Require().NoError(err)

	old, err := s.sessions.FindByID(context.Background(), first.Session.ID)
	s.Require().NoError(err)
	s.Equal(models.RevokeReasonExpired, old.RevokeReason)

	claims, err := s.codec.Verify(s.at(later), second.Token)
	s.Require().NoError(err)
	s.Equal(second.Session.ID, claims.SessionID)
}

func (s *LifecycleSuite) TestForceRevokeBlacklistsLiveToken() {
	result, err := s.login(s.at(s.now), "acme")
	s.Require().NoError(err)

	n, err := s.service.ForceRevokeSession(s.at(s.now.Add(time.Minute)), result.Session.ID)
	s.Require().NoError(err)
	s.Equal(1, n)

	revoked, err := s.blacklist.IsRevoked(context.Background(), result.Token)
	s.Require().NoError(err)
	s.True(revoked)

	err = s.service.Logout(s.at(s.now.Add(2*time.Minute)), result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
}

func (s *LifecycleSuite) TestConcurrentLoginsYieldOneSession() {
	const attempts = 20
	ctx := s.at(s.now)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.login(ctx, "acme")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeActiveSessionConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(attempts-1, conflicts)

	active, err := s.sessions.ListActiveByUser(context.Background(), s.user.ID)
	s.Require().NoError(err)
	s.Len(active, 1)
}
