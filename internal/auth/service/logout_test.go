package service

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"salesgate/internal/auth/metrics"
	"salesgate/internal/auth/models"
	sessionStore "salesgate/internal/auth/store/session"
	"salesgate/internal/auth/token"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/sentinel"
	fixtures "salesgate/pkg/testutil"
)

func (s *ServiceSuite) revokedCopy(session *models.Session, reason models.RevokeReason) *models.Session {
	c := *session
	c.Revoke(s.now, reason)
	return &c
}

func (s *ServiceSuite) TestLogout_Success() {
	sid := fixtures.TestIDs.SessionID1
	claims := s.newClaims(sid, "acme")
	session := s.newSession(sid, "acme")
	s.allowAudit()

	gomock.InOrder(
		s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil),
		s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).Return(true, nil),
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonLogout).
			Return(s.revokedCopy(session, models.RevokeReasonLogout), nil),
	)

	err := s.service.Logout(s.ctx, " raw-token ")
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Logouts.WithLabelValues(metrics.ResultSuccess)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionsRevoked.WithLabelValues("logout")))
}

func (s *ServiceSuite) TestLogout_SecondLogoutIsTokenRevoked() {
	sid := fixtures.TestIDs.SessionID1
	claims := s.newClaims(sid, "acme")
	session := s.newSession(sid, "acme")
	s.allowAudit()

	s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil)
	s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).Return(false, nil)
	s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonLogout).
		Return(s.revokedCopy(session, models.RevokeReasonLogout), sessionStore.ErrSessionRevoked)

	err := s.service.Logout(s.ctx, "raw-token")
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Logouts.WithLabelValues(metrics.ResultAlreadyRevoked)))
}

// A previous logout blacklisted the token but failed to revoke the session;
// retrying completes the revoke and still reports the token as revoked.
func (s *ServiceSuite) TestLogout_RetryCompletesHalfFinishedLogout() {
	sid := fixtures.TestIDs.SessionID1
	claims := s.newClaims(sid, "acme")
	session := s.newSession(sid, "acme")
	s.allowAudit()

	s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil)
	s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).Return(false, nil)
	s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonLogout).
		Return(s.revokedCopy(session, models.RevokeReasonLogout), nil)

	err := s.service.Logout(s.ctx, "raw-token")
	s.True(dErrors.HasCode(err, dErrors.CodeTokenRevoked))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionsRevoked.WithLabelValues("logout")))
}

func (s *ServiceSuite) TestLogout_FallsBackToActiveSessionForScope() {
	claims := s.newClaims(fixtures.TestIDs.SessionID1, "acme")
	active := s.newSession(fixtures.TestIDs.SessionID2, "acme")
	active.TokenHash = token.Hash("raw-token")
	s.allowAudit()

	s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil)
	s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).Return(true, nil)
	gomock.InOrder(
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), fixtures.TestIDs.SessionID1, s.now, models.RevokeReasonLogout).
			Return(nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)),
		s.mockSessionStore.EXPECT().FindActive(gomock.Any(), claims.UserID, "acme").Return(active, nil),
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), fixtures.TestIDs.SessionID2, s.now, models.RevokeReasonLogout).
			Return(s.revokedCopy(active, models.RevokeReasonLogout), nil),
	)

	s.Require().NoError(s.service.Logout(s.ctx, "raw-token"))
}

func (s *ServiceSuite) TestLogout_FallbackLeavesAnotherTokensSessionActive() {
	claims := s.newClaims(fixtures.TestIDs.SessionID1, "acme")
	newer := s.newSession(fixtures.TestIDs.SessionID2, "acme")
	newer.TokenHash = token.Hash("token-from-another-device")
	s.allowAudit()

	s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil)
	s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).Return(true, nil)
	s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), fixtures.TestIDs.SessionID1, s.now, models.RevokeReasonLogout).
		Return(nil, sentinel.ErrNotFound)
	s.mockSessionStore.EXPECT().FindActive(gomock.Any(), claims.UserID, "acme").Return(newer, nil)
	s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), fixtures.TestIDs.SessionID2, gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.service.Logout(s.ctx, "raw-token"))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.SessionsRevoked.WithLabelValues("logout")))
}

func (s *ServiceSuite) TestLogout_NoSessionAnywhereStillSucceeds() {
	claims := s.newClaims(fixtures.TestIDs.SessionID1, "acme")
	s.allowAudit()

	s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil)
	s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).Return(true, nil)
	s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrNotFound)
	s.mockSessionStore.EXPECT().FindActive(gomock.Any(), claims.UserID, "acme").Return(nil, sentinel.ErrNotFound)

	s.NoError(s.service.Logout(s.ctx, "raw-token"))
}

func (s *ServiceSuite) TestLogout_Failures() {
	s.Run("missing token", func() {
		err := s.service.Logout(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Equal(1, testutil.CollectAndCount(s.metrics.LogoutDurationMs))
	})

	s.Run("verification errors pass through and nothing is blacklisted", func() {
		s.allowAudit()
		s.mockCodec.EXPECT().Verify(gomock.Any(), "expired").
			Return(nil, dErrors.New(dErrors.CodeTokenExpired, "token expired"))

		err := s.service.Logout(s.ctx, "expired")
		s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues("token_expired")))
	})

	s.Run("blacklist outage leaves the session alone", func() {
		claims := s.newClaims(fixtures.TestIDs.SessionID1, "acme")
		s.allowAudit()
		s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token").Return(claims, nil)
		s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token", claims.UserID, claims.ExpiresAt).
			Return(false, dErrors.New(dErrors.CodeUnavailable, "blacklist unavailable"))

		err := s.service.Logout(s.ctx, "raw-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("session store outage after blacklisting is unavailable", func() {
		claims := s.newClaims(fixtures.TestIDs.SessionID1, "acme")
		s.allowAudit()
		s.mockCodec.EXPECT().Verify(gomock.Any(), "raw-token-2").Return(claims, nil)
		s.mockBlacklist.EXPECT().Revoke(gomock.Any(), "raw-token-2", claims.UserID, claims.ExpiresAt).Return(true, nil)
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), fixtures.TestIDs.SessionID1, s.now, models.RevokeReasonLogout).
			Return(nil, errors.New("i/o timeout"))

		err := s.service.Logout(s.ctx, "raw-token-2")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
