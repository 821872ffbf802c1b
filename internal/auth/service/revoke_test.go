package service

import (
	"errors"

	"go.uber.org/mock/gomock"

	"salesgate/internal/auth/models"
	sessionStore "salesgate/internal/auth/store/session"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/sentinel"
	fixtures "salesgate/pkg/testutil"
)

func (s *ServiceSuite) TestForceRevokeSession() {
	sid := fixtures.TestIDs.SessionID1

	s.Run("revokes and blacklists the bound token", func() {
		session := s.newSession(sid, "acme")
		s.allowAudit()
		gomock.InOrder(
			s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonForced).
				Return(s.revokedCopy(session, models.RevokeReasonForced), nil),
			s.mockBlacklist.EXPECT().RevokeHash(gomock.Any(), session.TokenHash, session.UserID, session.ExpiresAt).
				Return(true, nil),
		)

		n, err := s.service.ForceRevokeSession(s.ctx, sid)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("already revoked session still has its token blacklisted", func() {
		session := s.newSession(sid, "acme")
		s.allowAudit()
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonForced).
			Return(s.revokedCopy(session, models.RevokeReasonLogout), sessionStore.ErrSessionRevoked)
		s.mockBlacklist.EXPECT().RevokeHash(gomock.Any(), session.TokenHash, session.UserID, session.ExpiresAt).
			Return(false, nil)

		n, err := s.service.ForceRevokeSession(s.ctx, sid)
		s.Require().NoError(err)
		s.Equal(0, n)
	})

	s.Run("unknown session is not found", func() {
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonForced).
			Return(nil, sentinel.ErrNotFound)

		_, err := s.service.ForceRevokeSession(s.ctx, sid)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("nil session id is rejected", func() {
		_, err := s.service.ForceRevokeSession(s.ctx, id.SessionID{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("blacklist outage is reported after the session is revoked", func() {
		session := s.newSession(sid, "acme")
		s.allowAudit()
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), sid, s.now, models.RevokeReasonForced).
			Return(s.revokedCopy(session, models.RevokeReasonForced), nil)
		s.mockBlacklist.EXPECT().RevokeHash(gomock.Any(), session.TokenHash, session.UserID, session.ExpiresAt).
			Return(false, dErrors.New(dErrors.CodeUnavailable, "blacklist unavailable"))

		n, err := s.service.ForceRevokeSession(s.ctx, sid)
		s.Equal(1, n)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestForceLogoutUser() {
	userID := fixtures.TestIDs.UserID1
	acme := s.newSession(fixtures.TestIDs.SessionID1, "acme")
	globex := s.newSession(fixtures.TestIDs.SessionID2, "globex")

	expectRevoke := func(session *models.Session) {
		s.mockSessionStore.EXPECT().RevokeIfActive(gomock.Any(), session.ID, s.now, models.RevokeReasonForced).
			Return(s.revokedCopy(session, models.RevokeReasonForced), nil)
		s.mockBlacklist.EXPECT().RevokeHash(gomock.Any(), session.TokenHash, session.UserID, session.ExpiresAt).
			Return(true, nil)
	}

	s.Run("single scope", func() {
		s.allowAudit()
		s.mockSessionStore.EXPECT().ListActiveByUser(gomock.Any(), userID).
			Return([]*models.Session{acme, globex}, nil)
		expectRevoke(globex)

		n, err := s.service.ForceLogoutUser(s.ctx, userID, "globex")
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("all scopes", func() {
		s.allowAudit()
		s.mockSessionStore.EXPECT().ListActiveByUser(gomock.Any(), userID).
			Return([]*models.Session{acme, globex}, nil)
		expectRevoke(acme)
		expectRevoke(globex)

		n, err := s.service.ForceLogoutUser(s.ctx, userID, models.AllScopes)
		s.Require().NoError(err)
		s.Equal(2, n)
	})

	s.Run("nothing active", func() {
		s.allowAudit()
		s.mockSessionStore.EXPECT().ListActiveByUser(gomock.Any(), userID).Return([]*models.Session{}, nil)

		n, err := s.service.ForceLogoutUser(s.ctx, userID, models.AllScopes)
		s.Require().NoError(err)
		s.Equal(0, n)
	})

	s.Run("store outage", func() {
		s.mockSessionStore.EXPECT().ListActiveByUser(gomock.Any(), userID).Return(nil, errors.New("timeout"))

		_, err := s.service.ForceLogoutUser(s.ctx, userID, models.AllScopes)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
