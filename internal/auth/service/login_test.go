package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"salesgate/internal/auth/metrics"
	"salesgate/internal/auth/models"
	sessionStore "salesgate/internal/auth/store/session"
	"salesgate/internal/auth/token"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/audit"
)

const chromeOnMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (s *ServiceSuite) loginRequest(scope string) *models.LoginRequest {
	return &models.LoginRequest{
		Code:        " u1 ",
		Password:    "p1",
		TenantScope: scope,
		UserAgent:   chromeOnMac,
	}
}

func (s *ServiceSuite) TestLogin_Success() {
	user := s.newUser()
	var issued token.IssueParams
	var created *models.Session
	var events []audit.Event

	s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "acme", "u1", "p1").Return(user, nil)
	s.mockCodec.EXPECT().Issue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p token.IssueParams) (string, *token.Claims, error) {
			issued = p
			return "raw-token", s.newClaims(p.SessionID, p.TenantScope), nil
		})
	s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, session *models.Session) error {
			created = session
			return nil
		})
	s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			events = append(events, e)
			return nil
		}).AnyTimes()

	result, err := s.service.Login(s.ctx, s.loginRequest(" ACME "))
	s.Require().NoError(err)

	s.Equal("raw-token", result.Token)
	s.Equal(user, result.User)
	s.Require().NotNil(created)
	s.Equal(created, result.Session)

	s.Run("token is bound to the pre-generated session", func() {
		s.Equal(created.ID, issued.SessionID)
		s.Equal(user.ID, issued.UserID)
		s.Equal("acme", issued.TenantScope)
		s.Equal(user.TenantID, issued.TenantID)
	})

	s.Run("session mirrors the token", func() {
		s.Equal(token.Hash("raw-token"), created.TokenHash)
		s.Equal(s.now.Add(token.DefaultTTL), created.ExpiresAt)
		s.Equal(s.now, created.CreatedAt)
		s.Equal("acme", created.TenantScope)
		s.Contains(created.DeviceName, "Chrome")
		s.False(created.IsRevoked())
	})

	s.Run("session_created is audited", func() {
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventSessionCreated), events[0].Action)
		s.Equal(created.ID, events[0].SessionID)
		s.Equal(s.now, events[0].Timestamp)
	})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Logins.WithLabelValues(metrics.ResultSuccess)))
}

func (s *ServiceSuite) TestLogin_UnscopedBindsToOwningTenant() {
	user := s.newUser()
	s.allowAudit()
	s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "", "u1", "p1").Return(user, nil)
	s.mockCodec.EXPECT().Issue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p token.IssueParams) (string, *token.Claims, error) {
			s.Equal("acme", p.TenantScope)
			return "raw-token", s.newClaims(p.SessionID, p.TenantScope), nil
		})
	s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.service.Login(s.ctx, s.loginRequest(""))
	s.Require().NoError(err)
	s.Equal("acme", result.Session.TenantScope)
}

func (s *ServiceSuite) TestLogin_LegacyUserHasEmptyScope() {
	user := s.newUser()
	user.TenantID, user.Tenant = 0, ""
	s.allowAudit()
	s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "", "u1", "p1").Return(user, nil)
	s.mockCodec.EXPECT().Issue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p token.IssueParams) (string, *token.Claims, error) {
			return "raw-token", s.newClaims(p.SessionID, p.TenantScope), nil
		})
	s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.service.Login(s.ctx, s.loginRequest(""))
	s.Require().NoError(err)
	s.Equal("", result.Session.TenantScope)
}

func (s *ServiceSuite) TestLogin_Rejections() {
	s.Run("invalid body is rejected before authentication", func() {
		_, err := s.service.Login(s.ctx, &models.LoginRequest{Code: "  ", Password: "p1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid credentials pass through without issuing a token", func() {
		s.allowAudit()
		s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "acme", "u1", "p1").
			Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials"))

		_, err := s.service.Login(s.ctx, s.loginRequest("acme"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues("invalid_credentials")))
	})

	s.Run("upstream outage stays distinguishable from bad credentials", func() {
		s.allowAudit()
		s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "acme", "u1", "p1").
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "user store unavailable"))

		_, err := s.service.Login(s.ctx, s.loginRequest("acme"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestLogin_SessionWriteFailures() {
	setup := func(createErr error) {
		s.allowAudit()
		s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "acme", "u1", "p1").Return(s.newUser(), nil)
		s.mockCodec.EXPECT().Issue(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p token.IssueParams) (string, *token.Claims, error) {
				return "raw-token", s.newClaims(p.SessionID, p.TenantScope), nil
			})
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(createErr)
	}

	s.Run("active session conflict returns no token", func() {
		setup(sessionStore.ErrActiveSession)

		result, err := s.service.Login(s.ctx, s.loginRequest("acme"))
		s.Nil(result)
		s.True(dErrors.HasCode(err, dErrors.CodeActiveSessionConflict))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Logins.WithLabelValues(metrics.ResultConflict)))
	})

	s.Run("store failure is unavailable, not a conflict", func() {
		setup(errors.New("connection reset"))

		result, err := s.service.Login(s.ctx, s.loginRequest("acme"))
		s.Nil(result)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestLogin_IssueFailureWritesNoSession() {
	s.allowAudit()
	s.mockAuthenticator.EXPECT().Authenticate(gomock.Any(), "acme", "u1", "p1").Return(s.newUser(), nil)
	s.mockCodec.EXPECT().Issue(gomock.Any(), gomock.Any()).Return("", nil, errors.New("rand failure"))

	_, err := s.service.Login(s.ctx, s.loginRequest("acme"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
