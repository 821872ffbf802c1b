package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"salesgate/internal/auth/handler/mocks"
	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	authmw "salesgate/pkg/platform/middleware/auth"
	"salesgate/pkg/requestcontext"
)

type AuthHandlerSuite struct {
	suite.Suite
	now time.Time
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupSuite() {
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}

func (s *AuthHandlerSuite) newHandler(t *testing.T) (*mocks.MockService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterProtected(r)
	h.RegisterAdmin(r)
	return mockService, r
}

func do(t *testing.T, router http.Handler, req *http.Request) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func (s *AuthHandlerSuite) TestHandler_Login() {
	user := &models.User{
		ID:    id.NewUserID(),
		Code:  "u-100",
		Email: "ana@acme.test",
		Role:  models.RoleSales,
	}
	session := &models.Session{
		ID:          id.NewSessionID(),
		UserID:      user.ID,
		TenantScope: "acme",
		ExpiresAt:   s.now.Add(12 * time.Hour),
	}

	s.T().Run("200 - passes tenant signal and user agent to the service", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Login(gomock.Any(), &models.LoginRequest{
			Code:        "u-100",
			Password:    "pw",
			TenantScope: "Acme",
			UserAgent:   "Mozilla/5.0",
		}).Return(&models.LoginResult{User: user, Session: session, Token: "jwt"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"code":"u-100","password":"pw"}`))
		ctx := requestcontext.WithTenantSignal(req.Context(), "Acme")
		ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "Mozilla/5.0")

		status, body := do(t, router, req.WithContext(ctx))

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, user.ID.String(), body["id"])
		assert.Equal(t, "u-100", body["code"])
		assert.Equal(t, "sales", body["role"])
		assert.Equal(t, "acme", body["tenant"])
		assert.Equal(t, session.ID.String(), body["sessionId"])
		assert.Equal(t, "jwt", body["token"])
		assert.Equal(t, "2026-05-04T22:00:00Z", body["expiresAt"])
	})

	s.T().Run("400 - invalid json body", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		status, body := do(t, router, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"code":`)))

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad_request", body["error"])
	})

	s.T().Run("409 - active session", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeActiveSessionConflict, "user already has an active session"))

		status, body := do(t, router, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"code":"u-100","password":"pw"}`)))

		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "ACTIVE_SESSION", body["code"])
	})

	s.T().Run("401 - invalid credentials", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials"))

		status, body := do(t, router, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"code":"u-100","password":"bad"}`)))

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	})
}

func (s *AuthHandlerSuite) TestHandler_Logout() {
	s.T().Run("200 - bearer token", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Logout(gomock.Any(), "jwt").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Authorization", "Bearer jwt")
		status, body := do(t, router, req)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["success"])
	})

	s.T().Run("200 - body token", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Logout(gomock.Any(), "jwt").Return(nil)

		status, _ := do(t, router, httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(`{"token":"jwt"}`)))

		assert.Equal(t, http.StatusOK, status)
	})

	s.T().Run("400 - missing token", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Logout(gomock.Any(), gomock.Any()).Times(0)

		status, body := do(t, router, httptest.NewRequest(http.MethodPost, "/logout", nil))

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "BAD_REQUEST", body["code"])
	})

	s.T().Run("401 - already revoked", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Logout(gomock.Any(), "jwt").
			Return(dErrors.New(dErrors.CodeTokenRevoked, "token already revoked"))

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Authorization", "Bearer jwt")
		status, body := do(t, router, req)

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_REVOKED", body["code"])
	})

	s.T().Run("503 - blacklist unavailable", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Logout(gomock.Any(), "jwt").
			Return(dErrors.New(dErrors.CodeUnavailable, "token blacklist unavailable"))

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Authorization", "Bearer jwt")
		status, body := do(t, router, req)

		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "UPSTREAM_UNAVAILABLE", body["code"])
	})
}

func (s *AuthHandlerSuite) TestHandler_Me() {
	principal := &authmw.Principal{
		UserID:      id.NewUserID(),
		SessionID:   id.NewSessionID(),
		TenantScope: "acme",
		ExpiresAt:   s.now.Add(time.Hour),
	}
	withPrincipal := func(req *http.Request) *http.Request {
		return req.WithContext(authmw.WithPrincipal(req.Context(), principal))
	}

	s.T().Run("200 - returns profile and session", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Me(gomock.Any(), principal.UserID).Return(&models.User{
			ID:    principal.UserID,
			Code:  "u-100",
			Email: "ana@acme.test",
			Role:  models.RoleManager,
		}, nil)

		status, body := do(t, router, withPrincipal(httptest.NewRequest(http.MethodGet, "/me", nil)))

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, principal.UserID.String(), body["userId"])
		assert.Equal(t, principal.SessionID.String(), body["sessionId"])
		assert.Equal(t, "manager", body["role"])
		assert.Equal(t, "acme", body["tenant"])
	})

	s.T().Run("401 - no principal", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Me(gomock.Any(), gomock.Any()).Times(0)

		status, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, status)
	})

	s.T().Run("401 - user deleted", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Me(gomock.Any(), principal.UserID).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "user not found"))

		status, _ := do(t, router, withPrincipal(httptest.NewRequest(http.MethodGet, "/me", nil)))

		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func (s *AuthHandlerSuite) TestHandler_AdminRevokeSession() {
	s.T().Run("200 - reports revoked count", func(t *testing.T) {
		svc, router := s.newHandler(t)
		sid := id.NewSessionID()
		svc.EXPECT().ForceRevokeSession(gomock.Any(), sid).Return(1, nil)

		status, body := do(t, router, httptest.NewRequest(http.MethodPost, "/admin/sessions/"+sid.String()+"/revoke", nil))

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(1), body["revoked"])
	})

	s.T().Run("400 - invalid session id", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().ForceRevokeSession(gomock.Any(), gomock.Any()).Times(0)

		status, _ := do(t, router, httptest.NewRequest(http.MethodPost, "/admin/sessions/not-a-uuid/revoke", nil))

		assert.Equal(t, http.StatusBadRequest, status)
	})

	s.T().Run("404 - unknown session", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().ForceRevokeSession(gomock.Any(), gomock.Any()).
			Return(0, dErrors.New(dErrors.CodeNotFound, "session not found"))

		status, _ := do(t, router, httptest.NewRequest(http.MethodPost, "/admin/sessions/"+id.NewSessionID().String()+"/revoke", nil))

		assert.Equal(t, http.StatusNotFound, status)
	})
}

func (s *AuthHandlerSuite) TestHandler_AdminLogoutUser() {
	userID := id.NewUserID()
	path := "/admin/users/" + userID.String() + "/logout"

	tests := []struct {
		name  string
		query string
		scope string
	}{
		{name: "no tenant selects every scope", query: "", scope: models.AllScopes},
		{name: "tenant is normalized", query: "?tenant=%20ACME", scope: "acme"},
		{name: "empty tenant selects legacy sessions", query: "?tenant=", scope: ""},
	}
	for _, tt := range tests {
		s.T().Run(tt.name, func(t *testing.T) {
			svc, router := s.newHandler(t)
			svc.EXPECT().ForceLogoutUser(gomock.Any(), userID, tt.scope).Return(2, nil)

			status, body := do(t, router, httptest.NewRequest(http.MethodPost, path+tt.query, nil))

			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, float64(2), body["revoked"])
		})
	}

	s.T().Run("400 - invalid user id", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().ForceLogoutUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, _ := do(t, router, httptest.NewRequest(http.MethodPost, "/admin/users/42/logout", nil))

		assert.Equal(t, http.StatusBadRequest, status)
	})
}
