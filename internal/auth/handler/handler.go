package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/httputil"
	"salesgate/pkg/platform/middleware/admin"
	authmw "salesgate/pkg/platform/middleware/auth"
	"salesgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service defines the session operations exposed over HTTP.
type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context, raw string) error
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	ForceRevokeSession(ctx context.Context, sessionID id.SessionID) (int, error)
	ForceLogoutUser(ctx context.Context, userID id.UserID, scope string) (int, error)
}

// Handler serves login, logout, the caller profile and forced revocation.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register mounts the public routes. /logout verifies its own token so a
// second logout reports TOKEN_REVOKED rather than a middleware denial.
func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
}

// RegisterProtected mounts routes that need an authenticated principal.
// The parent router applies the auth middleware.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/sessions/{session_id}/revoke", h.HandleAdminRevokeSession)
	r.Post("/admin/users/{user_id}/logout", h.HandleAdminLogoutUser)
}

// HandleLogin implements POST /login.
//
// Input: { "code": "u-100", "password": "..." } plus optional x-tenant-subdomain.
// Output: { "id", "code", "email", "role", "tenant", "sessionId", "token", "expiresAt" }
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[models.LoginRequest](w, r, h.logger)
	if !ok {
		return
	}
	req.TenantScope = requestcontext.TenantSignal(ctx)
	req.UserAgent = requestcontext.UserAgent(ctx)

	res, err := h.auth.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &models.LoginResponse{
		ID:        res.User.ID.String(),
		Code:      res.User.Code,
		Email:     res.User.Email,
		Role:      res.User.Role,
		Tenant:    res.Session.TenantScope,
		SessionID: res.Session.ID.String(),
		Token:     res.Token,
		ExpiresAt: res.Session.ExpiresAt,
	})
}

// HandleLogout implements POST /logout. The token comes from the
// Authorization header or the body field "token".
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := authmw.ExtractToken(r)
	if raw == "" {
		h.logger.WarnContext(ctx, "logout without token",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token is required"))
		return
	}

	if err := h.auth.Logout(ctx, raw); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.LogoutResponse{Success: true})
}

// HandleMe returns the authenticated caller.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := authmw.PrincipalFromContext(ctx)
	if principal == nil {
		h.logger.ErrorContext(ctx, "me called without principal",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := h.auth.Me(ctx, principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &models.MeResponse{
		UserID:    user.ID.String(),
		Code:      user.Code,
		Email:     user.Email,
		Role:      user.Role,
		Tenant:    principal.TenantScope,
		SessionID: principal.SessionID.String(),
		ExpiresAt: principal.ExpiresAt,
	})
}

// HandleAdminRevokeSession implements POST /admin/sessions/{session_id}/revoke.
func (h *Handler) HandleAdminRevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "session_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid session id"))
		return
	}

	revoked, err := h.auth.ForceRevokeSession(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin revoked session",
		"session_id", sessionID.String(),
		"revoked", revoked,
		"admin_actor_id", admin.GetAdminActorID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, &models.RevokeResponse{Revoked: revoked})
}

// HandleAdminLogoutUser implements POST /admin/users/{user_id}/logout.
// The optional "tenant" query parameter limits revocation to one scope;
// "tenant=" selects legacy sessions.
func (h *Handler) HandleAdminLogoutUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	scope := models.AllScopes
	if q := r.URL.Query(); q.Has("tenant") {
		scope = strings.ToLower(strings.TrimSpace(q.Get("tenant")))
	}

	revoked, err := h.auth.ForceLogoutUser(ctx, userID, scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin logged out user",
		"user_id", userID.String(),
		"tenant_scope", scope,
		"revoked", revoked,
		"admin_actor_id", admin.GetAdminActorID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, &models.RevokeResponse{Revoked: revoked})
}
