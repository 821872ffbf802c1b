package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salesgate/internal/auth/token"
	"salesgate/internal/platform/tracer"
	tenantmodels "salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/httputil"
	"salesgate/pkg/requestcontext"
)

// Denial reasons. They are logged verbatim and exposed upper-cased as errorCode.
const (
	ReasonMissingToken        = "missing_token"
	ReasonTokenMalformed      = "token_malformed"
	ReasonTokenExpired        = "token_expired"
	ReasonTokenRevoked        = "token_revoked"
	ReasonTenantNotResolved   = "tenant_not_resolved"
	ReasonTenantNotFound      = "tenant_not_found"
	ReasonTenantMismatch      = "tenant_mismatch"
	ReasonUpstreamUnavailable = "upstream_unavailable"
)

// maxTokenBodyBytes bounds how much of a body is buffered while looking for
// a "token" field.
const maxTokenBodyBytes = 16 << 10

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, raw string) (bool, error)
}

type TenantResolver interface {
	Require(ctx context.Context, signal string) (*tenantmodels.Tenant, error)
}

type SessionToucher interface {
	Touch(ctx context.Context, sessionID id.SessionID)
}

type DenialRecorder interface {
	IncrementDenials(reason string)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID      id.UserID
	SessionID   id.SessionID
	TenantScope string
	TenantID    id.TenantID
	ExpiresAt   time.Time
	Token       string
}

// Denial explains why a request was refused. Err carries the detailed cause
// for logs only.
type Denial struct {
	Reason string
	Status int
	Err    error
}

func deny(reason string, err error) *Denial {
	status := http.StatusUnauthorized
	if reason == ReasonUpstreamUnavailable {
		status = http.StatusServiceUnavailable
	}
	return &Denial{Reason: reason, Status: status, Err: err}
}

// Authorizer runs verify, blacklist and tenant checks for protected routes.
type Authorizer struct {
	verifier  TokenVerifier
	blacklist RevocationChecker
	tenants   TenantResolver
	sessions  SessionToucher
	metrics   DenialRecorder
	tracer    tracer.Tracer
	logger    *slog.Logger
}

type Option func(*Authorizer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSessionToucher refreshes session activity after each accepted request.
func WithSessionToucher(t SessionToucher) Option {
	return func(a *Authorizer) {
		a.sessions = t
	}
}

func WithDenialRecorder(m DenialRecorder) Option {
	return func(a *Authorizer) {
		a.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(a *Authorizer) {
		if t != nil {
			a.tracer = t
		}
	}
}

func NewAuthorizer(verifier TokenVerifier, blacklist RevocationChecker, tenants TenantResolver, opts ...Option) *Authorizer {
	a := &Authorizer{
		verifier:  verifier,
		blacklist: blacklist,
		tenants:   tenants,
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize authenticates r. When tenantIsolated is set the tenant signal
// must resolve to the token's scope; otherwise a signal, if sent, must still
// match it.
func (a *Authorizer) Authorize(r *http.Request, tenantIsolated bool) (principal *Principal, denial *Denial) {
	ctx, span := a.tracer.Start(r.Context(), tracer.SpanAuthorize)
	defer func() {
		if denial != nil {
			span.SetAttributes(tracer.String(tracer.AttrReason, denial.Reason))
			span.End(denial.Err)
			return
		}
		span.SetAttributes(tracer.String(tracer.AttrResult, "allowed"))
		span.End(nil)
	}()

	raw := ExtractToken(r)
	if raw == "" {
		return nil, deny(ReasonMissingToken, nil)
	}

	claims, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTokenExpired) {
			return nil, deny(ReasonTokenExpired, err)
		}
		return nil, deny(ReasonTokenMalformed, err)
	}
	span.SetAttributes(tracer.String(tracer.AttrTenantScope, claims.TenantScope))

	revoked, err := a.blacklist.IsRevoked(ctx, raw)
	if err != nil {
		return nil, deny(ReasonUpstreamUnavailable, err)
	}
	if revoked {
		return nil, deny(ReasonTokenRevoked, nil)
	}

	if d := a.checkTenant(ctx, claims, tenantIsolated); d != nil {
		return nil, d
	}

	return &Principal{
		UserID:      claims.UserID,
		SessionID:   claims.SessionID,
		TenantScope: claims.TenantScope,
		TenantID:    claims.TenantID,
		ExpiresAt:   claims.ExpiresAt,
		Token:       raw,
	}, nil
}

func (a *Authorizer) checkTenant(ctx context.Context, claims *token.Claims, tenantIsolated bool) *Denial {
	signal := requestcontext.TenantSignal(ctx)
	normalized := tenantmodels.NormalizeSubdomain(signal)
	// Legacy single-tenant tokens carry no scope and have no tenant to match.
	if !tenantIsolated || (claims.TenantScope == "" && normalized == "") {
		if normalized != "" && normalized != claims.TenantScope {
			return deny(ReasonTenantMismatch, nil)
		}
		return nil
	}

	tenant, err := a.tenants.Require(ctx, signal)
	switch {
	case dErrors.HasCode(err, dErrors.CodeTenantNotResolved):
		return deny(ReasonTenantNotResolved, err)
	case dErrors.HasCode(err, dErrors.CodeTenantNotFound):
		return deny(ReasonTenantNotFound, err)
	case err != nil:
		return deny(ReasonUpstreamUnavailable, err)
	}
	if tenant.Subdomain != claims.TenantScope {
		return deny(ReasonTenantMismatch, nil)
	}
	if claims.TenantID != 0 && claims.TenantID != tenant.ID {
		return deny(ReasonTenantMismatch, nil)
	}
	return nil
}

// ExtractToken reads the bearer token, falling back to a JSON "token" field.
// The body is restored so the next handler can decode it again.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}

	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	orig := r.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxTokenBodyBytes))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), orig), Closer: orig}
	if err != nil || len(body) == 0 {
		return ""
	}

	var payload struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Token)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// RequireAuth rejects unauthenticated requests. The principal is stored in
// the request context and the session's last-seen time is refreshed.
func RequireAuth(a *Authorizer) func(http.Handler) http.Handler {
	return a.middleware(false)
}

// RequireTenantAuth is RequireAuth for tenant-isolated routes.
func RequireTenantAuth(a *Authorizer) func(http.Handler) http.Handler {
	return a.middleware(true)
}

func (a *Authorizer) middleware(tenantIsolated bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, denial := a.Authorize(r, tenantIsolated)
			if denial != nil {
				a.logDenial(ctx, r, denial)
				writeDenial(w, denial)
				return
			}

			if a.sessions != nil {
				a.sessions.Touch(ctx, principal.SessionID)
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func (a *Authorizer) logDenial(ctx context.Context, r *http.Request, d *Denial) {
	if a.metrics != nil {
		a.metrics.IncrementDenials(d.Reason)
	}
	attrs := []any{
		"log_type", "standard",
		"reason", d.Reason,
		"path", r.URL.Path,
		"tenant_signal", requestcontext.TenantSignal(ctx),
		"request_id", requestcontext.RequestID(ctx),
	}
	if d.Err != nil {
		attrs = append(attrs, "error", d.Err)
	}
	if d.Status >= http.StatusInternalServerError {
		a.logger.ErrorContext(ctx, "authorization unavailable", attrs...)
		return
	}
	a.logger.WarnContext(ctx, "unauthorized access", attrs...)
}

type denialResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"errorCode"`
}

func writeDenial(w http.ResponseWriter, d *Denial) {
	resp := denialResponse{
		Error:            "unauthorized",
		ErrorDescription: "authentication required",
		ErrorCode:        strings.ToUpper(d.Reason),
	}
	if d.Status == http.StatusServiceUnavailable {
		resp.Error = "service_unavailable"
		resp.ErrorDescription = "authentication temporarily unavailable"
	}
	httputil.WriteJSON(w, d.Status, resp)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by RequireAuth, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
