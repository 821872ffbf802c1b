package admin

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"regexp"

	"salesgate/pkg/platform/httputil"
	"salesgate/pkg/requestcontext"
)

const (
	TokenHeader   = "X-Admin-Token"
	ActorIDHeader = "X-Admin-Actor-ID"
)

// Actor IDs end up in logs, so only a conservative character set is kept.
var validActorID = regexp.MustCompile(`^[a-zA-Z0-9@._:-]{1,128}$`)

type actorIDKey struct{}

func WithAdminActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actorID)
}

// GetAdminActorID returns the admin actor identifier, or "" outside admin routes.
func GetAdminActorID(ctx context.Context) string {
	actorID, _ := ctx.Value(actorIDKey{}).(string)
	return actorID
}

// RequireAdminToken guards the administrative revoke endpoints. An empty
// expected token disables them entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(expectedToken))
	enabled := expectedToken != ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			presented := sha256.Sum256([]byte(r.Header.Get(TokenHeader)))
			if !enabled || subtle.ConstantTimeCompare(presented[:], expected[:]) != 1 {
				logger.WarnContext(ctx, "admin token rejected",
					"path", r.URL.Path,
					"admin_enabled", enabled,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
					Error:            "unauthorized",
					ErrorDescription: "admin token required",
					Code:             "UNAUTHORIZED",
				})
				return
			}

			if actorID := r.Header.Get(ActorIDHeader); validActorID.MatchString(actorID) {
				ctx = WithAdminActorID(ctx, actorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
