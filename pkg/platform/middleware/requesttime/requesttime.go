// Package requesttime pins a single "now" per HTTP request so that session
// timestamps, token expiry checks and audit events agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"salesgate/pkg/requestcontext"
)

// Clock is swapped in tests and the e2e harness to drive expiry scenarios.
type Clock func() time.Time

// Middleware captures the wall clock at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock captures now() at the start of each request.
func WithClock(now Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
