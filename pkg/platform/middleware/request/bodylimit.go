package request

import (
	"net/http"

	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/httputil"
)

// BodyLimit caps request bodies before any JSON decoding or token sniffing.
// A declared Content-Length over the limit is refused without reading.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
