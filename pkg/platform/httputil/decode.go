package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/requestcontext"
)

// DecodeJSON decodes exactly one JSON value from the request body. Unknown
// fields are ignored. On failure it logs, writes a 400 and returns false.
//
//	req, ok := httputil.DecodeJSON[models.LoginRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	err := decodeOne(r.Body, &req)
	if err == nil {
		return &req, true
	}

	ctx := r.Context()
	logger.WarnContext(ctx, "failed to decode request body",
		"error", err,
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
	)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
		return nil, false
	}
	WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
	return nil, false
}

var errTrailingData = errors.New("unexpected data after JSON value")

func decodeOne(body io.Reader, dst any) error {
	if body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return err
		}
		return errTrailingData
	}
	return nil
}
