// Package secrets generates random operator credentials such as the admin
// API token and JWT signing keys.
package secrets

import (
	"crypto/rand"
	"encoding/base64"

	dErrors "salesgate/pkg/domain-errors"
)

// DefaultSize is 256 bits, enough for an HS256 signing key.
const DefaultSize = 32

// Generate returns size random bytes encoded as unpadded base64url.
// Sizes below DefaultSize are raised to it.
func Generate(size int) (string, error) {
	if size < DefaultSize {
		size = DefaultSize
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
