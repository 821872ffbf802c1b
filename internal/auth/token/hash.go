package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the hex SHA-256 of a raw token. Stores only ever see this value.
func Hash(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// HashEqual compares a raw token against a stored hash in constant time.
func HashEqual(raw, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(raw)), []byte(storedHash)) == 1
}
