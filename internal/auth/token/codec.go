// Package token issues and verifies the HS256 bearer tokens bound to sessions.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/requestcontext"
)

// DefaultTTL is the bearer token lifetime. Sessions expire with their token.
const DefaultTTL = 12 * time.Hour

const minKeyBytes = 16

// Key is a named HMAC secret. The ID travels in the token's "kid" header.
type Key struct {
	ID     string
	Secret []byte
}

func (k Key) validate() error {
	if k.ID == "" {
		return errors.New("signing key id is required")
	}
	if len(k.Secret) < minKeyBytes {
		return fmt.Errorf("signing key %q must be at least %d bytes", k.ID, minKeyBytes)
	}
	return nil
}

// Claims is the verified content of a token.
type Claims struct {
	UserID      id.UserID
	SessionID   id.SessionID
	TenantScope string
	TenantID    id.TenantID
	JTI         string
	KeyID       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// IssueParams names the session a new token is bound to.
type IssueParams struct {
	UserID      id.UserID
	SessionID   id.SessionID
	TenantScope string
	TenantID    id.TenantID
}

type tokenClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"sid"`
	Tenant    string `json:"tenant,omitempty"`
	TenantID  int64  `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs with the current key and accepts the current and previous
// keys, so tokens survive one rotation. Safe for concurrent use.
type Codec struct {
	mu       sync.RWMutex
	current  Key
	previous *Key

	issuer string
	ttl    time.Duration
}

type Option func(*Codec)

// WithPreviousKey accepts tokens signed before the last rotation.
func WithPreviousKey(k Key) Option {
	return func(c *Codec) {
		if k.ID != "" && len(k.Secret) > 0 {
			c.previous = &k
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(current Key, opts ...Option) (*Codec, error) {
	if err := current.validate(); err != nil {
		return nil, err
	}
	c := &Codec{
		current: current,
		issuer:  "salesgate",
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.previous != nil && c.previous.ID == current.ID {
		return nil, fmt.Errorf("previous signing key must not reuse id %q", current.ID)
	}
	return c, nil
}

// TTL returns the lifetime given to new tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the given session. Time comes from the request context.
func (c *Codec) Issue(ctx context.Context, p IssueParams) (string, *Claims, error) {
	if p.UserID.IsNil() || p.SessionID.IsNil() {
		return "", nil, dErrors.New(dErrors.CodeInvalidInput, "user and session are required to issue a token")
	}

	jti, err := newJTI()
	if err != nil {
		return "", nil, fmt.Errorf("generate jti: %w", err)
	}

	now := requestcontext.Now(ctx)
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(c.ttl))

	c.mu.RLock()
	key := c.current
	c.mu.RUnlock()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID:    p.UserID.String(),
		SessionID: p.SessionID.String(),
		Tenant:    p.TenantScope,
		TenantID:  int64(p.TenantID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			Issuer:    c.issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
			ID:        jti,
		},
	})
	t.Header["kid"] = key.ID

	signed, err := t.SignedString(key.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return signed, &Claims{
		UserID:      p.UserID,
		SessionID:   p.SessionID,
		TenantScope: p.TenantScope,
		TenantID:    p.TenantID,
		JTI:         jti,
		KeyID:       key.ID,
		IssuedAt:    issuedAt.Time,
		ExpiresAt:   expiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm, issuer and expiry. Expired tokens yield
// CodeTokenExpired; every other failure yields CodeTokenMalformed.
func (c *Codec) Verify(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "empty token")
	}

	var kid string
	parsed := new(tokenClaims)
	_, err := jwt.ParseWithClaims(raw, parsed, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm %q", t.Method.Alg())
		}
		kid, _ = t.Header["kid"].(string)
		secret, ok := c.secretFor(kid)
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeTokenExpired, "token expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTokenMalformed, "invalid token")
	}

	userID, err := id.ParseUserID(parsed.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "invalid token subject")
	}
	sessionID, err := id.ParseSessionID(parsed.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "invalid token session")
	}

	claims := &Claims{
		UserID:      userID,
		SessionID:   sessionID,
		TenantScope: parsed.Tenant,
		TenantID:    id.TenantID(parsed.TenantID),
		JTI:         parsed.ID,
		KeyID:       kid,
		ExpiresAt:   parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

// Rotate makes k the signing key and keeps the old current key for
// verification only. Any older key stops verifying immediately.
func (c *Codec) Rotate(k Key) error {
	if err := k.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if k.ID == c.current.ID {
		return fmt.Errorf("signing key id %q is already current", k.ID)
	}
	prev := c.current
	c.previous = &prev
	c.current = k
	return nil
}

// KeyIDs returns the current and previous key ids ("" when none).
func (c *Codec) KeyIDs() (current, previous string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.previous != nil {
		previous = c.previous.ID
	}
	return c.current.ID, previous
}

func (c *Codec) secretFor(kid string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if kid == c.current.ID {
		return c.current.Secret, true
	}
	if c.previous != nil && kid == c.previous.ID {
		return c.previous.Secret, true
	}
	return nil, false
}

func newJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
