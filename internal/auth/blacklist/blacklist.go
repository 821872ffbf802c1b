// Package blacklist rejects logged-out tokens until their natural expiry.
// Stores only ever see the SHA-256 of a token, never the token itself.
package blacklist

import (
	"context"
	"fmt"
	"time"

	"salesgate/internal/auth/models"
	"salesgate/internal/auth/token"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/requestcontext"
)

// Store is implemented by the memory, Postgres and Redis revocation stores.
type Store interface {
	// Insert adds the entry if its hash is absent and reports whether it did.
	Insert(ctx context.Context, entry *models.BlacklistedToken) (bool, error)
	Exists(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Blacklist translates store failures into CodeUnavailable exactly once.
type Blacklist struct {
	store Store
}

func New(store Store) *Blacklist {
	return &Blacklist{store: store}
}

// Revoke blacklists a raw token. Revoking twice is not an error; the bool
// reports whether this call inserted the entry.
func (b *Blacklist) Revoke(ctx context.Context, raw string, userID id.UserID, expiresAt time.Time) (bool, error) {
	return b.RevokeHash(ctx, token.Hash(raw), userID, expiresAt)
}

// RevokeHash blacklists a token known only by its stored hash, as held on
// the session row during forced revocation.
func (b *Blacklist) RevokeHash(ctx context.Context, tokenHash string, userID id.UserID, expiresAt time.Time) (bool, error) {
	if tokenHash == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "token hash is required")
	}
	inserted, err := b.store.Insert(ctx, &models.BlacklistedToken{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: requestcontext.Now(ctx),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "token blacklist unavailable")
	}
	return inserted, nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, raw string) (bool, error) {
	revoked, err := b.store.Exists(ctx, token.Hash(raw))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "token blacklist unavailable")
	}
	return revoked, nil
}

// Purge removes entries whose mirrored token expiry has passed. Purging is
// storage hygiene only: expired tokens already fail verification.
func (b *Blacklist) Purge(ctx context.Context, now time.Time) (int, error) {
	n, err := b.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge token blacklist: %w", err)
	}
	return n, nil
}
