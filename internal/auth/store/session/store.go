package session

import (
	"fmt"
	"slices"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

// Error Contract:
// All session stores follow this error pattern:
//   - Create returns ErrActiveSession when the user already holds an
//     unexpired, unrevoked session in the same tenant scope
//   - RevokeIfActive returns ErrSessionRevoked when the session is already revoked
//   - Lookups return sentinel.ErrNotFound when nothing matches
//   - Infrastructure failures are wrapped with context
//   - Touch ignores missing and revoked sessions
var (
	ErrActiveSession  = fmt.Errorf("active session exists: %w", sentinel.ErrAlreadyExists)
	ErrSessionRevoked = fmt.Errorf("session has been revoked: %w", sentinel.ErrInvalidState)
)

// activeKey identifies the single unrevoked session slot of a user.
type activeKey struct {
	userID id.UserID
	scope  string
}

func sortByCreatedAt(sessions []*models.Session) {
	slices.SortFunc(sessions, func(a, b *models.Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
