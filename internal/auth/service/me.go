package service

import (
	"context"
	"errors"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/audit"
	"salesgate/pkg/platform/sentinel"
)

// Me returns the profile behind an authenticated principal. A user deleted
// after the token was issued is reported as unauthorized.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.authFailure(ctx, "user_not_found", false, audit.Event{UserID: userID})
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user not found")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "user lookup failed", "error", err, "user_id", userID.String())
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}
	return user, nil
}
