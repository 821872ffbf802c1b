package service

import (
	"context"

	id "salesgate/pkg/domain"
	"salesgate/pkg/requestcontext"
)

// Touch records activity on a session without blocking the caller. The update
// runs detached from the request with its own timeout; failures are logged
// and counted, never returned. When too many touches are pending, new ones
// are dropped.
func (s *Service) Touch(ctx context.Context, sessionID id.SessionID) {
	if sessionID.IsNil() {
		return
	}
	at := requestcontext.Now(ctx)
	detached := context.WithoutCancel(ctx)

	select {
	case s.touchSlots <- struct{}{}:
	default:
		s.metrics.IncrementTouchFailures()
		return
	}

	s.touches.Add(1)
	go func() {
		defer s.touches.Done()
		defer func() { <-s.touchSlots }()

		tctx, cancel := context.WithTimeout(detached, s.touchTimeout)
		defer cancel()
		if err := s.sessions.Touch(tctx, sessionID, at); err != nil {
			s.metrics.IncrementTouchFailures()
			s.logger.WarnContext(tctx, "session touch failed",
				"error", err,
				"session_id", sessionID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}()
}
