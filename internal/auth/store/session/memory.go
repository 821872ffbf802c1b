package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

// InMemorySessionStore stores sessions in memory for dev and tests. One
// mutex guards both the rows and the active index, so Create is atomic.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	active   map[activeKey]id.SessionID
}

// New constructs an empty in-memory session store.
func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]*models.Session),
		active:   make(map[activeKey]id.SessionID),
	}
}

// Create stores an active session. An unrevoked session for the same user
// and scope is revoked as expired when its expiry has passed at
// session.CreatedAt; otherwise Create fails with ErrActiveSession.
func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := activeKey{userID: session.UserID, scope: session.TenantScope}
	if sid, ok := s.active[key]; ok {
		existing := s.sessions[sid]
		if existing.IsActive(session.CreatedAt) {
			return ErrActiveSession
		}
		existing.Revoke(session.CreatedAt, models.RevokeReasonExpired)
	}
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyExists)
	}

	stored := *session
	s.sessions[session.ID] = &stored
	s.active[key] = session.ID
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return copySession(session), nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

// FindActive returns the unrevoked session for (userID, scope), which may
// already be past its expiry.
func (s *InMemorySessionStore) FindActive(_ context.Context, userID id.UserID, scope string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sid, ok := s.active[activeKey{userID: userID, scope: scope}]; ok {
		return copySession(s.sessions[sid]), nil
	}
	return nil, fmt.Errorf("active session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemorySessionStore) RevokeIfActive(_ context.Context, sessionID id.SessionID, at time.Time, reason models.RevokeReason) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if !session.Revoke(at, reason) {
		return copySession(session), ErrSessionRevoked
	}
	key := activeKey{userID: session.UserID, scope: session.TenantScope}
	if s.active[key] == sessionID {
		delete(s.active, key)
	}
	return copySession(session), nil
}

func (s *InMemorySessionStore) Touch(_ context.Context, sessionID id.SessionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok && !session.IsRevoked() {
		session.RecordActivity(at)
	}
	return nil
}

// ListActiveByUser returns the user's unrevoked sessions across scopes, oldest first.
func (s *InMemorySessionStore) ListActiveByUser(_ context.Context, userID id.UserID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*models.Session, 0)
	for key, sid := range s.active {
		if key.userID == userID {
			sessions = append(sessions, copySession(s.sessions[sid]))
		}
	}
	sortByCreatedAt(sessions)
	return sessions, nil
}

func copySession(session *models.Session) *models.Session {
	c := *session
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}
