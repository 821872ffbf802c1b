package user

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return ErrAlreadyExists when (tenant, code) is taken
// - Return wrapped errors with context for infrastructure failures
// InMemoryUserStore stores users in memory for dev and tests.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*models.User)}
}

// Create inserts a user. Callers set Tenant to the owning subdomain.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.TenantID == user.TenantID && existing.Code == user.Code {
			return fmt.Errorf("user code %q: %w", user.Code, sentinel.ErrAlreadyExists)
		}
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		found := *user
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByTenantAndCode(_ context.Context, tenantID id.TenantID, code string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.TenantID == tenantID && user.Code == code {
			found := *user
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// ListByCode returns every user with the code across all tenants, legacy
// rows first, then by tenant id.
func (s *InMemoryUserStore) ListByCode(_ context.Context, code string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*models.User, 0, 1)
	for _, user := range s.users {
		if user.Code == code {
			found := *user
			matches = append(matches, &found)
		}
	}
	slices.SortFunc(matches, func(a, b *models.User) int {
		switch {
		case a.TenantID < b.TenantID:
			return -1
		case a.TenantID > b.TenantID:
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return matches, nil
}

// Count returns the number of stored users.
func (s *InMemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
