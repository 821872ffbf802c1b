package tenant

import (
	"context"
	"fmt"
	"sync"

	"salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

// ErrNotFound is returned when a tenant is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores tenants in memory for the demo environment and tests.
type InMemory struct {
	mu           sync.RWMutex
	tenants      map[id.TenantID]*models.Tenant
	subdomainIdx map[string]id.TenantID
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants:      make(map[id.TenantID]*models.Tenant),
		subdomainIdx: make(map[string]id.TenantID),
	}
}

// Create inserts the tenant unless the id or subdomain is taken.
func (s *InMemory) Create(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subdomainIdx[t.Subdomain]; exists {
		return fmt.Errorf("subdomain %q: %w", t.Subdomain, sentinel.ErrAlreadyExists)
	}
	if _, exists := s.tenants[t.ID]; exists {
		return fmt.Errorf("tenant %d: %w", t.ID, sentinel.ErrAlreadyExists)
	}
	s.tenants[t.ID] = t.Clone()
	s.subdomainIdx[t.Subdomain] = t.ID
	return nil
}

// FindByID retrieves a tenant by its numeric id.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		return t.Clone(), nil
	}
	return nil, ErrNotFound
}

// FindBySubdomain expects an already normalized subdomain.
func (s *InMemory) FindBySubdomain(_ context.Context, subdomain string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tid, ok := s.subdomainIdx[subdomain]; ok {
		return s.tenants[tid].Clone(), nil
	}
	return nil, ErrNotFound
}

// Count returns the total number of tenants.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}
