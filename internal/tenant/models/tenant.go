package models

import (
	"regexp"
	"strings"
	"time"

	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
)

// Tenant is a customer organisation. This service only reads tenants;
// provisioning happens elsewhere.
type Tenant struct {
	ID        id.TenantID    `json:"id"`
	Subdomain string         `json:"subdomain"`
	Name      string         `json:"name"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a copy safe to hand out from a shared cache.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeSubdomain trims and lower-cases a tenant signal. Lookups compare
// normalized values only.
func NormalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewTenant validates and builds a tenant. Used by the seeder and tests.
func NewTenant(tenantID id.TenantID, subdomain, name string, now time.Time) (*Tenant, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	subdomain = NormalizeSubdomain(subdomain)
	if !subdomainPattern.MatchString(subdomain) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subdomain must be a DNS label")
	}
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant name cannot be empty")
	}
	return &Tenant{
		ID:        tenantID,
		Subdomain: subdomain,
		Name:      name,
		CreatedAt: now,
	}, nil
}
