package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore reads tenants from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a tenant. Only the seeder and integration tests write tenants.
func (s *PostgresStore) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	metadata, err := json.Marshal(tenant.Metadata)
	if err != nil {
		return fmt.Errorf("marshal tenant metadata: %w", err)
	}
	query := `
		INSERT INTO tenants (id, subdomain, name, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		int64(tenant.ID),
		tenant.Subdomain,
		tenant.Name,
		metadata,
		tenant.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subdomain %q: %w", tenant.Subdomain, sentinel.ErrAlreadyExists)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// FindByID retrieves a tenant by its numeric id.
func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	query := `
		SELECT id, subdomain, name, metadata, created_at
		FROM tenants
		WHERE id = $1
	`
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, int64(tenantID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return tenant, nil
}

// FindBySubdomain expects an already normalized subdomain.
func (s *PostgresStore) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `
		SELECT id, subdomain, name, metadata, created_at
		FROM tenants
		WHERE subdomain = $1
	`
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, subdomain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by subdomain: %w", err)
	}
	return tenant, nil
}

// Count returns the total number of tenants.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		tenant   models.Tenant
		tenantID int64
		metadata []byte
	)
	if err := row.Scan(&tenantID, &tenant.Subdomain, &tenant.Name, &metadata, &tenant.CreatedAt); err != nil {
		return nil, err
	}
	tenant.ID = id.TenantID(tenantID)
	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &tenant.Metadata); err != nil {
			return nil, fmt.Errorf("decode tenant metadata: %w", err)
		}
	}
	return &tenant, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
