//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"salesgate/internal/platform/database"
	id "salesgate/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("salesgate_test"),
		postgres.WithUsername("salesgate"),
		postgres.WithPassword("salesgate_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate(container)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	if err := database.Migrate(dsn, database.MigrateUp); err != nil {
		terminate(container)
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		terminate(container)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	// No t.Cleanup: the Manager shares the container across suites and
	// Ryuk removes it when the test process exits.
	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables clears all data from the specified tables.
// Use between tests to ensure isolation without restarting the container.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables truncates every table, children first.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	return p.TruncateTables(ctx, "token_blacklist", "sessions", "users", "tenants")
}

// Exec runs a SQL statement and returns the result.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// QueryRow runs a SQL query expected to return a single row.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestTenant inserts a tenant with the given ID and subdomain.
func (p *PostgresContainer) CreateTestTenant(ctx context.Context, t testing.TB, tenantID id.TenantID, subdomain string) {
	t.Helper()
	_, err := p.Exec(ctx, `
		INSERT INTO tenants (id, subdomain, name, created_at)
		VALUES ($1, $2, $3, NOW())
	`, int64(tenantID), subdomain, "Test Tenant "+subdomain)
	if err != nil {
		t.Fatalf("CreateTestTenant: %v", err)
	}
}

// CreateTestUser inserts a user in tenantID and returns its ID. A zero
// tenantID creates a legacy user.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, tenantID id.TenantID, code string) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	var tenant any
	if tenantID != 0 {
		tenant = int64(tenantID)
	}
	_, err := p.Exec(ctx, `
		INSERT INTO users (id, tenant_id, code, secret, role, email)
		VALUES ($1, $2, $3, 'secret', 'sales', $4)
	`, uuid.UUID(userID), tenant, code, code+"@example.com")
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}
