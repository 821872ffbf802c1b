package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

const selectUser = `
	SELECT u.id, COALESCE(u.tenant_id, 0), COALESCE(t.subdomain, ''), u.code, u.secret, u.role, u.email, u.created_at
	FROM users u
	LEFT JOIN tenants t ON t.id = u.tenant_id
`

// PostgresStore reads users from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a user. Legacy users carry a zero TenantID, stored as NULL.
func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	var tenantID sql.NullInt64
	if !user.TenantID.IsNil() {
		tenantID = sql.NullInt64{Int64: int64(user.TenantID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, code, secret, role, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(user.ID), tenantID, user.Code, user.Secret, string(user.Role), user.Email, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user code %q: %w", user.Code, sentinel.ErrAlreadyExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, selectUser+`WHERE u.id = $1`, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByTenantAndCode(ctx context.Context, tenantID id.TenantID, code string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		selectUser+`WHERE u.tenant_id = $1 AND u.code = $2`,
		int64(tenantID), code,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by tenant and code: %w", err)
	}
	return user, nil
}

// ListByCode returns every user with the code, legacy rows first.
func (s *PostgresStore) ListByCode(ctx context.Context, code string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		selectUser+`WHERE u.code = $1 ORDER BY u.tenant_id NULLS FIRST, u.created_at`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by code: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, 1)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user     models.User
		userID   uuid.UUID
		tenantID int64
		role     string
	)
	if err := row.Scan(&userID, &tenantID, &user.Tenant, &user.Code, &user.Secret, &role, &user.Email, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.ID = id.UserID(userID)
	user.TenantID = id.TenantID(tenantID)
	user.Role = models.Role(role)
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
