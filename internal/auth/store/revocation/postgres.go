package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"salesgate/internal/auth/models"
)

// PostgresStore persists blacklisted token hashes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed blacklist store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert relies on the primary key for atomic insert-if-absent. The first
// writer wins; later calls report false without touching the row.
func (s *PostgresStore) Insert(ctx context.Context, entry *models.BlacklistedToken) (bool, error) {
	query := `
		INSERT INTO token_blacklist (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		entry.TokenHash,
		uuid.UUID(entry.UserID),
		entry.CreatedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert blacklisted token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert blacklisted token rows: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) Exists(ctx context.Context, tokenHash string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token_hash = $1)`,
		tokenHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired blacklist entries: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired blacklist rows: %w", err)
	}
	return int(rows), nil
}
