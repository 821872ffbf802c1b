package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

const sessionColumns = `id, user_id, tenant_scope, token_hash, device_name, created_at, last_seen_at, expires_at, revoked_at, revoke_reason`

// PostgresStore persists sessions in PostgreSQL. Exclusivity is enforced by
// the partial unique index idx_sessions_one_active.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = $3, revoke_reason = $4
		WHERE user_id = $1 AND tenant_scope = $2 AND revoked_at IS NULL AND expires_at <= $3
	`, uuid.UUID(session.UserID), session.TenantScope, session.CreatedAt, string(models.RevokeReasonExpired))
	if err != nil {
		return fmt.Errorf("revoke expired sessions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, tenant_scope, token_hash, device_name, created_at, last_seen_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(session.ID),
		uuid.UUID(session.UserID),
		session.TenantScope,
		session.TokenHash,
		session.DeviceName,
		session.CreatedAt,
		session.LastSeenAt,
		session.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err, "idx_sessions_one_active") {
			return ErrActiveSession
		}
		if isUniqueViolation(err, "") {
			return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyExists)
		}
		return fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, "idx_sessions_one_active") {
			return ErrActiveSession
		}
		return fmt.Errorf("commit create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`,
		uuid.UUID(sessionID),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) FindActive(ctx context.Context, userID id.UserID, scope string) (*models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND tenant_scope = $2 AND revoked_at IS NULL`,
		uuid.UUID(userID), scope,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) RevokeIfActive(ctx context.Context, sessionID id.SessionID, at time.Time, reason models.RevokeReason) (*models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET revoked_at = $2, revoke_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
		RETURNING `+sessionColumns,
		uuid.UUID(sessionID), at, string(reason),
	))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke session: %w", err)
	}

	existing, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return existing, ErrSessionRevoked
}

func (s *PostgresStore) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET last_seen_at = GREATEST(last_seen_at, $2)
		WHERE id = $1 AND revoked_at IS NULL
	`, uuid.UUID(sessionID), at)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND revoked_at IS NULL ORDER BY created_at`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session   models.Session
		sessionID uuid.UUID
		userID    uuid.UUID
		revokedAt sql.NullTime
		reason    sql.NullString
	)
	err := row.Scan(
		&sessionID,
		&userID,
		&session.TenantScope,
		&session.TokenHash,
		&session.DeviceName,
		&session.CreatedAt,
		&session.LastSeenAt,
		&session.ExpiresAt,
		&revokedAt,
		&reason,
	)
	if err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sessionID)
	session.UserID = id.UserID(userID)
	if revokedAt.Valid {
		at := revokedAt.Time
		session.RevokedAt = &at
	}
	if reason.Valid {
		session.RevokeReason = models.RevokeReason(reason.String)
	}
	return &session, nil
}

// isUniqueViolation matches SQLSTATE 23505, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
