package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"salesgate/internal/auth/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

const (
	// Redis key prefixes for session data
	sessionKeyPrefix       = "session:"
	activeSessionKeyPrefix = "session_active:"
	userSessionKeyPrefix   = "user_sessions:"

	// DefaultRetention keeps revoked and expired sessions around for audit.
	DefaultRetention = 30 * 24 * time.Hour

	// maxSessionsPerUser caps ListActiveByUser.
	maxSessionsPerUser = 100

	// Optimistic transactions retry when a concurrent write touches a
	// watched key.
	maxRevokeAttempts = 3
	maxCreateAttempts = 3
)

// sessionJSON is the JSON-serializable representation of a Session.
type sessionJSON struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	TenantScope  string `json:"tenant_scope"`
	TokenHash    string `json:"token_hash"`
	DeviceName   string `json:"device_name"`
	CreatedAt    int64  `json:"created_at"`           // Unix nano
	LastSeenAt   int64  `json:"last_seen_at"`         // Unix nano
	ExpiresAt    int64  `json:"expires_at"`           // Unix nano
	RevokedAt    *int64 `json:"revoked_at,omitempty"` // Unix nano
	RevokeReason string `json:"revoke_reason,omitempty"`
}

func sessionToJSON(s *models.Session) *sessionJSON {
	j := &sessionJSON{
		ID:           s.ID.String(),
		UserID:       s.UserID.String(),
		TenantScope:  s.TenantScope,
		TokenHash:    s.TokenHash,
		DeviceName:   s.DeviceName,
		CreatedAt:    s.CreatedAt.UnixNano(),
		LastSeenAt:   s.LastSeenAt.UnixNano(),
		ExpiresAt:    s.ExpiresAt.UnixNano(),
		RevokeReason: string(s.RevokeReason),
	}
	if s.RevokedAt != nil {
		ts := s.RevokedAt.UnixNano()
		j.RevokedAt = &ts
	}
	return j
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	sessionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	s := &models.Session{
		ID:           id.SessionID(sessionID),
		UserID:       id.UserID(userID),
		TenantScope:  j.TenantScope,
		TokenHash:    j.TokenHash,
		DeviceName:   j.DeviceName,
		CreatedAt:    time.Unix(0, j.CreatedAt).UTC(),
		LastSeenAt:   time.Unix(0, j.LastSeenAt).UTC(),
		ExpiresAt:    time.Unix(0, j.ExpiresAt).UTC(),
		RevokeReason: models.RevokeReason(j.RevokeReason),
	}
	if j.RevokedAt != nil {
		t := time.Unix(0, *j.RevokedAt).UTC()
		s.RevokedAt = &t
	}
	return s, nil
}

// RedisStore persists sessions in Redis. A per-(user, scope) pointer key
// names the unrevoked session; every write that moves it runs under
// WATCH/MULTI so concurrent logins cannot both claim the slot.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

type RedisOption func(*RedisStore)

// WithRetention sets how long a session outlives its expiry.
func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, retention: DefaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) activeKey(userID id.UserID, scope string) string {
	return activeSessionKeyPrefix + userID.String() + ":" + scope
}

func (s *RedisStore) userSessionsKey(userID id.UserID) string {
	return userSessionKeyPrefix + userID.String()
}

func (s *RedisStore) ttl(session *models.Session, now time.Time) time.Duration {
	ttl := session.ExpiresAt.Sub(now) + s.retention
	if ttl <= 0 {
		return s.retention
	}
	return ttl
}

func (s *RedisStore) get(ctx context.Context, getter redis.Cmdable, key string) (*models.Session, error) {
	data, err := getter.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	now := session.CreatedAt
	activeKey := s.activeKey(session.UserID, session.TenantScope)
	userKey := s.userSessionsKey(session.UserID)

	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	sessionKey := s.sessionKey(session.ID)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, sessionKey).Result()
		if err != nil {
			return fmt.Errorf("check session key: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyExists)
		}

		var expired *models.Session
		current, err := tx.Get(ctx, activeKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("get active session pointer: %w", err)
		default:
			sid, parseErr := id.ParseSessionID(current)
			if parseErr != nil {
				break
			}
			existing, err := s.get(ctx, tx, s.sessionKey(sid))
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
			case err != nil:
				return err
			case existing.IsActive(now):
				return ErrActiveSession
			case existing.Revoke(now, models.RevokeReasonExpired):
				expired = existing
			}
		}

		var expiredData []byte
		if expired != nil {
			if expiredData, err = json.Marshal(sessionToJSON(expired)); err != nil {
				return fmt.Errorf("marshal expired session: %w", err)
			}
		}

		ttl := s.ttl(session, now)
		var created *redis.BoolCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if expired != nil {
				pipe.Set(ctx, s.sessionKey(expired.ID), expiredData, redis.KeepTTL)
				pipe.SRem(ctx, userKey, expired.ID.String())
			}
			created = pipe.SetNX(ctx, sessionKey, data, ttl)
			pipe.Set(ctx, activeKey, session.ID.String(), ttl)
			pipe.SAdd(ctx, userKey, session.ID.String())
			pipe.Expire(ctx, userKey, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		if !created.Val() {
			return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyExists)
		}
		return nil
	}

	for range maxCreateAttempts {
		err = s.client.Watch(ctx, txf, activeKey, sessionKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrActiveSession
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return err
	default:
		return fmt.Errorf("create session: %w", err)
	}
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	return s.get(ctx, s.client, s.sessionKey(sessionID))
}

func (s *RedisStore) FindActive(ctx context.Context, userID id.UserID, scope string) (*models.Session, error) {
	current, err := s.client.Get(ctx, s.activeKey(userID, scope)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("active session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active session pointer: %w", err)
	}
	sid, err := id.ParseSessionID(current)
	if err != nil {
		return nil, fmt.Errorf("active session not found: %w", sentinel.ErrNotFound)
	}
	session, err := s.FindByID(ctx, sid)
	if err != nil {
		return nil, err
	}
	if session.IsRevoked() {
		return nil, fmt.Errorf("active session not found: %w", sentinel.ErrNotFound)
	}
	return session, nil
}

// RevokeIfActive marks the session revoked and frees the active slot. The
// optimistic transaction is retried a few times when a concurrent writer
// touched the same keys.
func (s *RedisStore) RevokeIfActive(ctx context.Context, sessionID id.SessionID, at time.Time, reason models.RevokeReason) (*models.Session, error) {
	key := s.sessionKey(sessionID)
	var result *models.Session

	txf := func(tx *redis.Tx) error {
		session, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if !session.Revoke(at, reason) {
			result = session
			return ErrSessionRevoked
		}

		activeKey := s.activeKey(session.UserID, session.TenantScope)
		if err := tx.Watch(ctx, activeKey).Err(); err != nil {
			return fmt.Errorf("watch active session pointer: %w", err)
		}
		current, err := tx.Get(ctx, activeKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("get active session pointer: %w", err)
		}

		data, err := json.Marshal(sessionToJSON(session))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			if current == sessionID.String() {
				pipe.Del(ctx, activeKey)
			}
			pipe.SRem(ctx, s.userSessionsKey(session.UserID), sessionID.String())
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}

	var err error
	for range maxRevokeAttempts {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrSessionRevoked):
		return result, err
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("revoke session: %w", err)
	}
}

// Touch gives up on a concurrent write instead of retrying; last_seen_at is
// best-effort and a revocation must never be overwritten.
func (s *RedisStore) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	key := s.sessionKey(sessionID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		session, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if session.IsRevoked() || !at.After(session.LastSeenAt) {
			return nil
		}
		session.RecordActivity(at)
		data, err := json.Marshal(sessionToJSON(session))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if err == nil || errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return fmt.Errorf("touch session: %w", err)
}

func (s *RedisStore) ListActiveByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	sessionIDs, err := s.client.SRandMemberN(ctx, s.userSessionsKey(userID), maxSessionsPerUser).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids by user: %w", err)
	}
	if len(sessionIDs) == 0 {
		return []*models.Session{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(sessionIDs))
	for i, sid := range sessionIDs {
		cmds[i] = pipe.Get(ctx, sessionKeyPrefix+sid)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(sessionIDs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var j sessionJSON
		if err := json.Unmarshal([]byte(data), &j); err != nil {
			continue
		}
		session, err := sessionFromJSON(&j)
		if err != nil || session.IsRevoked() {
			continue
		}
		sessions = append(sessions, session)
	}
	sortByCreatedAt(sessions)
	return sessions, nil
}
