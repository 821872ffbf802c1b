package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	sid, uid := id.NewSessionID(), id.NewUserID()

	t.Run("starts active", func(t *testing.T) {
		s, err := NewSession(sid, uid, "acme", "hash", now, now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, s.IsActive(now))
		assert.Equal(t, now, s.LastSeenAt)
	})

	t.Run("rejects missing token hash", func(t *testing.T) {
		_, err := NewSession(sid, uid, "acme", "", now, now.Add(time.Hour))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-positive lifetime", func(t *testing.T) {
		_, err := NewSession(sid, uid, "acme", "hash", now, now)
		assert.Error(t, err)
	})
}

func TestSessionLifecycle(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	s, err := NewSession(id.NewSessionID(), id.NewUserID(), "", "hash", now, now.Add(time.Hour))
	require.NoError(t, err)

	t.Run("expiry does not revoke", func(t *testing.T) {
		later := now.Add(2 * time.Hour)
		assert.True(t, s.IsExpired(later))
		assert.False(t, s.IsRevoked())
		assert.False(t, s.IsActive(later))
	})

	t.Run("revocation is terminal and keeps the first reason", func(t *testing.T) {
		assert.True(t, s.Revoke(now.Add(time.Minute), RevokeReasonLogout))
		assert.False(t, s.Revoke(now.Add(2*time.Minute), RevokeReasonForced))
		assert.Equal(t, RevokeReasonLogout, s.RevokeReason)
		assert.Equal(t, now.Add(time.Minute), *s.RevokedAt)
	})

	t.Run("activity never moves backwards", func(t *testing.T) {
		s.RecordActivity(now.Add(10 * time.Minute))
		s.RecordActivity(now.Add(5 * time.Minute))
		assert.Equal(t, now.Add(10*time.Minute), s.LastSeenAt)
	})
}

func TestLoginRequest(t *testing.T) {
	req := &LoginRequest{Code: "  s-01 ", Password: "pw"}
	req.Normalize()
	assert.Equal(t, "s-01", req.Code)
	assert.NoError(t, req.Validate())

	err := (&LoginRequest{Code: "s-01"}).Validate()
	assert.EqualError(t, err, "password is required")
}

func TestRole(t *testing.T) {
	assert.True(t, RoleTeamLeader.IsValid())
	assert.False(t, Role("owner").IsValid())
}
