package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "salesgate/pkg/domain-errors"
)

func TestNewTenant(t *testing.T) {
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("normalizes the subdomain", func(t *testing.T) {
		tenant, err := NewTenant(7, "  ACME ", "Acme Corp", now)
		require.NoError(t, err)
		assert.Equal(t, "acme", tenant.Subdomain)
	})

	t.Run("rejects non DNS labels", func(t *testing.T) {
		for _, sub := range []string{"", "-acme", "ac me", "acme.example"} {
			_, err := NewTenant(7, sub, "Acme", now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), sub)
		}
	})

	t.Run("rejects zero id", func(t *testing.T) {
		_, err := NewTenant(0, "acme", "Acme", now)
		assert.Error(t, err)
	})
}

func TestClone_DetachesMetadata(t *testing.T) {
	orig := &Tenant{ID: 1, Subdomain: "acme", Metadata: map[string]any{"plan": "pro"}}
	c := orig.Clone()
	c.Metadata["plan"] = "free"
	assert.Equal(t, "pro", orig.Metadata["plan"])
}
