package secrets

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("encodes the requested size", func(t *testing.T) {
		s, err := Generate(48)
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(s)
		require.NoError(t, err)
		assert.Len(t, raw, 48)
	})

	t.Run("small sizes are raised to the default", func(t *testing.T) {
		s, err := Generate(4)
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(s)
		require.NoError(t, err)
		assert.Len(t, raw, DefaultSize)
	})

	t.Run("values differ", func(t *testing.T) {
		a, err := Generate(DefaultSize)
		require.NoError(t, err)
		b, err := Generate(DefaultSize)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}
