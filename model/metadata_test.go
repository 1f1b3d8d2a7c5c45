package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata(t *testing.T) {
	t.Run("Value of nil metadata is an empty object", func(t *testing.T) {
		var m Metadata

		value, err := m.Value()
		require.NoError(t, err)
		assert.Equal(t, []byte("{}"), value)
	})

	t.Run("Scan accepts bytes and strings", func(t *testing.T) {
		var fromBytes, fromString Metadata

		require.NoError(t, fromBytes.Scan([]byte(`{"pages":3}`)))
		require.NoError(t, fromString.Scan(`{"pages":3}`))
		assert.Equal(t, float64(3), fromBytes["pages"])
		assert.Equal(t, fromBytes, fromString)
	})

	t.Run("Scan nil yields empty metadata", func(t *testing.T) {
		var m Metadata
		require.NoError(t, m.Scan(nil))
		assert.NotNil(t, m)
		assert.Len(t, m, 0)
	})

	t.Run("Scan rejects unsupported types", func(t *testing.T) {
		var m Metadata
		err := m.Scan(12345)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "type assertion")
	})

	t.Run("Scan rejects invalid json", func(t *testing.T) {
		var m Metadata
		assert.Error(t, m.Scan([]byte(`{invalid json}`)))
	})
}
