package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckParameterForInjection(t *testing.T) {
	t.Run("clean string passes", func(t *testing.T) {
		assert.Nil(t, CheckParameterForInjection(0, "12345"))
		assert.Nil(t, CheckParameterForInjection(0, "alice@example.com"))
	})

	t.Run("non-string values pass", func(t *testing.T) {
		assert.Nil(t, CheckParameterForInjection(0, 42))
		assert.Nil(t, CheckParameterForInjection(0, 3.14))
		assert.Nil(t, CheckParameterForInjection(0, true))
		assert.Nil(t, CheckParameterForInjection(0, nil))
	})

	t.Run("injection payload detected", func(t *testing.T) {
		result := CheckParameterForInjection(2, "'; DROP TABLE users--")
		require.NotNil(t, result)
		assert.True(t, result.IsSQLi)
		assert.Equal(t, 2, result.ParamIndex)
		assert.NotEmpty(t, result.Fingerprint)
	})

	t.Run("tautology detected", func(t *testing.T) {
		result := CheckParameterForInjection(0, "1' OR '1'='1")
		require.NotNil(t, result)
		assert.True(t, result.IsSQLi)
	})
}

func TestCheckAllParameters(t *testing.T) {
	params := []any{
		"12345",
		100,
		"'; DROP TABLE users--",
	}
	results := CheckAllParameters(params)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].ParamIndex)
	assert.True(t, results[0].IsSQLi)

	assert.Empty(t, CheckAllParameters([]any{"clean", 1, false}))
	assert.Empty(t, CheckAllParameters(nil))
}
