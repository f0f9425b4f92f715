package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a temp directory so Load sees a controlled config.yaml.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "querylens-engine", cfg.Name)
	assert.Equal(t, 1000, cfg.Query.RowLimit)
	assert.Equal(t, 300, cfg.Query.CacheTTLSeconds)
	assert.True(t, cfg.Query.EnableCache)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `
transport: http
port: "9090"
ai:
  provider: anthropic
  model: claude-sonnet-4-5
query:
  row_limit: 50
  enable_cache: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	chdir(t, dir)

	cfg, err := Load("v1")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.AI.Model)
	assert.Equal(t, 50, cfg.Query.RowLimit)
	assert.False(t, cfg.Query.EnableCache)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := "port: \"9090\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	chdir(t, dir)
	t.Setenv("PORT", "4444")
	t.Setenv("AI_API_KEY", "sk-test")

	cfg, err := Load("v1")
	require.NoError(t, err)

	assert.Equal(t, "4444", cfg.Port)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Run("bad transport", func(t *testing.T) {
		t.Setenv("TRANSPORT", "grpc")
		_, err := Load("v1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transport")
	})

	t.Run("bad row limit", func(t *testing.T) {
		t.Setenv("QUERY_ROW_LIMIT", "0")
		_, err := Load("v1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row_limit")
	})
}
