package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewServer(t *testing.T) {
	s := NewServer("querylens-engine", "1.2.3", zap.NewNop())
	require.NotNil(t, s)
	assert.NotNil(t, s.MCP())
}

func TestNewStreamableHTTPServer(t *testing.T) {
	s := NewServer("querylens-engine", "1.2.3", zap.NewNop())
	assert.NotNil(t, s.NewStreamableHTTPServer())
}
