// Package tools provides the MCP tool implementations for querylens-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/session"
)

// Deps contains the dependencies shared by all tools.
type Deps struct {
	Sessions *session.Registry
	Logger   *zap.Logger
}

// sessionFor resolves the caller's session. Transports without client
// sessions (stdio) share the registry's default session.
func sessionFor(ctx context.Context, deps *Deps) *session.Session {
	id := ""
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		id = cs.SessionID()
	}
	return deps.Sessions.Get(id)
}

// textResult marshals a payload into a text tool result.
func textResult(payload any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
