package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/querylens/querylens-engine/pkg/models"
)

type connectResult struct {
	Connected    bool   `json:"connected"`
	ConnectionID string `json:"connection_id"`
	Target       string `json:"target"`
}

type disconnectResult struct {
	Disconnected bool `json:"disconnected"`
}

// RegisterConnectionTools registers the connect, disconnect, and status tools.
func RegisterConnectionTools(s *server.MCPServer, deps *Deps) {
	registerConnectTool(s, deps)
	registerDisconnectTool(s, deps)
	registerStatusTool(s, deps)
}

func registerConnectTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"connect",
		mcp.WithDescription(
			"Connect this session to a database. Supported engines: postgres, mysql, sqlite. "+
				"Connecting while already connected replaces the current connection. "+
				"For sqlite pass path; for postgres and mysql pass host, database, and credentials.",
		),
		mcp.WithString("engine", mcp.Required(),
			mcp.Description("Database engine: postgres, mysql, or sqlite")),
		mcp.WithString("host", mcp.Description("Database host (postgres, mysql)")),
		mcp.WithNumber("port", mcp.Description("Database port; defaults to the engine's standard port")),
		mcp.WithString("user", mcp.Description("Database user")),
		mcp.WithString("password", mcp.Description("Database password; never logged or echoed back")),
		mcp.WithString("database", mcp.Description("Database name (postgres, mysql)")),
		mcp.WithString("path", mcp.Description("Database file path (sqlite)")),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		engine, err := req.RequireString("engine")
		if err != nil {
			return nil, err
		}

		desc := models.ConnectionDescriptor{
			Engine:   models.EngineKind(engine),
			Host:     req.GetString("host", ""),
			Port:     req.GetInt("port", 0),
			User:     req.GetString("user", ""),
			Password: req.GetString("password", ""),
			Database: req.GetString("database", ""),
			Path:     req.GetString("path", ""),
		}
		if desc.Port == 0 {
			desc.Port = defaultPort(desc.Engine)
		}

		sess := sessionFor(ctx, deps)
		connID, err := sess.Connect(ctx, desc)
		if err != nil {
			return resultFromError(err), nil
		}

		return textResult(connectResult{
			Connected:    true,
			ConnectionID: connID,
			Target:       desc.Redacted(),
		})
	})
}

func registerDisconnectTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"disconnect",
		mcp.WithDescription(
			"Close this session's database connection. Safe to call when not connected.",
		),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sessionFor(ctx, deps).Disconnect(); err != nil {
			return resultFromError(err), nil
		}
		return textResult(disconnectResult{Disconnected: true})
	})
}

func registerStatusTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"status",
		mcp.WithDescription(
			"Report this session's connection state: engine, target with credentials omitted, and uptime.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(sessionFor(ctx, deps).Status())
	})
}

func defaultPort(engine models.EngineKind) int {
	switch engine {
	case models.EnginePostgres:
		return 5432
	case models.EngineMySQL:
		return 3306
	}
	return 0
}
