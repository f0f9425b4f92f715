package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/querylens/querylens-engine/pkg/models"
)

type queryToolResult struct {
	*models.QueryResult
	DurationMs int64 `json:"duration_ms"`
}

type mutateToolResult struct {
	*models.MutationResult
	DurationMs int64 `json:"duration_ms"`
}

// RegisterQueryTools registers the query and mutate tools.
func RegisterQueryTools(s *server.MCPServer, deps *Deps) {
	registerQueryTool(s, deps)
	registerMutateTool(s, deps)
}

func registerQueryTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"query",
		mcp.WithDescription(
			"Answer a natural-language question by compiling it into a single validated SELECT "+
				"and executing it against the connected database. Returns the generated SQL, rows "+
				"capped at the configured ceiling with truncated set when the cap was hit, and "+
				"from_cache when an identical recent request was served from the result cache. "+
				"Requests that compile to data changes are refused; use mutate for those.",
		),
		mcp.WithString("request", mcp.Required(),
			mcp.Description("The question to answer, in plain language")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestText, err := req.RequireString("request")
		if err != nil {
			return nil, err
		}

		result, err := sessionFor(ctx, deps).Query(ctx, requestText)
		if err != nil {
			return resultFromError(err), nil
		}
		return textResult(queryToolResult{
			QueryResult: result,
			DurationMs:  result.Duration.Milliseconds(),
		})
	})
}

func registerMutateTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"mutate",
		mcp.WithDescription(
			"Apply a natural-language data change by compiling it into a single validated INSERT, "+
				"UPDATE, or DELETE and executing it. UPDATE and DELETE always require a WHERE clause; "+
				"values from the request are always bound as parameters. Returns the generated SQL "+
				"and the number of affected rows. A successful mutation invalidates cached query "+
				"results for the connection.",
		),
		mcp.WithString("request", mcp.Required(),
			mcp.Description("The change to apply, in plain language")),
		mcp.WithString("kind", mcp.Required(),
			mcp.Description("Expected statement kind: insert, update, or delete. "+
				"The request is refused if the compiled statement does not match.")),
		mcp.WithDestructiveHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestText, err := req.RequireString("request")
		if err != nil {
			return nil, err
		}
		kind, err := req.RequireString("kind")
		if err != nil {
			return nil, err
		}

		result, err := sessionFor(ctx, deps).Mutate(ctx, requestText, kind)
		if err != nil {
			return resultFromError(err), nil
		}
		return textResult(mutateToolResult{
			MutationResult: result,
			DurationMs:     result.Duration.Milliseconds(),
		})
	})
}
