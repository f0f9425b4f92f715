package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/querylens/querylens-engine/pkg/history"
	"github.com/querylens/querylens-engine/pkg/models"
)

type historyResult struct {
	Entries []models.HistoryEntry `json:"entries"`
	Stats   models.HistoryStats   `json:"stats"`
}

type suggestionsResult struct {
	Suggestions []history.Suggestion `json:"suggestions"`
}

// RegisterHistoryTools registers the get_query_history and suggest_queries
// tools.
func RegisterHistoryTools(s *server.MCPServer, deps *Deps) {
	registerGetQueryHistoryTool(s, deps)
	registerSuggestQueriesTool(s, deps)
}

func registerGetQueryHistoryTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_query_history",
		mcp.WithDescription(
			"Return this session's recent requests in order: the request text, the generated SQL, "+
				"whether it was accepted and succeeded, and summary statistics.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return; defaults to 20")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)

		sess := sessionFor(ctx, deps)
		entries := sess.History(limit)
		if entries == nil {
			entries = []models.HistoryEntry{}
		}
		return textResult(historyResult{Entries: entries, Stats: sess.Stats()})
	})
}

func registerSuggestQueriesTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"suggest_queries",
		mcp.WithDescription(
			"Propose natural-language requests to try next, seeded by this session's recent "+
				"successful queries and by tables the session has not explored yet.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum suggestions to return; defaults to 5")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		suggestions, err := sessionFor(ctx, deps).Suggest(ctx, req.GetInt("limit", 5))
		if err != nil {
			return resultFromError(err), nil
		}
		if suggestions == nil {
			suggestions = []history.Suggestion{}
		}
		return textResult(suggestionsResult{Suggestions: suggestions})
	})
}
