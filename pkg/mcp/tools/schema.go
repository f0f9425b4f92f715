package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/querylens/querylens-engine/pkg/models"
)

type listTablesResult struct {
	Tables []string `json:"tables"`
	Count  int      `json:"count"`
}

type describeTableResult struct {
	Table   string                    `json:"table"`
	Columns []models.ColumnDescriptor `json:"columns"`
}

// RegisterSchemaTools registers the list_tables, describe_table, and
// refresh_schema tools.
func RegisterSchemaTools(s *server.MCPServer, deps *Deps) {
	registerListTablesTool(s, deps)
	registerDescribeTableTool(s, deps)
	registerRefreshSchemaTool(s, deps)
}

func registerListTablesTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"list_tables",
		mcp.WithDescription(
			"List the tables in the connected database. Schema metadata is cached per "+
				"connection; use refresh_schema after out-of-band schema changes.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tables, err := sessionFor(ctx, deps).ListTables(ctx)
		if err != nil {
			return resultFromError(err), nil
		}
		return textResult(listTablesResult{Tables: tables, Count: len(tables)})
	})
}

func registerDescribeTableTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"describe_table",
		mcp.WithDescription(
			"Describe a table's columns: name, type, nullability, and whether the column "+
				"is a primary or foreign key.",
		),
		mcp.WithString("table", mcp.Required(),
			mcp.Description("Name of the table to describe")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return nil, err
		}

		columns, err := sessionFor(ctx, deps).DescribeTable(ctx, table)
		if err != nil {
			return resultFromError(err), nil
		}
		return textResult(describeTableResult{Table: table, Columns: columns})
	})
}

func registerRefreshSchemaTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"refresh_schema",
		mcp.WithDescription(
			"Rediscover the connected database's schema, replacing the cached snapshot. "+
				"Use after tables or columns were changed outside this session.",
		),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := sessionFor(ctx, deps).RefreshSchema(ctx)
		if err != nil {
			return resultFromError(err), nil
		}
		tables := snap.TableNames()
		return textResult(listTablesResult{Tables: tables, Count: len(tables)})
	})
}
