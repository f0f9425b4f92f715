// Package datasource defines the driver interface for customer databases
// and the session-scoped connection manager built on top of it.
package datasource

import (
	"context"

	"github.com/querylens/querylens-engine/pkg/models"
)

// Driver is the engine-specific access layer for one live database
// connection. Each implementation owns its handle and must be closed
// when done.
type Driver interface {
	// Engine returns the engine kind this driver talks to.
	Engine() models.EngineKind

	// Ping verifies the database is reachable with valid credentials.
	Ping(ctx context.Context) error

	// Tables returns the names of all user tables.
	Tables(ctx context.Context) ([]string, error)

	// Columns returns column descriptors for a specific table.
	Columns(ctx context.Context, table string) ([]models.ColumnDescriptor, error)

	// Query runs a SELECT with positional $1, $2, ... placeholders and
	// returns bounded results. The query is wrapped with a dialect-specific
	// row limit when limit > 0.
	Query(ctx context.Context, sqlText string, params []any, limit int) (*QueryPayload, error)

	// Exec runs a mutating statement (INSERT/UPDATE/DELETE) with positional
	// placeholders and returns the number of affected rows.
	Exec(ctx context.Context, sqlText string, params []any) (int64, error)

	// Close releases the database handle.
	Close() error
}

// QueryPayload holds the results from executing a query.
type QueryPayload struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}
