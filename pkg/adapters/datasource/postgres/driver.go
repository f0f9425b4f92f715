// Package postgres implements the datasource driver for PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/models"
)

// Driver provides PostgreSQL access over a pgx connection pool.
type Driver struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDriver opens a pgx pool for the descriptor.
func NewDriver(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (*Driver, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s",
		desc.Host, desc.Port, desc.User, desc.Password, desc.Database,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Driver{
		pool:   pool,
		logger: logger.Named("postgres"),
	}, nil
}

// Engine implements datasource.Driver.
func (d *Driver) Engine() models.EngineKind {
	return models.EnginePostgres
}

// Ping implements datasource.Driver.
func (d *Driver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Tables returns all user tables in the public schema.
func (d *Driver) Tables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_name
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// Columns returns column descriptors for a table. Primary keys come from
// pg_index.indisprimary, which detects PKs even when created as unique
// indexes by ORMs. Foreign keys come from key_column_usage.
func (d *Driver) Columns(ctx context.Context, table string) ([]models.ColumnDescriptor, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as is_nullable,
			COALESCE(pk.is_pk, false) as is_primary_key,
			COALESCE(fk.is_fk, false) as is_foreign_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND t.relname = $1
		) pk ON c.column_name = pk.column_name
		LEFT JOIN (
			SELECT kcu.column_name, true as is_fk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
			  AND kcu.table_name = $1
		) fk ON c.column_name = fk.column_name
		WHERE c.table_name = $1
		  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY c.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.ColumnDescriptor
	for rows.Next() {
		var (
			col                  models.ColumnDescriptor
			isPrimary, isForeign bool
		)
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &isPrimary, &isForeign); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		switch {
		case isPrimary:
			col.KeyRole = models.KeyRolePrimary
		case isForeign:
			col.KeyRole = models.KeyRoleForeign
		default:
			col.KeyRole = models.KeyRoleNone
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// Query runs a SELECT with pgx-native $N parameter binding.
func (d *Driver) Query(ctx context.Context, sqlText string, params []any, limit int) (*datasource.QueryPayload, error) {
	queryToRun := sqlText
	if limit > 0 {
		queryToRun = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlText, limit)
	}

	rows, err := d.pool.Query(ctx, queryToRun, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &datasource.QueryPayload{
		Columns: columns,
		Rows:    resultRows,
	}, nil
}

// Exec runs a mutating statement and returns the affected row count.
func (d *Driver) Exec(ctx context.Context, sqlText string, params []any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sqlText, params...)
	if err != nil {
		return 0, fmt.Errorf("execute statement: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close implements datasource.Driver.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

var _ datasource.Driver = (*Driver)(nil)
