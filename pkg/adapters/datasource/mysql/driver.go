// Package mysql implements the datasource driver for MySQL and MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/sqlguard"
)

// Driver provides MySQL access over database/sql. Statements arrive with
// $N placeholders and are rewritten to '?' binding before execution.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDriver opens a MySQL connection for the descriptor.
func NewDriver(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (*Driver, error) {
	cfg := gomysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", desc.Host, desc.Port)
	cfg.User = desc.User
	cfg.Passwd = desc.Password
	cfg.DBName = desc.Database
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	return &Driver{
		db:     db,
		logger: logger.Named("mysql"),
	}, nil
}

// NewDriverWithDB wraps an existing handle, for tests.
func NewDriverWithDB(db *sql.DB, logger *zap.Logger) *Driver {
	return &Driver{
		db:     db,
		logger: logger.Named("mysql"),
	}
}

// Engine implements datasource.Driver.
func (d *Driver) Engine() models.EngineKind {
	return models.EngineMySQL
}

// Ping implements datasource.Driver.
func (d *Driver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Tables returns all base tables in the connected database.
func (d *Driver) Tables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := d.db.QueryContext(ctx, query)
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

// Columns returns column descriptors for a table. COLUMN_KEY marks primary
// keys with PRI; foreign keys come from key_column_usage rows that reference
// another table.
func (d *Driver) Columns(ctx context.Context, table string) ([]models.ColumnDescriptor, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			c.column_key = 'PRI',
			EXISTS (
				SELECT 1
				FROM information_schema.key_column_usage kcu
				WHERE kcu.table_schema = c.table_schema
				  AND kcu.table_name = c.table_name
				  AND kcu.column_name = c.column_name
				  AND kcu.referenced_table_name IS NOT NULL
			)
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE()
		  AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := d.db.QueryContext(ctx, query, table)
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

// Query runs a SELECT after rewriting $N placeholders to '?'.
func (d *Driver) Query(ctx context.Context, sqlText string, params []any, limit int) (*datasource.QueryPayload, error) {
	rewritten, ordered, err := sqlguard.RewriteToQuestionMarks(sqlText, params)
	if err != nil {
		return nil, err
	}

	queryToRun := rewritten
	if limit > 0 {
		queryToRun = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", rewritten, limit)
	}

	rows, err := d.db.QueryContext(ctx, queryToRun, ordered...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanRows(rows)
}

// Exec runs a mutating statement and returns the affected row count.
func (d *Driver) Exec(ctx context.Context, sqlText string, params []any) (int64, error) {
	rewritten, ordered, err := sqlguard.RewriteToQuestionMarks(sqlText, params)
	if err != nil {
		return 0, err
	}

	result, err := d.db.ExecContext(ctx, rewritten, ordered...)
	if err != nil {
		return 0, fmt.Errorf("execute statement: %w", err)
	}
	return result.RowsAffected()
}

// Close implements datasource.Driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ datasource.Driver = (*Driver)(nil)
