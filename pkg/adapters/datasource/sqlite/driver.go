// Package sqlite implements the datasource driver for SQLite database files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/sqlguard"
)

// Driver provides SQLite access over database/sql. Statements arrive with
// $N placeholders and are rewritten to '?' binding before execution.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDriver opens the SQLite file named by the descriptor's path.
func NewDriver(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (*Driver, error) {
	db, err := sql.Open("sqlite3", desc.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return &Driver{
		db:     db,
		logger: logger.Named("sqlite"),
	}, nil
}

// NewDriverWithDB wraps an existing handle, for tests.
func NewDriverWithDB(db *sql.DB, logger *zap.Logger) *Driver {
	return &Driver{
		db:     db,
		logger: logger.Named("sqlite"),
	}
}

// Engine implements datasource.Driver.
func (d *Driver) Engine() models.EngineKind {
	return models.EngineSQLite
}

// Ping implements datasource.Driver.
func (d *Driver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Tables returns all user tables, excluding SQLite internal tables.
func (d *Driver) Tables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
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

// Columns returns column descriptors for a table via PRAGMA table_info and
// PRAGMA foreign_key_list. PRAGMA statements cannot bind the table name, so
// it is quoted as an identifier.
func (d *Driver) Columns(ctx context.Context, table string) ([]models.ColumnDescriptor, error) {
	fkColumns, err := d.foreignKeyColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(table))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.ColumnDescriptor
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			dfltValue        sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		col := models.ColumnDescriptor{
			Name:     name,
			DataType: dataType,
			Nullable: notNull == 0,
			KeyRole:  models.KeyRoleNone,
		}
		switch {
		case pk > 0:
			col.KeyRole = models.KeyRolePrimary
		case fkColumns[name]:
			col.KeyRole = models.KeyRoleForeign
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// foreignKeyColumns returns the set of column names that participate in a
// foreign key constraint.
func (d *Driver) foreignKeyColumns(ctx context.Context, table string) (map[string]bool, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdentifier(table))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	fkColumns := make(map[string]bool)
	for rows.Next() {
		var (
			id, seq                   int
			refTable, from, to        string
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fkColumns[from] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fkColumns, nil
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

// quoteIdentifier double-quotes an identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ datasource.Driver = (*Driver)(nil)
