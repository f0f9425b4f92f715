// Package nlsql turns natural-language requests into validated SQL
// candidates: prompt construction, model-backed compilation, and static
// safety analysis of the result.
package nlsql

import (
	"fmt"
	"sort"

	"github.com/blastrain/vitess-sqlparser/sqlparser"

	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/sqlguard"
)

// Literal is a constant value embedded directly in a statement rather than
// bound as a parameter. LIMIT/OFFSET counts are not collected.
type Literal struct {
	Value    string
	IsString bool
}

// Analysis is the structural breakdown of a single SQL statement.
type Analysis struct {
	Kind models.StatementKind

	// Tables referenced anywhere in the statement, sorted and deduplicated.
	Tables []string

	// FilterReferencesColumn is true when the WHERE clause mentions at
	// least one column. Only meaningful for UPDATE and DELETE.
	FilterReferencesColumn bool

	// Literals are the embedded constants found outside LIMIT clauses.
	Literals []Literal
}

// Analyze parses a statement and extracts its kind, referenced tables,
// filter shape, and embedded literals. $N placeholders are rewritten to
// named bind variables first since the parser does not lex them.
func Analyze(sqlText string) (*Analysis, error) {
	if sqlText == "" {
		return nil, fmt.Errorf("empty statement")
	}

	stmt, err := sqlparser.Parse(sqlguard.RewriteForParsing(sqlText))
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}

	analysis := &Analysis{}
	tableSet := make(map[string]struct{})

	switch stmt := stmt.(type) {
	case *sqlparser.Select:
		analysis.Kind = models.StatementSelect
		collectSelectTables(stmt, tableSet)
	case *sqlparser.Union:
		analysis.Kind = models.StatementSelect
		collectUnionTables(stmt, tableSet)
	case *sqlparser.Insert:
		analysis.Kind = models.StatementInsert
		tableSet[tableName(stmt.Table)] = struct{}{}
		if sel, ok := stmt.Rows.(*sqlparser.Select); ok {
			collectSelectTables(sel, tableSet)
		}
	case *sqlparser.Update:
		analysis.Kind = models.StatementUpdate
		collectTableExprs(stmt.TableExprs, tableSet)
		analysis.FilterReferencesColumn = whereReferencesColumn(stmt.Where)
	case *sqlparser.Delete:
		analysis.Kind = models.StatementDelete
		collectTableExprs(stmt.TableExprs, tableSet)
		analysis.FilterReferencesColumn = whereReferencesColumn(stmt.Where)
	default:
		analysis.Kind = models.StatementOther
	}

	analysis.Tables = make([]string, 0, len(tableSet))
	for table := range tableSet {
		analysis.Tables = append(analysis.Tables, table)
	}
	sort.Strings(analysis.Tables)

	analysis.Literals = collectLiterals(stmt)

	return analysis, nil
}

func collectSelectTables(stmt *sqlparser.Select, tableSet map[string]struct{}) {
	collectTableExprs(stmt.From, tableSet)
	if stmt.Where != nil {
		collectExprTables(stmt.Where.Expr, tableSet)
	}
}

func collectUnionTables(stmt *sqlparser.Union, tableSet map[string]struct{}) {
	for _, side := range []sqlparser.SelectStatement{stmt.Left, stmt.Right} {
		switch s := side.(type) {
		case *sqlparser.Select:
			collectSelectTables(s, tableSet)
		case *sqlparser.Union:
			collectUnionTables(s, tableSet)
		}
	}
}

func collectTableExprs(exprs sqlparser.TableExprs, tableSet map[string]struct{}) {
	for _, expr := range exprs {
		collectTableExpr(expr, tableSet)
	}
}

func collectTableExpr(expr sqlparser.TableExpr, tableSet map[string]struct{}) {
	switch expr := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		switch inner := expr.Expr.(type) {
		case sqlparser.TableName:
			tableSet[tableName(inner)] = struct{}{}
		case *sqlparser.Subquery:
			if sel, ok := inner.Select.(*sqlparser.Select); ok {
				collectSelectTables(sel, tableSet)
			}
		}
	case *sqlparser.JoinTableExpr:
		collectTableExpr(expr.LeftExpr, tableSet)
		collectTableExpr(expr.RightExpr, tableSet)
		if expr.On != nil {
			collectExprTables(expr.On, tableSet)
		}
	case *sqlparser.ParenTableExpr:
		collectTableExprs(expr.Exprs, tableSet)
	}
}

// collectExprTables finds tables referenced inside expressions, such as
// subqueries in WHERE conditions.
func collectExprTables(expr sqlparser.Expr, tableSet map[string]struct{}) {
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if sub, ok := node.(*sqlparser.Subquery); ok {
			if sel, ok := sub.Select.(*sqlparser.Select); ok {
				collectSelectTables(sel, tableSet)
			}
			return false, nil
		}
		return true, nil
	}, expr)
}

func tableName(name sqlparser.TableName) string {
	if name.Qualifier.IsEmpty() {
		return name.Name.String()
	}
	return fmt.Sprintf("%s.%s", name.Qualifier.String(), name.Name.String())
}

// whereReferencesColumn reports whether the WHERE clause mentions at least
// one column. WHERE 1=1 does not count.
func whereReferencesColumn(where *sqlparser.Where) bool {
	if where == nil || where.Expr == nil {
		return false
	}

	found := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if _, ok := node.(*sqlparser.ColName); ok {
			found = true
			return false, nil
		}
		return true, nil
	}, where.Expr)

	return found
}

// collectLiterals gathers embedded constants, skipping bind variables and
// LIMIT/OFFSET counts.
func collectLiterals(stmt sqlparser.Statement) []Literal {
	var literals []Literal

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node := node.(type) {
		case *sqlparser.Limit:
			return false, nil
		case *sqlparser.SQLVal:
			switch node.Type {
			case sqlparser.StrVal:
				literals = append(literals, Literal{Value: string(node.Val), IsString: true})
			case sqlparser.IntVal, sqlparser.FloatVal:
				literals = append(literals, Literal{Value: string(node.Val)})
			}
		}
		return true, nil
	}, stmt)

	return literals
}
