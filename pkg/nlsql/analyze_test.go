package nlsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens-engine/pkg/models"
)

func TestAnalyzeKinds(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind models.StatementKind
	}{
		{"select", "SELECT id FROM orders", models.StatementSelect},
		{"insert", "INSERT INTO orders (id) VALUES ($1)", models.StatementInsert},
		{"update", "UPDATE orders SET status = $1 WHERE id = $2", models.StatementUpdate},
		{"delete", "DELETE FROM orders WHERE id = $1", models.StatementDelete},
		{"ddl", "DROP TABLE orders", models.StatementOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := Analyze(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, analysis.Kind)
		})
	}
}

func TestAnalyzeTables(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		tables []string
	}{
		{
			name:   "single table",
			sql:    "SELECT id FROM orders WHERE id = $1",
			tables: []string{"orders"},
		},
		{
			name:   "join",
			sql:    "SELECT o.id FROM orders o JOIN customers c ON o.customer_id = c.id",
			tables: []string{"customers", "orders"},
		},
		{
			name:   "subquery in where",
			sql:    "SELECT id FROM orders WHERE customer_id IN (SELECT id FROM customers WHERE name = $1)",
			tables: []string{"customers", "orders"},
		},
		{
			name:   "quoted identifier",
			sql:    "SELECT id FROM `order items`",
			tables: []string{"order items"},
		},
		{
			name:   "delete",
			sql:    "DELETE FROM orders WHERE id = $1",
			tables: []string{"orders"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := Analyze(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.tables, analysis.Tables)
		})
	}
}

func TestAnalyzeFilterReferencesColumn(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"delete with column predicate", "DELETE FROM orders WHERE id = $1", true},
		{"delete without where", "DELETE FROM orders", false},
		{"update without where", "UPDATE orders SET status = $1", false},
		{"update with tautology", "UPDATE orders SET status = $1 WHERE 1 = 1", false},
		{"update with column predicate", "UPDATE orders SET status = $1 WHERE created_at < $2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := Analyze(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, analysis.FilterReferencesColumn)
		})
	}
}

func TestAnalyzeLiterals(t *testing.T) {
	t.Run("placeholders are not literals", func(t *testing.T) {
		analysis, err := Analyze("SELECT id FROM orders WHERE id = $1 AND status = $2")
		require.NoError(t, err)
		assert.Empty(t, analysis.Literals)
	})

	t.Run("embedded constants are collected", func(t *testing.T) {
		analysis, err := Analyze("SELECT id FROM orders WHERE id = 456 AND status = 'open'")
		require.NoError(t, err)
		require.Len(t, analysis.Literals, 2)
		assert.Equal(t, Literal{Value: "456"}, analysis.Literals[0])
		assert.Equal(t, Literal{Value: "open", IsString: true}, analysis.Literals[1])
	})

	t.Run("limit counts are excluded", func(t *testing.T) {
		analysis, err := Analyze("SELECT id FROM orders ORDER BY id LIMIT 10")
		require.NoError(t, err)
		assert.Empty(t, analysis.Literals)
	})
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze("")
	require.Error(t, err)

	_, err = Analyze("this is not sql at all ;;;")
	require.Error(t, err)
}
