package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "strips trailing semicolon",
			input: "SELECT * FROM orders;",
			want:  "SELECT * FROM orders",
		},
		{
			name:  "strips trailing semicolon with whitespace",
			input: "  SELECT * FROM orders ;  \n",
			want:  "SELECT * FROM orders",
		},
		{
			name:  "passes clean statement through",
			input: "SELECT id FROM customers WHERE id = $1",
			want:  "SELECT id FROM customers WHERE id = $1",
		},
		{
			name:    "rejects stacked statements",
			input:   "SELECT 1; DROP TABLE orders",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "rejects stacked statements with trailing semicolon",
			input:   "SELECT 1; DELETE FROM orders;",
			wantErr: ErrMultipleStatements,
		},
		{
			name:  "semicolon inside single-quoted literal is fine",
			input: "SELECT * FROM notes WHERE body = 'a; b'",
			want:  "SELECT * FROM notes WHERE body = 'a; b'",
		},
		{
			name:  "semicolon inside double-quoted identifier is fine",
			input: `SELECT "weird;col" FROM t`,
			want:  `SELECT "weird;col" FROM t`,
		},
		{
			name:  "escaped quote does not end literal",
			input: `SELECT * FROM t WHERE s = 'it''s; fine'`,
			want:  `SELECT * FROM t WHERE s = 'it''s; fine'`,
		},
		{
			name:  "empty input",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, got.Error, tt.wantErr)
				return
			}
			require.NoError(t, got.Error)
			assert.Equal(t, tt.want, got.NormalizedSQL)
		})
	}
}
