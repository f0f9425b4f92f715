// Package sqlguard provides statement normalization, placeholder rewriting,
// and injection screening applied to generated SQL before it reaches a
// database engine.
package sqlguard

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the text contains more than one SQL statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// NormalizeResult contains the normalized SQL and any normalization error.
type NormalizeResult struct {
	NormalizedSQL string
	Error         error
}

// Normalize strips the trailing semicolon and rejects multi-statement input.
//
// The order is:
// 1. Strip trailing semicolon and whitespace
// 2. Check for multiple statements (any remaining semicolons outside string literals)
func Normalize(sqlText string) NormalizeResult {
	sqlText = strings.TrimSpace(sqlText)

	if sqlText == "" {
		return NormalizeResult{NormalizedSQL: sqlText}
	}

	normalized := stripTrailingSemicolon(sqlText)

	if hasSemicolonOutsideStrings(normalized) {
		return NormalizeResult{Error: ErrMultipleStatements}
	}

	return NormalizeResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals. The trailing semicolon has already been
// stripped, so any remaining one means a second statement.
func hasSemicolonOutsideStrings(sqlText string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlText {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// A doubled quote exits and immediately re-enters the string state,
			// which is equivalent to staying inside it.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSuffix(sqlText, ";")
		sqlText = strings.TrimRight(sqlText, " \t\n\r")
	}
	return sqlText
}
