package sqlguard

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Generated statements carry PostgreSQL-style positional placeholders
// ($1, $2, ...). Engines that bind with '?' need the placeholders rewritten
// and the parameter slice reordered to match occurrence order, since the
// same $N may appear more than once or out of sequence.

// RewriteToQuestionMarks converts $N placeholders to '?' and returns the
// parameter values ordered by occurrence. Placeholders inside string
// literals are left untouched.
func RewriteToQuestionMarks(sqlText string, params []any) (string, []any, error) {
	var (
		sb      strings.Builder
		ordered []any
	)

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)
	state := stateNormal
	prevChar := rune(0)

	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		char := runes[i]

		switch state {
		case stateNormal:
			switch {
			case char == '\'':
				state = stateSingleQuote
				sb.WriteRune(char)
			case char == '"':
				state = stateDoubleQuote
				sb.WriteRune(char)
			case char == '$' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
				j := i + 1
				for j < len(runes) && unicode.IsDigit(runes[j]) {
					j++
				}
				n, err := strconv.Atoi(string(runes[i+1 : j]))
				if err != nil || n < 1 || n > len(params) {
					return "", nil, fmt.Errorf("placeholder $%s has no matching parameter", string(runes[i+1:j]))
				}
				ordered = append(ordered, params[n-1])
				sb.WriteRune('?')
				i = j - 1
			default:
				sb.WriteRune(char)
			}
		case stateSingleQuote:
			sb.WriteRune(char)
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			sb.WriteRune(char)
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return sb.String(), ordered, nil
}

// RewriteForParsing converts $N placeholders to named bind variables (:vN)
// so the statement can be parsed structurally. The parser used for analysis
// does not lex PostgreSQL's $N syntax.
func RewriteForParsing(sqlText string) string {
	var sb strings.Builder

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)
	state := stateNormal
	prevChar := rune(0)

	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		char := runes[i]

		switch state {
		case stateNormal:
			switch {
			case char == '\'':
				state = stateSingleQuote
				sb.WriteRune(char)
			case char == '"':
				state = stateDoubleQuote
				sb.WriteRune(char)
			case char == '$' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
				j := i + 1
				for j < len(runes) && unicode.IsDigit(runes[j]) {
					j++
				}
				sb.WriteString(":v")
				sb.WriteString(string(runes[i+1 : j]))
				i = j - 1
			default:
				sb.WriteRune(char)
			}
		case stateSingleQuote:
			sb.WriteRune(char)
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			sb.WriteRune(char)
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return sb.String()
}
