package nlsql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/querylens/querylens-engine/pkg/models"
)

const systemPrompt = `You are a SQL generator. Convert the user's request into exactly one SQL statement for the schema provided.

Rules:
- Respond with ONLY a JSON object: {"sql": "<statement>", "params": [<values>]}
- Use positional placeholders $1, $2, ... for every value taken from the request; put the values in "params" in order. Never inline request values as literals.
- Emit exactly one statement. No semicolons, no comments, no explanations.
- Use only tables and columns from the schema.
- UPDATE and DELETE statements must always have a WHERE clause.
- For "show", "list", "count" style requests generate SELECT. Only generate INSERT, UPDATE, or DELETE when the request clearly asks for a change.`

const clarifyPrompt = `Your previous response could not be parsed. Respond again with ONLY the JSON object {"sql": "...", "params": [...]} containing exactly one SQL statement and nothing else.`

// Prompt is the model input assembled for one request.
type Prompt struct {
	System string
	User   string
}

// BuilderConfig bounds prompt size.
type BuilderConfig struct {
	// TableBudget caps how many tables are described.
	TableBudget int
	// HistoryTail caps how many prior queries are included.
	HistoryTail int
}

var wordPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// BuildPrompt assembles the model input from the request, the schema
// snapshot, and recent history. Deterministic given identical inputs.
//
// Tables are ranked by token overlap between the request and the table's
// name and column names, then truncated to the budget. When nothing
// matches, all tables are included up to the budget so the model always
// sees some schema.
func BuildPrompt(requestText string, snap *models.SchemaSnapshot, history []models.HistoryEntry, cfg BuilderConfig) Prompt {
	if cfg.TableBudget <= 0 {
		cfg.TableBudget = 20
	}

	selected := rankTables(requestText, snap, cfg.TableBudget)

	var sb strings.Builder
	sb.WriteString("Database schema:\n")
	for _, table := range selected {
		sb.WriteString(renderTable(table, snap.Tables[table]))
		sb.WriteByte('\n')
	}

	if cfg.HistoryTail > 0 && len(history) > 0 {
		tail := history
		if len(tail) > cfg.HistoryTail {
			tail = tail[len(tail)-cfg.HistoryTail:]
		}
		sb.WriteString("\nRecent queries in this session (for follow-up context):\n")
		for _, entry := range tail {
			if entry.SQL == "" {
				continue
			}
			fmt.Fprintf(&sb, "- request: %s\n  sql: %s\n", entry.Request, entry.SQL)
		}
	}

	sb.WriteString("\nRequest: ")
	sb.WriteString(requestText)

	return Prompt{
		System: systemPrompt,
		User:   sb.String(),
	}
}

// rankTables scores each table by request token overlap with its name and
// columns. Ties and the no-match fallback order alphabetically so output is
// stable.
func rankTables(requestText string, snap *models.SchemaSnapshot, budget int) []string {
	requestTokens := tokenize(requestText)

	names := snap.TableNames()
	type scored struct {
		name  string
		score int
	}

	ranked := make([]scored, 0, len(names))
	anyMatch := false
	for _, name := range names {
		score := overlapScore(requestTokens, name, snap.Tables[name])
		if score > 0 {
			anyMatch = true
		}
		ranked = append(ranked, scored{name: name, score: score})
	}

	if anyMatch {
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].name < ranked[j].name
		})
	}

	if len(ranked) > budget {
		ranked = ranked[:budget]
	}

	selected := make([]string, len(ranked))
	for i, s := range ranked {
		selected[i] = s.name
	}
	return selected
}

func overlapScore(requestTokens map[string]struct{}, table string, columns []models.ColumnDescriptor) int {
	score := 0
	for _, token := range splitIdentifier(table) {
		if _, ok := requestTokens[token]; ok {
			// Table name matches weigh more than column matches.
			score += 3
		}
	}
	for _, col := range columns {
		for _, token := range splitIdentifier(col.Name) {
			if _, ok := requestTokens[token]; ok {
				score++
			}
		}
	}
	return score
}

// tokenize lowercases the request and collects word tokens, including naive
// singulars so "orders" matches an "order" column and vice versa.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[word] = struct{}{}
		if strings.HasSuffix(word, "s") && len(word) > 3 {
			tokens[strings.TrimSuffix(word, "s")] = struct{}{}
		} else {
			tokens[word+"s"] = struct{}{}
		}
	}
	return tokens
}

// splitIdentifier breaks snake_case identifiers into lowercase tokens.
func splitIdentifier(name string) []string {
	parts := strings.Split(strings.ToLower(name), "_")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// renderTable formats one table as "name(col type [PK|FK] [NOT NULL], ...)".
func renderTable(name string, columns []models.ColumnDescriptor) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
		sb.WriteByte(' ')
		sb.WriteString(col.DataType)
		switch col.KeyRole {
		case models.KeyRolePrimary:
			sb.WriteString(" PK")
		case models.KeyRoleForeign:
			sb.WriteString(" FK")
		}
		if !col.Nullable {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
