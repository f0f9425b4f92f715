package history

import (
	"fmt"

	"github.com/querylens/querylens-engine/pkg/models"
)

// Suggestion is a natural-language request the caller could issue next.
type Suggestion struct {
	Request string `json:"request"`
	Basis   string `json:"basis"` // "history" or "schema"
}

// Suggest proposes follow-up requests. Recent successful reads seed
// variations; the schema snapshot fills the rest with starter queries for
// tables the session has not touched yet.
func (s *Store) Suggest(snap *models.SchemaSnapshot, limit int) []Suggestion {
	if limit <= 0 {
		limit = 5
	}

	var out []Suggestion
	seen := make(map[string]struct{})
	add := func(sug Suggestion) {
		if _, ok := seen[sug.Request]; ok || len(out) >= limit {
			return
		}
		seen[sug.Request] = struct{}{}
		out = append(out, sug)
	}

	touched := make(map[string]struct{})
	for _, e := range s.Tail(10) {
		if !e.Success || e.Kind != models.StatementSelect {
			continue
		}
		for _, table := range tablesOf(e, snap) {
			touched[table] = struct{}{}
			add(Suggestion{
				Request: fmt.Sprintf("How many rows are in %s?", table),
				Basis:   "history",
			})
			add(Suggestion{
				Request: fmt.Sprintf("Show the 10 most recent rows in %s", table),
				Basis:   "history",
			})
		}
	}

	if snap != nil {
		for _, table := range snap.TableNames() {
			if _, ok := touched[table]; ok {
				continue
			}
			add(Suggestion{
				Request: fmt.Sprintf("Show me a sample of rows from %s", table),
				Basis:   "schema",
			})
		}
	}
	return out
}

// tablesOf extracts the tables an entry touched, keeping only ones the
// snapshot still knows about.
func tablesOf(e models.HistoryEntry, snap *models.SchemaSnapshot) []string {
	if snap == nil {
		return nil
	}
	var out []string
	for _, table := range snap.TableNames() {
		if containsWord(e.SQL, table) {
			out = append(out, table)
		}
	}
	return out
}

func containsWord(sql, word string) bool {
	set := wordSet(sql)
	_, ok := set[word]
	return ok
}
