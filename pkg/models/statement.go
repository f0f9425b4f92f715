package models

import "time"

// StatementKind classifies a compiled statement by its leading keyword.
type StatementKind string

const (
	StatementSelect StatementKind = "SELECT"
	StatementInsert StatementKind = "INSERT"
	StatementUpdate StatementKind = "UPDATE"
	StatementDelete StatementKind = "DELETE"

	// StatementOther covers everything the pipeline refuses to run: DDL,
	// administrative commands, multi-statement payloads.
	StatementOther StatementKind = "OTHER"
)

// Mutating reports whether the statement kind modifies data.
func (k StatementKind) Mutating() bool {
	switch k {
	case StatementInsert, StatementUpdate, StatementDelete:
		return true
	}
	return false
}

// CandidateStatement is the compiler's output: unvalidated SQL with bound
// parameter values and structural metadata extracted by parsing. Immutable
// once produced.
type CandidateStatement struct {
	SQL    string        // normalized, single statement, $1..$n placeholders
	Params []any         // positional values for the placeholders
	Kind   StatementKind // from the parsed AST, not substring search
	Tables []string      // every table the statement references
}

// RejectReason identifies the validation rule a candidate violated.
type RejectReason string

const (
	RejectDisallowedStatementKind RejectReason = "disallowed_statement_kind"
	RejectMissingFilterPredicate  RejectReason = "missing_filter_predicate"
	RejectUnknownTable            RejectReason = "unknown_table"
	RejectUnparameterizedLiteral  RejectReason = "unparameterized_literal"
	RejectInjectionSuspected      RejectReason = "injection_suspected"
)

// Verdict is the outcome of safety validation. A rejected candidate never
// reaches the executor.
type Verdict struct {
	Accepted bool
	Reason   RejectReason
	Detail   string
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Reject returns a rejecting verdict with the violated rule and detail.
func Reject(reason RejectReason, detail string) Verdict {
	return Verdict{Accepted: false, Reason: reason, Detail: detail}
}

// QueryResult is the structured outcome of a successful read. It exists only
// if validation accepted the candidate and execution succeeded.
type QueryResult struct {
	SQL       string           `json:"sql"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	FromCache bool             `json:"from_cache"`
	Duration  time.Duration    `json:"-"`
}

// MutationResult is the structured outcome of a successful write.
type MutationResult struct {
	SQL          string        `json:"sql"`
	Kind         StatementKind `json:"kind"`
	AffectedRows int64         `json:"affected_rows"`
	Duration     time.Duration `json:"-"`
}
