package nlsql

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/sqlguard"
)

// Validator applies the safety rules to a candidate statement. Pure with
// respect to its inputs; rules run in order and the first failure wins.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a validator.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("validator")}
}

// Validate checks the candidate against the current schema snapshot and the
// request it was compiled from. Rules in order:
//
//  1. Statement kind must be SELECT, INSERT, UPDATE, or DELETE.
//  2. UPDATE/DELETE must have a WHERE clause referencing at least one column.
//  3. Every referenced table must exist in the snapshot.
//  4. No value taken from the request may appear as an embedded literal
//     instead of a bound parameter.
//  5. String parameters must not carry SQL injection payloads.
func (v *Validator) Validate(candidate models.CandidateStatement, snap *models.SchemaSnapshot, requestText string) models.Verdict {
	if candidate.Kind == models.StatementOther {
		return v.reject(candidate, models.RejectDisallowedStatementKind,
			"only SELECT, INSERT, UPDATE, and DELETE statements are permitted")
	}

	analysis, err := Analyze(candidate.SQL)
	if err != nil {
		return v.reject(candidate, models.RejectDisallowedStatementKind,
			fmt.Sprintf("statement could not be analyzed: %v", err))
	}

	if candidate.Kind == models.StatementUpdate || candidate.Kind == models.StatementDelete {
		if !analysis.FilterReferencesColumn {
			return v.reject(candidate, models.RejectMissingFilterPredicate,
				fmt.Sprintf("%s without a WHERE clause referencing a column is not permitted", candidate.Kind))
		}
	}

	for _, table := range analysis.Tables {
		if !snap.HasTable(table) {
			return v.reject(candidate, models.RejectUnknownTable,
				fmt.Sprintf("table %q does not exist in the connected database", table))
		}
	}

	if literal, found := requestDerivedLiteral(analysis.Literals, requestText); found {
		return v.reject(candidate, models.RejectUnparameterizedLiteral,
			fmt.Sprintf("value %q from the request is embedded as a literal instead of a bound parameter", literal))
	}

	if results := sqlguard.CheckAllParameters(candidate.Params); len(results) > 0 {
		return v.reject(candidate, models.RejectInjectionSuspected,
			fmt.Sprintf("parameter %d matches a SQL injection pattern (fingerprint %s)",
				results[0].ParamIndex+1, results[0].Fingerprint))
	}

	return models.Accept()
}

func (v *Validator) reject(candidate models.CandidateStatement, reason models.RejectReason, detail string) models.Verdict {
	v.logger.Info("candidate rejected",
		zap.String("reason", string(reason)),
		zap.String("kind", string(candidate.Kind)))
	return models.Reject(reason, detail)
}

var numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

// requestDerivedLiteral reports whether any embedded literal plausibly came
// from the request text. Numbers must appear as standalone tokens in the
// request; strings match case-insensitively. LIMIT counts were already
// excluded during analysis, so "top 10" does not trip on LIMIT 10.
func requestDerivedLiteral(literals []Literal, requestText string) (string, bool) {
	lowerRequest := strings.ToLower(requestText)
	requestNumbers := make(map[string]struct{})
	for _, n := range numberPattern.FindAllString(requestText, -1) {
		requestNumbers[n] = struct{}{}
	}

	for _, lit := range literals {
		if lit.IsString {
			if len(lit.Value) >= 2 && strings.Contains(lowerRequest, strings.ToLower(lit.Value)) {
				return lit.Value, true
			}
			continue
		}
		if _, ok := requestNumbers[lit.Value]; ok {
			return lit.Value, true
		}
	}
	return "", false
}
