// Package apperrors defines the typed error taxonomy surfaced at the tool
// boundary. Every failure path in the pipeline maps to exactly one Kind so
// callers always receive a specific, actionable reason.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindConnectionError covers unreachable hosts, auth failures, and
	// operations attempted without a live connection.
	KindConnectionError Kind = "connection_error"

	// KindCompilationError means the model produced no parseable statement
	// after the retry budget was exhausted.
	KindCompilationError Kind = "compilation_error"

	// Validator rejections. Never retried; surfaced with the rule violated.
	KindDisallowedStatementKind Kind = "disallowed_statement_kind"
	KindMissingFilterPredicate  Kind = "missing_filter_predicate"
	KindUnknownTable            Kind = "unknown_table"
	KindUnparameterizedLiteral  Kind = "unparameterized_literal"
	KindInjectionSuspected      Kind = "injection_suspected"

	// KindExecutionError covers driver-level failures before the engine saw
	// the statement; KindEngineRejected carries the engine's own error text
	// for statements that passed validation but were rejected server-side.
	KindExecutionError Kind = "execution_error"
	KindEngineRejected Kind = "engine_rejected"

	// KindTimeout covers both compilation and execution deadlines.
	KindTimeout Kind = "timeout"
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error chain. Context deadline errors map
// to KindTimeout; anything unclassified maps to KindExecutionError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindExecutionError
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ErrConnectionInactive is returned by components that require a live
// connection when none exists.
var ErrConnectionInactive = New(KindConnectionError, "no active connection")
