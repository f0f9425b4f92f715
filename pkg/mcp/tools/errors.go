package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/querylens/querylens-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results. Pipeline
// failures are returned as successful tool results carrying the error kind
// and message, so the caller always sees exactly why a request was refused
// rather than an opaque protocol error.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Kind    string `json:"error_kind"`
	Message string `json:"message"`
}

// NewErrorResult creates a tool result containing a structured error.
func NewErrorResult(kind, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Kind:    kind,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// resultFromError maps a pipeline error onto the taxonomy and packages it as
// a structured error result.
func resultFromError(err error) *mcp.CallToolResult {
	return NewErrorResult(string(apperrors.KindOf(err)), err.Error())
}
