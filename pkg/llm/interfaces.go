// Package llm provides the model clients used for SQL generation, with
// OpenAI-compatible and Anthropic backends behind one interface.
package llm

import "context"

// CompletionResult holds the model output and token usage for one completion.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the completion interface the compiler depends on.
type Client interface {
	// Complete sends a system message and user prompt and returns the
	// model's text response.
	Complete(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Config holds configuration for creating a model client.
type Config struct {
	Provider    string  // "openai" or "anthropic"
	Endpoint    string  // Base URL; optional for anthropic, required for openai-compatible
	Model       string  // Model name
	APIKey      string  // Optional for local openai-compatible endpoints
	Temperature float64 // Sampling temperature
	MaxTokens   int     // Response token ceiling; 0 uses the provider default
}
