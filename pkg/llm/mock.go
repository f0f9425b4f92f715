package llm

import (
	"context"
)

// MockClient is a configurable mock for testing completion-dependent code.
// Set CompleteFunc to control behavior in tests.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked. If nil, returns an
	// empty result and nil error.
	CompleteFunc func(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// CompleteCalls counts invocations for verification.
	CompleteCalls int
}

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error) {
	m.CompleteCalls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemMessage, prompt)
	}
	return &CompletionResult{}, nil
}

// GetModel implements Client.
func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking.
func (m *MockClient) Reset() {
	m.CompleteCalls = 0
}

var _ Client = (*MockClient)(nil)
