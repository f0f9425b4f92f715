package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{"nil", nil, "", false},
		{"unauthorized", errors.New("401 Unauthorized"), ErrorTypeAuth, false},
		{"invalid key", errors.New("invalid api key provided"), ErrorTypeAuth, false},
		{"model missing", errors.New("model gpt-9 does not exist"), ErrorTypeModel, false},
		{"endpoint 404", errors.New("404 page not found"), ErrorTypeEndpoint, false},
		{"refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"timeout", errors.New("context deadline exceeded"), ErrorTypeEndpoint, true},
		{"rate limited", errors.New("429 Too Many Requests"), ErrorTypeUnknown, true},
		{"server error", errors.New("503 Service Unavailable"), ErrorTypeEndpoint, true},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantRetryable, got.Retryable)
		})
	}
}

func TestClassifyErrorPassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeAuth, "authentication failed", false, errors.New("401"))
	wrapped := fmt.Errorf("complete: %w", orig)
	assert.Same(t, orig, ClassifyError(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrorTypeEndpoint, "server error", true, nil)))
	assert.False(t, IsRetryable(NewError(ErrorTypeAuth, "authentication failed", false, nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}
