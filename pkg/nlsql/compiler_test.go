package nlsql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/models"
)

func testPrompt() Prompt {
	return Prompt{System: "generate sql", User: "Delete the order with ID 456"}
}

func TestCompileParsesWellFormedResponse(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Content: "```json\n{\"sql\": \"DELETE FROM orders WHERE id = $1;\", \"params\": [456]}\n```",
		}, nil
	}

	c := NewCompiler(mock, time.Second, zap.NewNop())
	candidate, err := c.Compile(context.Background(), testPrompt())
	require.NoError(t, err)

	assert.Equal(t, "DELETE FROM orders WHERE id = $1", candidate.SQL)
	assert.Equal(t, models.StatementDelete, candidate.Kind)
	assert.Equal(t, []string{"orders"}, candidate.Tables)
	require.Len(t, candidate.Params, 1)
	assert.EqualValues(t, 456, candidate.Params[0])
	assert.Equal(t, 1, mock.CompleteCalls)
}

func TestCompileRetriesOnceOnUnparseableResponse(t *testing.T) {
	mock := llm.NewMockClient()
	responses := []string{
		"Sure! Here is some SQL for you.",
		`{"sql": "SELECT id FROM orders", "params": []}`,
	}
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		content := responses[mock.CompleteCalls-1]
		return &llm.CompletionResult{Content: content}, nil
	}

	c := NewCompiler(mock, time.Second, zap.NewNop())
	candidate, err := c.Compile(context.Background(), testPrompt())
	require.NoError(t, err)

	assert.Equal(t, models.StatementSelect, candidate.Kind)
	assert.Equal(t, 2, mock.CompleteCalls)
}

func TestCompileFailsAfterSecondUnparseableResponse(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Content: "not json, not sql"}, nil
	}

	c := NewCompiler(mock, time.Second, zap.NewNop())
	_, err := c.Compile(context.Background(), testPrompt())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCompilationError, apperrors.KindOf(err))
	assert.Equal(t, 2, mock.CompleteCalls)
}

func TestCompileMultiStatementClassifiedOther(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Content: `{"sql": "SELECT 1; DROP TABLE orders", "params": []}`,
		}, nil
	}

	c := NewCompiler(mock, time.Second, zap.NewNop())
	candidate, err := c.Compile(context.Background(), testPrompt())
	require.NoError(t, err)

	assert.Equal(t, models.StatementOther, candidate.Kind)
	assert.Equal(t, 1, mock.CompleteCalls)
}

func TestCompileUnparseableSQLCountsAsParseFailure(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Content: `{"sql": "SELECT FROM WHERE garbage $$", "params": []}`,
		}, nil
	}

	c := NewCompiler(mock, time.Second, zap.NewNop())
	_, err := c.Compile(context.Background(), testPrompt())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCompilationError, apperrors.KindOf(err))
	assert.Equal(t, 2, mock.CompleteCalls)
}

func TestCompileModelFailureIsTerminal(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		return nil, errors.New("401 Unauthorized")
	}

	c := NewCompiler(mock, time.Second, zap.NewNop())
	_, err := c.Compile(context.Background(), testPrompt())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCompilationError, apperrors.KindOf(err))
	assert.Equal(t, 1, mock.CompleteCalls)
}

func TestCompileTimeout(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	c := NewCompiler(mock, 10*time.Millisecond, zap.NewNop())
	_, err := c.Compile(context.Background(), testPrompt())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}
