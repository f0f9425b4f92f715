package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/config"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/models"
)

type fakeDriver struct {
	rows []map[string]any
	cols []string

	queryErr error
	execErr  error
	affected int64

	queryCalls int
	execCalls  int
	lastSQL    string
	lastParams []any
	lastLimit  int
	closed     bool
}

func (f *fakeDriver) Engine() models.EngineKind { return models.EnginePostgres }
func (f *fakeDriver) Ping(ctx context.Context) error {
	return nil
}

func (f *fakeDriver) Tables(ctx context.Context) ([]string, error) {
	return []string{"orders", "customers"}, nil
}

func (f *fakeDriver) Columns(ctx context.Context, table string) ([]models.ColumnDescriptor, error) {
	switch table {
	case "orders":
		return []models.ColumnDescriptor{
			{Name: "id", DataType: "bigint", KeyRole: models.KeyRolePrimary},
			{Name: "status", DataType: "text", Nullable: true},
		}, nil
	case "customers":
		return []models.ColumnDescriptor{
			{Name: "id", DataType: "bigint", KeyRole: models.KeyRolePrimary},
			{Name: "name", DataType: "text"},
		}, nil
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

func (f *fakeDriver) Query(ctx context.Context, sqlText string, params []any, limit int) (*datasource.QueryPayload, error) {
	f.queryCalls++
	f.lastSQL = sqlText
	f.lastParams = params
	f.lastLimit = limit
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &datasource.QueryPayload{Columns: f.cols, Rows: f.rows}, nil
}

func (f *fakeDriver) Exec(ctx context.Context, sqlText string, params []any) (int64, error) {
	f.execCalls++
	f.lastSQL = sqlText
	f.lastParams = params
	if f.execErr != nil {
		return 0, f.execErr
	}
	return f.affected, nil
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func testQueryConfig() config.QueryConfig {
	return config.QueryConfig{
		RowLimit:           3,
		ExecTimeoutSeconds: 5,
		CacheTTLSeconds:    60,
		EnableCache:        true,
		EnableHistory:      true,
		HistoryTail:        5,
		PromptTableBudget:  20,
	}
}

// scriptedClient returns each response once, in order.
func scriptedClient(responses ...string) *llm.MockClient {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, system, prompt string) (*llm.CompletionResult, error) {
		i := mock.CompleteCalls - 1
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return &llm.CompletionResult{Content: responses[i]}, nil
	}
	return mock
}

func newConnectedSession(t *testing.T, client llm.Client, driver *fakeDriver) *Session {
	t.Helper()

	manager := datasource.NewManagerWithOpener(
		func(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (datasource.Driver, error) {
			return driver, nil
		}, zap.NewNop())

	s := NewWithManager(manager, client, config.AIConfig{CompileTimeoutSeconds: 5}, testQueryConfig(), zap.NewNop())

	_, err := s.Connect(context.Background(), models.ConnectionDescriptor{
		Engine: models.EnginePostgres, Host: "localhost", Database: "app",
	})
	require.NoError(t, err)
	return s
}

func TestQueryEndToEnd(t *testing.T) {
	driver := &fakeDriver{
		cols: []string{"id", "status"},
		rows: []map[string]any{
			{"id": int64(1), "status": "open"},
			{"id": int64(2), "status": "open"},
		},
	}
	client := scriptedClient(`{"sql": "SELECT id, status FROM orders WHERE status = $1", "params": ["open"]}`)
	s := newConnectedSession(t, client, driver)

	result, err := s.Query(context.Background(), "show open orders")
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, status FROM orders WHERE status = $1", result.SQL)
	assert.Equal(t, []string{"id", "status"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.False(t, result.Truncated)
	assert.False(t, result.FromCache)
	assert.Equal(t, []any{"open"}, driver.lastParams)
	// One past the ceiling so truncation is detectable.
	assert.Equal(t, 4, driver.lastLimit)
}

func TestQueryCacheHitSkipsPipeline(t *testing.T) {
	driver := &fakeDriver{
		cols: []string{"id"},
		rows: []map[string]any{{"id": int64(1)}},
	}
	client := scriptedClient(`{"sql": "SELECT id FROM orders WHERE status = $1", "params": ["open"]}`)
	s := newConnectedSession(t, client, driver)

	first, err := s.Query(context.Background(), "show open orders")
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := s.Query(context.Background(), "show open orders")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, 1, client.CompleteCalls)
	assert.Equal(t, 1, driver.queryCalls)
}

func TestQueryTruncatesAtRowLimit(t *testing.T) {
	driver := &fakeDriver{
		cols: []string{"id"},
		rows: []map[string]any{
			{"id": int64(1)}, {"id": int64(2)}, {"id": int64(3)}, {"id": int64(4)},
		},
	}
	client := scriptedClient(`{"sql": "SELECT id FROM orders", "params": []}`)
	s := newConnectedSession(t, client, driver)

	result, err := s.Query(context.Background(), "show all orders")
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
}

func TestMutateDeleteByID(t *testing.T) {
	driver := &fakeDriver{affected: 1}
	client := scriptedClient(`{"sql": "DELETE FROM orders WHERE id = $1", "params": [456]}`)
	s := newConnectedSession(t, client, driver)

	result, err := s.Mutate(context.Background(), "Delete the order with ID 456", "delete")
	require.NoError(t, err)

	assert.Equal(t, models.StatementDelete, result.Kind)
	assert.Equal(t, int64(1), result.AffectedRows)
	assert.Equal(t, "DELETE FROM orders WHERE id = $1", result.SQL)
	require.Len(t, driver.lastParams, 1)
	assert.EqualValues(t, 456, driver.lastParams[0])
}

func TestMutationInvalidatesCache(t *testing.T) {
	driver := &fakeDriver{
		cols:     []string{"id"},
		rows:     []map[string]any{{"id": int64(1)}},
		affected: 1,
	}
	client := scriptedClient(
		`{"sql": "SELECT id FROM orders WHERE status = $1", "params": ["open"]}`,
		`{"sql": "DELETE FROM orders WHERE id = $1", "params": [456]}`,
		`{"sql": "SELECT id FROM orders WHERE status = $1", "params": ["open"]}`,
	)
	s := newConnectedSession(t, client, driver)

	_, err := s.Query(context.Background(), "show open orders")
	require.NoError(t, err)
	require.Equal(t, 1, driver.queryCalls)

	_, err = s.Mutate(context.Background(), "Delete the order with ID 456", "delete")
	require.NoError(t, err)

	result, err := s.Query(context.Background(), "show open orders")
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, driver.queryCalls)
}

func TestMutateKindMismatch(t *testing.T) {
	driver := &fakeDriver{affected: 1}
	client := scriptedClient(`{"sql": "DELETE FROM orders WHERE id = $1", "params": [456]}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Mutate(context.Background(), "Delete the order with ID 456", "update")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDisallowedStatementKind, apperrors.KindOf(err))
	assert.Equal(t, 0, driver.execCalls)
}

func TestMutateRequiresKind(t *testing.T) {
	driver := &fakeDriver{affected: 1}
	client := scriptedClient(`{"sql": "DELETE FROM orders WHERE id = $1", "params": [456]}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Mutate(context.Background(), "Delete the order with ID 456", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind must be")
	assert.Equal(t, 0, driver.execCalls)
}

func TestQueryRefusesMutatingStatement(t *testing.T) {
	driver := &fakeDriver{}
	client := scriptedClient(`{"sql": "DELETE FROM orders WHERE id = $1", "params": [456]}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Query(context.Background(), "Delete the order with ID 456")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDisallowedStatementKind, apperrors.KindOf(err))
	assert.Equal(t, 0, driver.queryCalls)
	assert.Equal(t, 0, driver.execCalls)
}

func TestQueryUnknownTableNeverExecutes(t *testing.T) {
	driver := &fakeDriver{}
	client := scriptedClient(`{"sql": "SELECT id FROM invoices WHERE id = $1", "params": [1]}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Query(context.Background(), "show me invoice 1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnknownTable, apperrors.KindOf(err))
	assert.Equal(t, 0, driver.queryCalls)
}

func TestQueryMissingFilterPredicate(t *testing.T) {
	driver := &fakeDriver{}
	client := scriptedClient(`{"sql": "DELETE FROM orders", "params": []}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Mutate(context.Background(), "clear out the orders table", "delete")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingFilterPredicate, apperrors.KindOf(err))
	assert.Equal(t, 0, driver.execCalls)
}

func TestQueryWithoutConnection(t *testing.T) {
	manager := datasource.NewManagerWithOpener(
		func(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (datasource.Driver, error) {
			return nil, errors.New("unreachable")
		}, zap.NewNop())
	s := NewWithManager(manager, llm.NewMockClient(), config.AIConfig{CompileTimeoutSeconds: 5}, testQueryConfig(), zap.NewNop())

	_, err := s.Query(context.Background(), "show open orders")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnectionError, apperrors.KindOf(err))
}

func TestDisconnectIdempotent(t *testing.T) {
	driver := &fakeDriver{}
	s := newConnectedSession(t, llm.NewMockClient(), driver)

	require.NoError(t, s.Disconnect())
	assert.True(t, driver.closed)
	require.NoError(t, s.Disconnect())

	_, err := s.Query(context.Background(), "show open orders")
	assert.Equal(t, apperrors.KindConnectionError, apperrors.KindOf(err))
}

func TestEngineRejectionSurfacedVerbatim(t *testing.T) {
	driver := &fakeDriver{queryErr: errors.New(`syntax error at or near "GROPU"`)}
	client := scriptedClient(`{"sql": "SELECT id FROM orders", "params": []}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Query(context.Background(), "show all orders")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindEngineRejected, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), `syntax error at or near "GROPU"`)
}

func TestExecutionTimeout(t *testing.T) {
	driver := &fakeDriver{queryErr: context.DeadlineExceeded}
	client := scriptedClient(`{"sql": "SELECT id FROM orders", "params": []}`)
	s := newConnectedSession(t, client, driver)

	_, err := s.Query(context.Background(), "show all orders")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}

func TestListAndDescribeTables(t *testing.T) {
	driver := &fakeDriver{}
	s := newConnectedSession(t, llm.NewMockClient(), driver)

	tables, err := s.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)

	columns, err := s.DescribeTable(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "id", columns[0].Name)

	_, err = s.DescribeTable(context.Background(), "invoices")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnknownTable, apperrors.KindOf(err))
}

func TestHistoryRecordsOutcomes(t *testing.T) {
	driver := &fakeDriver{
		cols: []string{"id"},
		rows: []map[string]any{{"id": int64(1)}},
	}
	client := scriptedClient(
		`{"sql": "SELECT id FROM orders", "params": []}`,
		`{"sql": "SELECT id FROM invoices", "params": []}`,
	)
	s := newConnectedSession(t, client, driver)

	_, err := s.Query(context.Background(), "show all orders")
	require.NoError(t, err)
	_, err = s.Query(context.Background(), "show all invoices")
	require.Error(t, err)

	entries := s.History(10)
	require.Len(t, entries, 2)
	assert.Greater(t, entries[1].Seq, entries[0].Seq)

	assert.True(t, entries[0].Success)
	assert.Equal(t, 1, entries[0].RowCount)

	assert.False(t, entries[1].Success)
	assert.Equal(t, models.RejectUnknownTable, entries[1].RejectReason)

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalRequests)
	assert.InDelta(t, 50.0, stats.SuccessRate(), 0.01)
}

func TestRegistryIsolatesSessions(t *testing.T) {
	r := NewRegistry(llm.NewMockClient(), config.AIConfig{CompileTimeoutSeconds: 5}, testQueryConfig(), zap.NewNop())

	a := r.Get("client-a")
	b := r.Get("client-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, r.Get("client-a"))
	assert.Same(t, r.Get(""), r.Get("default"))
	assert.Equal(t, 3, r.Len())

	r.Remove("client-a")
	assert.Equal(t, 2, r.Len())
	assert.NotSame(t, a, r.Get("client-a"))
}
