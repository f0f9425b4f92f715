// Package session ties the pipeline together for one caller: connection
// management, schema and result caching, compilation, validation, execution,
// and history. A session serializes its statements; a second request issued
// while one is in flight blocks until the first completes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/config"
	"github.com/querylens/querylens-engine/pkg/history"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/nlsql"
	"github.com/querylens/querylens-engine/pkg/querycache"
	"github.com/querylens/querylens-engine/pkg/retry"
	"github.com/querylens/querylens-engine/pkg/schema"
)

// Session owns one connection slot and the per-session pipeline state.
type Session struct {
	// mu serializes statement processing for the session.
	mu sync.Mutex

	manager     *datasource.Manager
	schemaCache *schema.Cache
	queryCache  *querycache.Cache
	history     *history.Store
	compiler    *nlsql.Compiler
	validator   *nlsql.Validator

	cfg    config.QueryConfig
	logger *zap.Logger
}

// New creates a session backed by the given model client.
func New(client llm.Client, aiCfg config.AIConfig, queryCfg config.QueryConfig, logger *zap.Logger) *Session {
	return NewWithManager(datasource.NewManager(logger), client, aiCfg, queryCfg, logger)
}

// NewWithManager creates a session around an existing connection manager,
// for tests that open fake drivers.
func NewWithManager(manager *datasource.Manager, client llm.Client, aiCfg config.AIConfig, queryCfg config.QueryConfig, logger *zap.Logger) *Session {
	return &Session{
		manager:     manager,
		schemaCache: schema.NewCache(logger),
		queryCache:  querycache.New(queryCfg.CacheTTL(), logger),
		history:     history.NewStore(logger),
		compiler:    nlsql.NewCompiler(client, aiCfg.CompileTimeout(), logger),
		validator:   nlsql.NewValidator(logger),
		cfg:         queryCfg,
		logger:      logger.Named("session"),
	}
}

// Connect opens a connection, replacing any prior one. Caches tied to the new
// connection identity are dropped so stale schema or results from an earlier
// connection to the same target cannot leak in.
func (s *Session) Connect(ctx context.Context, desc models.ConnectionDescriptor) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	connID, err := s.manager.Connect(ctx, desc)
	if err != nil {
		return "", err
	}

	s.schemaCache.Invalidate(connID)
	s.queryCache.InvalidateConnection(connID)
	return connID, nil
}

// Disconnect closes the active connection. A no-op when none is active.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Disconnect()
}

// Status reports the connection state.
func (s *Session) Status() datasource.Status {
	return s.manager.Status()
}

// ListTables returns the connected database's table names from the schema
// snapshot, discovering it on first use.
func (s *Session) ListTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.TableNames(), nil
}

// DescribeTable returns the column descriptors for one table.
func (s *Session) DescribeTable(ctx context.Context, table string) ([]models.ColumnDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.HasTable(table) {
		return nil, apperrors.Newf(apperrors.KindUnknownTable,
			"table %q does not exist in the connected database", table)
	}
	return snap.Columns(table), nil
}

// RefreshSchema rediscovers the schema, replacing the cached snapshot.
func (s *Session) RefreshSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	driver, connID, err := s.manager.Driver()
	if err != nil {
		return nil, err
	}
	return s.schemaCache.Refresh(ctx, driver, connID)
}

// Query compiles the request into a SELECT and executes it. Repeated requests
// within the cache TTL are served from the cache with from_cache set and
// identical rows.
func (s *Session) Query(ctx context.Context, requestText string) (*models.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, connID, err := s.manager.Driver()
	if err != nil {
		return nil, err
	}

	if s.cfg.EnableCache {
		if hit := s.queryCache.Get(connID, requestText); hit != nil {
			s.logger.Debug("query served from cache", zap.String("connection_id", connID))
			return hit, nil
		}
	}

	candidate, err := s.compileAndValidate(ctx, requestText)
	if err != nil {
		return nil, err
	}

	if candidate.Kind != models.StatementSelect {
		err := apperrors.Newf(apperrors.KindDisallowedStatementKind,
			"request compiled to a %s statement; use mutate for data changes", candidate.Kind)
		s.record(requestText, candidate, false, err, 0, 0)
		return nil, err
	}

	driver, _, err := s.manager.Driver()
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecTimeout())
	defer cancel()

	start := time.Now()
	// Fetch one row past the ceiling so truncation is detectable.
	payload, execErr := driver.Query(execCtx, candidate.SQL, candidate.Params, s.cfg.RowLimit+1)
	elapsed := time.Since(start)
	if execErr != nil {
		err := classifyExecError(execErr)
		s.record(requestText, candidate, false, err, 0, elapsed)
		return nil, err
	}

	rows := payload.Rows
	truncated := false
	if len(rows) > s.cfg.RowLimit {
		rows = rows[:s.cfg.RowLimit]
		truncated = true
	}

	result := &models.QueryResult{
		SQL:       candidate.SQL,
		Columns:   payload.Columns,
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: truncated,
		Duration:  elapsed,
	}

	if s.cfg.EnableCache {
		s.queryCache.Put(connID, requestText, candidate.Kind, result)
	}
	s.record(requestText, candidate, true, nil, len(rows), elapsed)

	return result, nil
}

// Mutate compiles the request into a data change and executes it. kind names
// the expected statement kind ("insert", "update", or "delete"); the compiled
// statement must match it. A successful mutation invalidates the connection's
// cached query results.
func (s *Session) Mutate(ctx context.Context, requestText, kind string) (*models.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expected, err := parseExpectedKind(kind)
	if err != nil {
		return nil, err
	}

	_, connID, err := s.manager.Driver()
	if err != nil {
		return nil, err
	}

	candidate, err := s.compileAndValidate(ctx, requestText)
	if err != nil {
		return nil, err
	}

	if !candidate.Kind.Mutating() {
		err := apperrors.Newf(apperrors.KindDisallowedStatementKind,
			"request compiled to a %s statement; use query for reads", candidate.Kind)
		s.record(requestText, candidate, false, err, 0, 0)
		return nil, err
	}
	if candidate.Kind != expected {
		err := apperrors.Newf(apperrors.KindDisallowedStatementKind,
			"request compiled to a %s statement, not the requested %s", candidate.Kind, expected)
		s.record(requestText, candidate, false, err, 0, 0)
		return nil, err
	}

	driver, _, err := s.manager.Driver()
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecTimeout())
	defer cancel()

	start := time.Now()
	affected, execErr := driver.Exec(execCtx, candidate.SQL, candidate.Params)
	elapsed := time.Since(start)
	if execErr != nil {
		err := classifyExecError(execErr)
		s.record(requestText, candidate, false, err, 0, elapsed)
		return nil, err
	}

	s.queryCache.InvalidateConnection(connID)
	s.record(requestText, candidate, true, nil, int(affected), elapsed)

	return &models.MutationResult{
		SQL:          candidate.SQL,
		Kind:         candidate.Kind,
		AffectedRows: affected,
		Duration:     elapsed,
	}, nil
}

// History returns the most recent n history entries.
func (s *Session) History(n int) []models.HistoryEntry {
	return s.history.Tail(n)
}

// Stats summarizes the session's request history.
func (s *Session) Stats() models.HistoryStats {
	return s.history.Stats()
}

// Suggest proposes follow-up requests from history and the current schema.
func (s *Session) Suggest(ctx context.Context, limit int) ([]history.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.history.Suggest(snap, limit), nil
}

// snapshot returns the current connection's schema snapshot. Callers hold mu.
func (s *Session) snapshot(ctx context.Context) (*models.SchemaSnapshot, error) {
	driver, connID, err := s.manager.Driver()
	if err != nil {
		return nil, err
	}
	snap, err := s.schemaCache.Snapshot(ctx, driver, connID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnectionError, "discover schema", err)
	}
	return snap, nil
}

// compileAndValidate runs the request through prompt construction, the model,
// and the safety rules. Rejections and compile failures are recorded in
// history before being returned.
func (s *Session) compileAndValidate(ctx context.Context, requestText string) (models.CandidateStatement, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.CandidateStatement{}, err
	}

	var tail []models.HistoryEntry
	if s.cfg.EnableHistory {
		tail = s.history.Tail(s.cfg.HistoryTail)
	}
	prompt := nlsql.BuildPrompt(requestText, snap, tail, nlsql.BuilderConfig{
		TableBudget: s.cfg.PromptTableBudget,
		HistoryTail: s.cfg.HistoryTail,
	})

	candidate, err := s.compiler.Compile(ctx, prompt)
	if err != nil {
		s.record(requestText, models.CandidateStatement{}, false, err, 0, 0)
		return models.CandidateStatement{}, err
	}

	verdict := s.validator.Validate(candidate, snap, requestText)
	if !verdict.Accepted {
		err := apperrors.New(kindForReason(verdict.Reason), verdict.Detail)
		s.recordRejected(requestText, candidate, verdict)
		return models.CandidateStatement{}, err
	}

	return candidate, nil
}

// record appends a history entry for a processed request. Callers hold mu.
func (s *Session) record(requestText string, candidate models.CandidateStatement, success bool, err error, rowCount int, elapsed time.Duration) {
	if !s.cfg.EnableHistory {
		return
	}
	entry := models.HistoryEntry{
		Request:  requestText,
		SQL:      candidate.SQL,
		Kind:     candidate.Kind,
		Accepted: candidate.SQL != "",
		Success:  success,
		RowCount: rowCount,
		Duration: elapsed,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.history.Append(entry)
}

func (s *Session) recordRejected(requestText string, candidate models.CandidateStatement, verdict models.Verdict) {
	if !s.cfg.EnableHistory {
		return
	}
	s.history.Append(models.HistoryEntry{
		Request:      requestText,
		SQL:          candidate.SQL,
		Kind:         candidate.Kind,
		Accepted:     false,
		RejectReason: verdict.Reason,
		Success:      false,
		Error:        verdict.Detail,
	})
}

// classifyExecError maps an execution failure to the error taxonomy. Deadline
// hits are timeouts; transport-level failures are execution errors; anything
// else is the engine rejecting a statement that passed validation, surfaced
// with the engine's own message.
func classifyExecError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.KindTimeout, "statement execution timed out", err)
	}
	if retry.IsRetryable(err) {
		return apperrors.Wrap(apperrors.KindExecutionError, "statement execution failed", err)
	}
	return apperrors.Wrap(apperrors.KindEngineRejected, "engine rejected statement", err)
}

// kindForReason maps a validator rejection to its error kind.
func kindForReason(reason models.RejectReason) apperrors.Kind {
	switch reason {
	case models.RejectDisallowedStatementKind:
		return apperrors.KindDisallowedStatementKind
	case models.RejectMissingFilterPredicate:
		return apperrors.KindMissingFilterPredicate
	case models.RejectUnknownTable:
		return apperrors.KindUnknownTable
	case models.RejectUnparameterizedLiteral:
		return apperrors.KindUnparameterizedLiteral
	case models.RejectInjectionSuspected:
		return apperrors.KindInjectionSuspected
	}
	return apperrors.KindExecutionError
}

// parseExpectedKind converts the mutate tool's kind argument.
func parseExpectedKind(kind string) (models.StatementKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "insert":
		return models.StatementInsert, nil
	case "update":
		return models.StatementUpdate, nil
	case "delete":
		return models.StatementDelete, nil
	}
	return "", fmt.Errorf("kind must be insert, update, or delete, got %q", kind)
}
