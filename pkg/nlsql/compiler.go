package nlsql

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/logging"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/sqlguard"
)

// compileResponse is the JSON shape the model is instructed to return.
type compileResponse struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Compiler turns a prompt into a candidate statement via the model. The
// model is never trusted: its output is parsed structurally, and a response
// that cannot be parsed triggers exactly one clarifying retry before the
// compilation fails.
type Compiler struct {
	client  llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewCompiler creates a compiler with a per-call timeout for model requests.
func NewCompiler(client llm.Client, timeout time.Duration, logger *zap.Logger) *Compiler {
	return &Compiler{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("compiler"),
	}
}

// Compile invokes the model and parses its response into a candidate
// statement. Multi-statement responses produce a candidate classified as
// other so validation rejects them; responses with no extractable statement
// fail with a compilation error after one retry.
func (c *Compiler) Compile(ctx context.Context, prompt Prompt) (models.CandidateStatement, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	candidate, parseErr, err := c.attempt(ctx, prompt.System, prompt.User)
	if err != nil {
		return models.CandidateStatement{}, err
	}
	if parseErr != nil {
		c.logger.Warn("model response unparseable, retrying with clarification",
			zap.String("error", parseErr.Error()))

		candidate, parseErr, err = c.attempt(ctx, prompt.System, prompt.User+"\n\n"+clarifyPrompt)
		if err != nil {
			return models.CandidateStatement{}, err
		}
		if parseErr != nil {
			return models.CandidateStatement{}, apperrors.Wrap(apperrors.KindCompilationError,
				"model produced no parseable statement", parseErr)
		}
	}

	c.logger.Debug("compiled candidate",
		zap.String("kind", string(candidate.Kind)),
		zap.Strings("tables", candidate.Tables),
		zap.String("sql", logging.SanitizeQuery(candidate.SQL)))

	return candidate, nil
}

// attempt runs one model call. The returned parseErr is retryable with a
// clarifying prompt; the returned err is terminal.
func (c *Compiler) attempt(ctx context.Context, system, user string) (models.CandidateStatement, error, error) {
	resp, err := c.client.Complete(ctx, system, user)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.CandidateStatement{}, nil,
				apperrors.Wrap(apperrors.KindTimeout, "model request timed out", err)
		}
		return models.CandidateStatement{}, nil,
			apperrors.Wrap(apperrors.KindCompilationError, "model request failed", err)
	}

	parsed, parseErr := llm.ParseJSONResponse[compileResponse](resp.Content)
	if parseErr != nil {
		return models.CandidateStatement{}, parseErr, nil
	}
	if parsed.SQL == "" {
		return models.CandidateStatement{}, errors.New("response contains no sql field"), nil
	}

	normalized := sqlguard.Normalize(parsed.SQL)
	if errors.Is(normalized.Error, sqlguard.ErrMultipleStatements) {
		// Classified as other so the validator rejects it as a
		// disallowed statement kind rather than retrying the model.
		return models.CandidateStatement{
			SQL:    parsed.SQL,
			Params: parsed.Params,
			Kind:   models.StatementOther,
		}, nil, nil
	}
	if normalized.Error != nil {
		return models.CandidateStatement{}, normalized.Error, nil
	}

	analysis, analyzeErr := Analyze(normalized.NormalizedSQL)
	if analyzeErr != nil {
		return models.CandidateStatement{}, analyzeErr, nil
	}

	return models.CandidateStatement{
		SQL:    normalized.NormalizedSQL,
		Params: parsed.Params,
		Kind:   analysis.Kind,
		Tables: analysis.Tables,
	}, nil, nil
}
