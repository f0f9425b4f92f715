package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/config"
	"github.com/querylens/querylens-engine/pkg/llm"
)

// defaultSessionID is used when the transport provides no client session,
// as with stdio where there is exactly one caller.
const defaultSessionID = "default"

// Registry creates and tracks one Session per client session ID so
// concurrent clients over HTTP never share a connection slot.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	client   llm.Client
	aiCfg    config.AIConfig
	queryCfg config.QueryConfig
	logger   *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(client llm.Client, aiCfg config.AIConfig, queryCfg config.QueryConfig, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		client:   client,
		aiCfg:    aiCfg,
		queryCfg: queryCfg,
		logger:   logger,
	}
}

// Get returns the session for the client session ID, creating it on first
// use. An empty ID maps to the default session.
func (r *Registry) Get(sessionID string) *Session {
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		return s
	}
	s := New(r.client, r.aiCfg, r.queryCfg, r.logger)
	r.sessions[sessionID] = s
	r.logger.Debug("session created", zap.String("session_id", sessionID))
	return s
}

// Remove disconnects and forgets the session for the client session ID.
func (r *Registry) Remove(sessionID string) {
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		if err := s.Disconnect(); err != nil {
			r.logger.Warn("disconnect on session removal failed",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
		r.logger.Debug("session removed", zap.String("session_id", sessionID))
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
