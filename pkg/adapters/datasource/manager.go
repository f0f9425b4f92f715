package datasource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/apperrors"
	"github.com/querylens/querylens-engine/pkg/logging"
	"github.com/querylens/querylens-engine/pkg/models"
	"github.com/querylens/querylens-engine/pkg/retry"
)

const connectTimeout = 15 * time.Second

// openDriver is swappable in tests.
type openDriver func(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (Driver, error)

// Manager holds at most one live connection for a session. Connecting while
// a connection is active replaces it; the prior handle is closed first.
type Manager struct {
	mu     sync.Mutex
	driver Driver
	desc   models.ConnectionDescriptor
	connID string
	opened time.Time

	open   openDriver
	logger *zap.Logger
}

// Status describes the manager's current connection.
type Status struct {
	Connected    bool              `json:"connected"`
	ConnectionID string            `json:"connection_id,omitempty"`
	Engine       models.EngineKind `json:"engine,omitempty"`
	Target       string            `json:"target,omitempty"`
	ConnectedFor string            `json:"connected_for,omitempty"`
}

// NewManager creates a connection manager backed by the driver registry.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		open:   Open,
		logger: logger.Named("datasource"),
	}
}

// NewManagerWithOpener creates a manager with a custom driver opener, for tests.
func NewManagerWithOpener(open openDriver, logger *zap.Logger) *Manager {
	return &Manager{
		open:   open,
		logger: logger.Named("datasource"),
	}
}

// Connect validates the descriptor, opens a driver, and verifies it with a
// ping. Transient failures are retried with backoff. On success any prior
// connection is closed and replaced.
func (m *Manager) Connect(ctx context.Context, desc models.ConnectionDescriptor) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", apperrors.Wrap(apperrors.KindConnectionError, "invalid connection parameters", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	driver, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (Driver, error) {
		d, err := m.open(ctx, desc, m.logger)
		if err != nil {
			return nil, err
		}
		if err := d.Ping(ctx); err != nil {
			_ = d.Close()
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		m.logger.Warn("connect failed",
			zap.String("engine", string(desc.Engine)),
			zap.String("error", logging.SanitizeError(err)))
		return "", apperrors.Wrap(apperrors.KindConnectionError, "connect to database", err)
	}

	m.mu.Lock()
	prior := m.driver
	m.driver = driver
	m.desc = desc
	m.connID = desc.Identity()
	m.opened = time.Now()
	m.mu.Unlock()

	if prior != nil {
		_ = prior.Close()
	}

	m.logger.Info("connected",
		zap.String("engine", string(desc.Engine)),
		zap.String("connection_id", desc.Identity()))

	return desc.Identity(), nil
}

// Disconnect closes the active connection. Disconnecting with no active
// connection is a no-op.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	driver := m.driver
	connID := m.connID
	m.driver = nil
	m.connID = ""
	m.desc = models.ConnectionDescriptor{}
	m.mu.Unlock()

	if driver == nil {
		return nil
	}

	m.logger.Info("disconnected", zap.String("connection_id", connID))
	return driver.Close()
}

// Driver returns the active driver and its connection identity.
func (m *Manager) Driver() (Driver, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver == nil {
		return nil, "", apperrors.ErrConnectionInactive
	}
	return m.driver, m.connID, nil
}

// ConnectionID returns the active connection identity, or empty if inactive.
func (m *Manager) ConnectionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connID
}

// Status reports the current connection state with credentials omitted.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver == nil {
		return Status{Connected: false}
	}
	return Status{
		Connected:    true,
		ConnectionID: m.connID,
		Engine:       m.desc.Engine,
		Target:       m.desc.Redacted(),
		ConnectedFor: time.Since(m.opened).Round(time.Second).String(),
	}
}
