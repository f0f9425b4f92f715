// Package schema caches per-connection schema snapshots used for prompt
// construction and statement validation.
package schema

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/models"
)

// Cache memoizes one schema snapshot per connection identity. A snapshot is
// discovered on first use and replaced wholesale on refresh; there is no
// partial update.
type Cache struct {
	mu        sync.Mutex
	snapshots map[string]*models.SchemaSnapshot
	logger    *zap.Logger
}

// NewCache creates an empty schema cache.
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{
		snapshots: make(map[string]*models.SchemaSnapshot),
		logger:    logger.Named("schema"),
	}
}

// Snapshot returns the cached snapshot for the connection, discovering it
// from the driver on first use.
func (c *Cache) Snapshot(ctx context.Context, driver datasource.Driver, connID string) (*models.SchemaSnapshot, error) {
	c.mu.Lock()
	if snap, ok := c.snapshots[connID]; ok {
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	snap, err := discover(ctx, driver, connID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snapshots[connID] = snap
	c.mu.Unlock()

	c.logger.Info("schema snapshot cached",
		zap.String("connection_id", connID),
		zap.Int("tables", len(snap.Tables)))

	return snap, nil
}

// Refresh discards any cached snapshot and rediscovers the schema.
func (c *Cache) Refresh(ctx context.Context, driver datasource.Driver, connID string) (*models.SchemaSnapshot, error) {
	snap, err := discover(ctx, driver, connID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snapshots[connID] = snap
	c.mu.Unlock()

	return snap, nil
}

// Invalidate drops the cached snapshot for a connection.
func (c *Cache) Invalidate(connID string) {
	c.mu.Lock()
	delete(c.snapshots, connID)
	c.mu.Unlock()
}

func discover(ctx context.Context, driver datasource.Driver, connID string) (*models.SchemaSnapshot, error) {
	tables, err := driver.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}

	snap := &models.SchemaSnapshot{
		ConnectionID: connID,
		Tables:       make(map[string][]models.ColumnDescriptor, len(tables)),
	}

	for _, table := range tables {
		columns, err := driver.Columns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("discover columns for %s: %w", table, err)
		}
		snap.Tables[table] = columns
	}

	return snap, nil
}
