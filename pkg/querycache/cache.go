// Package querycache caches successful read results per connection, keyed on
// the request text rather than the compiled SQL. A repeated request within the
// TTL skips compilation, validation, and execution entirely.
package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/models"
)

// DefaultTTL applies when the configured TTL is zero or negative.
const DefaultTTL = 5 * time.Minute

type entry struct {
	result    *models.QueryResult
	expiresAt time.Time
}

// Cache is a TTL cache of query results. Only SELECT results are stored;
// mutations never enter the cache and instead invalidate it. Safe for
// concurrent use.
type Cache struct {
	mu sync.Mutex
	// entries are grouped by connection so a mutation can drop one
	// connection's results without touching the others.
	entries map[string]map[string]entry
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a cache with the given TTL.
func New(ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.Named("querycache"),
	}
}

// key derives the cache key from the normalized request text, so
// "Show open orders" and "show open orders " hit the same entry.
func key(requestText string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(requestText), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for the request, or nil on a miss. The
// returned result is a deep copy tagged FromCache, so callers mutating rows
// cannot corrupt the cached entry.
func (c *Cache) Get(connID, requestText string) *models.QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.entries[connID]
	if !ok {
		return nil
	}
	k := key(requestText)
	e, ok := conn[k]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(conn, k)
		return nil
	}

	copied := cloneResult(e.result)
	copied.FromCache = true
	return copied
}

// Put stores a deep copy of a read result, so later caller mutations of the
// original cannot reach the cache. Non-SELECT results are ignored.
func (c *Cache) Put(connID, requestText string, kind models.StatementKind, result *models.QueryResult) {
	if kind != models.StatementSelect || result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.entries[connID]
	if !ok {
		conn = make(map[string]entry)
		c.entries[connID] = conn
	}
	conn[key(requestText)] = entry{
		result:    cloneResult(result),
		expiresAt: c.now().Add(c.ttl),
	}
}

func cloneResult(r *models.QueryResult) *models.QueryResult {
	copied := *r
	copied.Columns = append([]string(nil), r.Columns...)
	if r.Rows != nil {
		copied.Rows = make([]map[string]any, len(r.Rows))
		for i, row := range r.Rows {
			m := make(map[string]any, len(row))
			for k, v := range row {
				m[k] = v
			}
			copied.Rows[i] = m
		}
	}
	return &copied
}

// InvalidateConnection drops every entry for the connection. Called after any
// successful mutation, since a write may change what any cached read would
// return.
func (c *Cache) InvalidateConnection(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := len(c.entries[connID])
	delete(c.entries, connID)

	if dropped > 0 {
		c.logger.Debug("cache invalidated",
			zap.String("connection_id", connID),
			zap.Int("entries_dropped", dropped))
	}
}

// Len returns the number of live entries, expired ones included until their
// next lookup.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, conn := range c.entries {
		n += len(conn)
	}
	return n
}
