// Package history keeps an append-only, in-memory record of every request a
// session processed, successful or not. Entries carry a strictly increasing
// sequence number so callers can rely on order.
package history

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/models"
)

// DefaultMaxEntries caps how many entries a store keeps. Once the cap is
// reached the oldest entry is dropped for each new one; sequence numbers keep
// increasing across drops.
const DefaultMaxEntries = 1000

// Store holds a session's request history. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	entries    []models.HistoryEntry
	nextSeq    uint64
	maxEntries int
	logger     *zap.Logger
}

// NewStore creates an empty history store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{nextSeq: 1, maxEntries: DefaultMaxEntries, logger: logger.Named("history")}
}

// Append records an entry, assigning its sequence number, ID, and timestamp.
// The assigned entry is returned. When the store is full the oldest entry is
// dropped.
func (s *Store) Append(e models.HistoryEntry) models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Seq = s.nextSeq
	s.nextSeq++
	e.ID = uuid.New().String()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if len(s.entries) >= s.maxEntries {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, e)

	s.logger.Debug("history entry appended",
		zap.Uint64("seq", e.Seq),
		zap.Bool("success", e.Success))
	return e
}

// Tail returns the most recent n entries in chronological order. n <= 0
// returns nil.
func (s *Store) Tail(n int) []models.HistoryEntry {
	if n <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.HistoryEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// All returns every entry in chronological order.
func (s *Store) All() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats summarizes the recorded history.
func (s *Store) Stats() models.HistoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.HistoryStats{TotalRequests: len(s.entries)}
	var total time.Duration
	for _, e := range s.entries {
		if e.Success {
			stats.SuccessfulRequests++
		} else {
			stats.FailedRequests++
		}
		total += e.Duration
	}
	if len(s.entries) > 0 {
		stats.AverageDuration = total / time.Duration(len(s.entries))
		stats.AverageDurationMs = stats.AverageDuration.Milliseconds()
	}
	return stats
}

// similarityThreshold is the minimum word-overlap score for Similar.
const similarityThreshold = 0.3

// Similar returns past successful entries whose request text overlaps the
// given text, most similar first, capped at limit.
func (s *Store) Similar(requestText string, limit int) []models.HistoryEntry {
	if limit <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := wordSet(requestText)
	if len(target) == 0 {
		return nil
	}

	type scored struct {
		entry models.HistoryEntry
		score float64
	}
	var matches []scored
	for _, e := range s.entries {
		if !e.Success {
			continue
		}
		if score := jaccard(target, wordSet(e.Request)); score > similarityThreshold {
			matches = append(matches, scored{entry: e, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].entry.Seq > matches[j].entry.Seq
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]models.HistoryEntry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"()")
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
