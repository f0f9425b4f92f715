package models

import "time"

// HistoryEntry records one executed (or rejected) request. Entries are
// append-only; Seq is assigned by the store and strictly increases.
type HistoryEntry struct {
	Seq          uint64        `json:"seq"`
	ID           string        `json:"id"`
	Request      string        `json:"request"`
	SQL          string        `json:"sql,omitempty"`
	Kind         StatementKind `json:"kind,omitempty"`
	Accepted     bool          `json:"accepted"`
	RejectReason RejectReason  `json:"reject_reason,omitempty"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	RowCount     int           `json:"row_count"`
	Duration     time.Duration `json:"-"`
	Timestamp    time.Time     `json:"timestamp"`
}

// HistoryStats summarizes a session's request history.
type HistoryStats struct {
	TotalRequests      int           `json:"total_requests"`
	SuccessfulRequests int           `json:"successful_requests"`
	FailedRequests     int           `json:"failed_requests"`
	AverageDuration    time.Duration `json:"-"`
	AverageDurationMs  int64         `json:"average_duration_ms"`
}

// SuccessRate returns the percentage of successful requests.
func (s HistoryStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
}
