package gateway

import (
	"time"
)

const DefaultLogSize = 100

// Metrics is a snapshot of the gateway counters.
type Metrics struct {
	TotalRequests         int     `json:"total_requests"`
	BlockedRequests       int     `json:"blocked_requests"`
	SuccessfulRequests    int     `json:"successful_requests"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	SuccessRate           float64 `json:"success_rate"`
	BlockRate             float64 `json:"block_rate"`
	RecentRequests        int     `json:"recent_requests"`
}

// LogEntry is one request in the bounded request log.
type LogEntry struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	UserQuery        string    `json:"user_query"`
	ResponseLength   int       `json:"response_length"`
	ProcessingTime   float64   `json:"processing_time"`
	GuardrailsPassed int       `json:"guardrails_passed"`
	GuardrailsFailed int       `json:"guardrails_failed"`
	Success          bool      `json:"success"`
	Blocked          bool      `json:"blocked"`
	AgentUsed        string    `json:"agent_used"`
	Confidence       float64   `json:"confidence"`
	States           []string  `json:"states"`
}

// requestLog is a fixed capacity ring that evicts the oldest entry.
type requestLog struct {
	entries []LogEntry
	head    int
	size    int
}

func newRequestLog(capacity int) *requestLog {
	if capacity <= 0 {
		capacity = DefaultLogSize
	}
	return &requestLog{entries: make([]LogEntry, capacity)}
}

func (l *requestLog) push(e LogEntry) {
	idx := (l.head + l.size) % len(l.entries)
	l.entries[idx] = e
	if l.size < len(l.entries) {
		l.size++
		return
	}
	l.head = (l.head + 1) % len(l.entries)
}

// newest returns up to limit of the most recent entries in arrival order.
func (l *requestLog) newest(limit int) []LogEntry {
	if limit <= 0 || limit > l.size {
		limit = l.size
	}
	out := make([]LogEntry, 0, limit)
	for i := l.size - limit; i < l.size; i++ {
		out = append(out, l.entries[(l.head+i)%len(l.entries)])
	}
	return out
}

func (l *requestLog) reset() {
	for i := range l.entries {
		l.entries[i] = LogEntry{}
	}
	l.head = 0
	l.size = 0
}

type counters struct {
	total      int
	blocked    int
	successful int
	avgTime    float64
}

func (c *counters) record(processingTime float64, success, blocked bool) {
	c.total++
	if blocked {
		c.blocked++
	}
	if success && !blocked {
		c.successful++
	}
	n := float64(c.total)
	c.avgTime = (c.avgTime*(n-1) + processingTime) / n
}

func (c *counters) snapshot(recent int) Metrics {
	denom := float64(c.total)
	if denom < 1 {
		denom = 1
	}
	return Metrics{
		TotalRequests:         c.total,
		BlockedRequests:       c.blocked,
		SuccessfulRequests:    c.successful,
		AverageProcessingTime: c.avgTime,
		SuccessRate:           float64(c.successful) / denom * 100,
		BlockRate:             float64(c.blocked) / denom * 100,
		RecentRequests:        recent,
	}
}
