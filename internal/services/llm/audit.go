package llm

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// DefaultAuditCapacity bounds the in-memory audit trail.
const DefaultAuditCapacity = 200

// AuditEntry records one routed stage call.
type AuditEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Stage       Stage     `json:"stage"`
	Provider    Provider  `json:"provider"`
	Model       string    `json:"model"`
	Tools       ToolsMode `json:"tools"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	PromptChars int       `json:"prompt_chars"`
	ReplyChars  int       `json:"reply_chars"`
}

// AuditLog is a bounded ring of recent stage calls.
type AuditLog struct {
	mu       sync.Mutex
	entries  []AuditEntry
	capacity int
	next     int
	full     bool
}

// NewAuditLog creates an audit log holding at most capacity entries.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{entries: make([]AuditEntry, capacity), capacity: capacity}
}

// Record appends entry, evicting the oldest when full.
func (a *AuditLog) Record(entry AuditEntry) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries[a.next] = entry
	a.next = (a.next + 1) % a.capacity
	if a.next == 0 {
		a.full = true
	}
}

// Entries returns up to limit entries, newest first. limit <= 0 returns all.
func (a *AuditLog) Entries(limit int) []AuditEntry {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	count := a.next
	if a.full {
		count = a.capacity
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (a.next - i + a.capacity) % a.capacity
		out = append(out, a.entries[idx])
	}
	return out
}

// ExportToJSON writes every entry, newest first.
func (a *AuditLog) ExportToJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a.Entries(0))
}
