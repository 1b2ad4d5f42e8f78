package sandbox

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogEntry is a single append-only ToolCallLog record (spec.md §3).
type LogEntry struct {
	// CallID identifies this entry for any downstream audit query about
	// one specific invocation (it is not attached to a trace span) — two calls
	// to the same tool by the same agent are otherwise indistinguishable
	// once ArgsPreview is truncated.
	CallID        string
	Timestamp     time.Time
	AgentID       string
	Tool          string
	ArgsPreview   string // sanitized, content fields truncated to 200 chars
	ResultPreview string // ≤ 200 chars
	Success       bool
	Duration      time.Duration
}

// newCallID generates the correlation ID for one Dispatch call.
func newCallID() string {
	return uuid.NewString()
}

// Stats summarizes tool usage across all logged calls for one tool name.
type Stats struct {
	Tool        string
	Calls       int
	Successes   int
	FailureRate float64
	P50         time.Duration
	P95         time.Duration
}

// ToolCallLog is the append-only, concurrently-readable log every
// validated tool call is recorded to. It is process-scoped and shared
// by all agents, per spec.md §3's ownership rules.
//
// Grounded on tool_guard.go's dual file/SQLite AuditLog backend: the
// in-memory implementation below is the default; sqlitelog.go provides
// a durable alternative behind the same interface.
type ToolCallLog interface {
	Append(entry LogEntry)
	Entries() []LogEntry
	Stats() []Stats
}

// memoryLog is the default in-memory ToolCallLog. Bounded so a
// long-running session cannot grow it without limit.
type memoryLog struct {
	mu      sync.RWMutex
	entries []LogEntry
	cap     int
}

// NewMemoryLog creates an in-memory tool-call log retaining at most
// capEntries records (0 = unbounded).
func NewMemoryLog(capEntries int) ToolCallLog {
	return &memoryLog{cap: capEntries}
}

func (l *memoryLog) Append(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if l.cap > 0 && len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

func (l *memoryLog) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *memoryLog) Stats() []Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return computeStats(l.entries)
}

func computeStats(entries []LogEntry) []Stats {
	byTool := make(map[string][]LogEntry)
	var order []string
	for _, e := range entries {
		if _, ok := byTool[e.Tool]; !ok {
			order = append(order, e.Tool)
		}
		byTool[e.Tool] = append(byTool[e.Tool], e)
	}

	out := make([]Stats, 0, len(order))
	for _, tool := range order {
		group := byTool[tool]
		durations := make([]time.Duration, len(group))
		successes := 0
		for i, e := range group {
			durations[i] = e.Duration
			if e.Success {
				successes++
			}
		}
		sortDurations(durations)
		s := Stats{
			Tool:      tool,
			Calls:     len(group),
			Successes: successes,
			P50:       percentile(durations, 0.50),
			P95:       percentile(durations, 0.95),
		}
		if s.Calls > 0 {
			s.FailureRate = float64(s.Calls-s.Successes) / float64(s.Calls)
		}
		out = append(out, s)
	}
	return out
}

func sortDurations(d []time.Duration) {
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j-1] > d[j]; j-- {
			d[j-1], d[j] = d[j], d[j-1]
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// sanitizeArgs renders a tool-call argument map into the ≤200-char
// preview string the log stores, matching tool_guard.go's AuditLog
// sanitization (long string fields get truncated individually before
// the whole map is stringified).
func sanitizeArgs(args map[string]any) string {
	sanitized := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			sanitized[k] = previewFor(s)
		} else {
			sanitized[k] = v
		}
	}
	return previewFor(fmt.Sprintf("%v", sanitized))
}
