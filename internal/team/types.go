// Package team implements the Team Channel (C4) and Team Manager (C5):
// JSON-file team persistence plus the sequential, context-handoff
// broadcast of one user turn across an ordered team of agents.
package team

import (
	"sync"
	"time"

	"github.com/jholhewres/crewcode/internal/agentrt"
)

// Team is the in-memory, and eventually on-disk (spec.md §6), record of
// one named ordered roster of agents.
type Team struct {
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Agents    []agentrt.Config
}

// TranscriptEntry is one row of the shared transcript (spec.md §4.4).
// AuthorID is empty for the user turn that opens a broadcast.
type TranscriptEntry struct {
	AuthorID  string
	Name      string
	Role      string
	Content   string
	Timestamp time.Time
}

// SharedTranscript is the append-only, totally-ordered log a broadcast
// writes to and later agents read from. Safe for concurrent readers;
// mutated only by the Channel, and only between successive agents
// (spec.md §5's shared-resource rule).
type SharedTranscript struct {
	mu      sync.Mutex
	entries []TranscriptEntry
}

// Append adds one entry to the end of the transcript.
func (s *SharedTranscript) Append(e TranscriptEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// LastK returns (a copy of) the last k entries, or every entry if there
// are fewer than k. Per spec.md's open question #2, older context
// beyond k is silently elided — callers needing full history should use
// All.
func (s *SharedTranscript) LastK(k int) []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.entries) > k {
		start = len(s.entries) - k
	}
	out := make([]TranscriptEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// All returns a copy of the full transcript.
func (s *SharedTranscript) All() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TranscriptEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
