package state

import (
	"sync"
	"time"
)

// DefaultHistoryLimit is the history capacity used when none is configured.
const DefaultHistoryLimit = 50

// HistoryEntry records one committed write. It is kept for introspection,
// not for undo.
type HistoryEntry struct {
	Timestamp time.Time
	Path      string
	NewValue  any
	OldValue  any
}

// History is a fixed-capacity ring of entries. When full the oldest entry is
// dropped first.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	start   int
	size    int
}

// NewHistory creates a ring holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{entries: make([]HistoryEntry, limit)}
}

// Append adds an entry, evicting the oldest when at capacity.
func (h *History) Append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := (h.start + h.size) % len(h.entries)
	h.entries[idx] = e
	if h.size < len(h.entries) {
		h.size++
		return
	}
	h.start = (h.start + 1) % len(h.entries)
}

// Entries returns the entries from oldest to newest.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return out
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the configured capacity.
func (h *History) Cap() int {
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.entries)
	h.start = 0
	h.size = 0
}
