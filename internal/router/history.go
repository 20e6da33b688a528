package router

import (
	"sync"
)

// HistoryEntry is one session history record.
type HistoryEntry struct {
	Path  string
	Title string
	State map[string]any
}

// HistoryProvider is the session history the router commits to.
type HistoryProvider interface {
	Push(entry HistoryEntry)
	Replace(entry HistoryEntry)
	// Location returns the current full path.
	Location() string
	// OnPop registers fn for back/forward traversal and returns a function
	// that removes it.
	OnPop(fn func(path string)) func()
}

// Traverser is implemented by providers that support back and forward.
type Traverser interface {
	Go(delta int) bool
}

// MemoryHistory is an in-process HistoryProvider with a back/forward stack.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []HistoryEntry
	index     int
	listeners map[int]func(string)
	nextID    int
	pushes    int
	replaces  int
}

// NewMemoryHistory creates a history positioned at initial.
func NewMemoryHistory(initial string) *MemoryHistory {
	if initial == "" {
		initial = "/"
	}
	return &MemoryHistory{
		entries:   []HistoryEntry{{Path: initial}},
		listeners: make(map[int]func(string)),
	}
}

// Push appends an entry after the current one, discarding forward entries.
func (h *MemoryHistory) Push(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], entry)
	h.index = len(h.entries) - 1
	h.pushes++
}

// Replace overwrites the current entry.
func (h *MemoryHistory) Replace(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = entry
	h.replaces++
}

// Location returns the current entry's path.
func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index].Path
}

// Current returns the current entry.
func (h *MemoryHistory) Current() HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Len returns the number of entries in the stack.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of the stack, oldest first.
func (h *MemoryHistory) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Counts returns how many pushes and replaces have been made.
func (h *MemoryHistory) Counts() (pushes, replaces int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushes, h.replaces
}

// OnPop registers a traversal listener.
func (h *MemoryHistory) OnPop(fn func(path string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Back moves one entry back.
func (h *MemoryHistory) Back() bool { return h.Go(-1) }

// Forward moves one entry forward.
func (h *MemoryHistory) Forward() bool { return h.Go(1) }

// Go moves delta entries and notifies pop listeners with the new location.
// It reports false when the target is out of range.
func (h *MemoryHistory) Go(delta int) bool {
	h.mu.Lock()
	target := h.index + delta
	if delta == 0 || target < 0 || target >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = target
	path := h.entries[target].Path
	listeners := make([]func(string), 0, len(h.listeners))
	for i := 0; i < h.nextID; i++ {
		if fn, ok := h.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(path)
	}
	return true
}
