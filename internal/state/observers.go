package state

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriptionID identifies an observer registration.
type SubscriptionID string

type observerEntry struct {
	id       SubscriptionID
	path     string
	observer Observer
	removed  atomic.Bool
}

// observerList keeps path and wildcard observers in registration order.
// Lists are replaced, never edited in place, so a snapshot taken for
// delivery is stable while observers unsubscribe.
type observerList struct {
	mu       sync.RWMutex
	byPath   map[string][]*observerEntry
	wildcard []*observerEntry
	byID     map[SubscriptionID]*observerEntry
}

func newObserverList() *observerList {
	return &observerList{
		byPath: make(map[string][]*observerEntry),
		byID:   make(map[SubscriptionID]*observerEntry),
	}
}

func (l *observerList) add(path string, obs Observer) SubscriptionID {
	entry := &observerEntry{
		id:       SubscriptionID(uuid.New().String()),
		path:     path,
		observer: obs,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if path == Wildcard {
		l.wildcard = appendCopy(l.wildcard, entry)
	} else {
		l.byPath[path] = appendCopy(l.byPath[path], entry)
	}
	l.byID[entry.id] = entry
	return entry.id
}

func (l *observerList) remove(id SubscriptionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return false
	}
	delete(l.byID, id)
	entry.removed.Store(true)

	if entry.path == Wildcard {
		l.wildcard = without(l.wildcard, id)
		return true
	}
	rest := without(l.byPath[entry.path], id)
	if len(rest) == 0 {
		delete(l.byPath, entry.path)
	} else {
		l.byPath[entry.path] = rest
	}
	return true
}

// forPath returns the observers registered on exactly path.
func (l *observerList) forPath(path string) []*observerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byPath[path]
}

func (l *observerList) wildcards() []*observerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wildcard
}

// paths returns every path with at least one observer.
func (l *observerList) paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.byPath))
	for p := range l.byPath {
		out = append(out, p)
	}
	return out
}

func (l *observerList) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}

func appendCopy(list []*observerEntry, e *observerEntry) []*observerEntry {
	out := make([]*observerEntry, 0, len(list)+1)
	out = append(out, list...)
	return append(out, e)
}

func without(list []*observerEntry, id SubscriptionID) []*observerEntry {
	out := make([]*observerEntry, 0, len(list))
	for _, e := range list {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}
