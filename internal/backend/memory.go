package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storedDoc struct {
	doc Document
	seq uint64
}

type collection struct {
	docs     map[string]*storedDoc
	watchers map[uint64]func(Snapshot)
}

// Memory is an in-process Service. Snapshots list documents in creation
// order. Watchers are called synchronously after the write that changed the
// collection.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*collection
	seq         uint64
	now         func() time.Time
	logger      *slog.Logger
}

// MemoryOption configures a Memory service.
type MemoryOption func(*Memory)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the time source for document timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty service.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]*collection),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "backend")
	return m
}

// Create stores data under a new id.
func (m *Memory) Create(ctx context.Context, name string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validCollection(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}

	id := uuid.NewString()
	now := m.now()

	m.mu.Lock()
	c := m.collectionLocked(name)
	m.seq++
	c.docs[id] = &storedDoc{
		doc: Document{ID: id, Data: copyData(data), CreatedAt: now, UpdatedAt: now},
		seq: m.seq,
	}
	snap, watchers := m.snapshotLocked(name, c)
	m.mu.Unlock()

	m.logger.Debug("document created", "collection", name, "id", id)
	notify(watchers, snap)
	return id, nil
}

// Get returns a copy of the document.
func (m *Memory) Get(ctx context.Context, name, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !validCollection(name) {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	sd, ok := c.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	return copyDoc(sd.doc), nil
}

// Update merges data into the document's fields.
func (m *Memory) Update(ctx context.Context, name, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validCollection(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}

	m.mu.Lock()
	c, ok := m.collections[name]
	var sd *storedDoc
	if ok {
		sd, ok = c.docs[id]
	}
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	merged := copyData(sd.doc.Data)
	for k, v := range data {
		merged[k] = v
	}
	sd.doc.Data = merged
	sd.doc.UpdatedAt = m.now()
	snap, watchers := m.snapshotLocked(name, c)
	m.mu.Unlock()

	notify(watchers, snap)
	return nil
}

// Delete removes the document.
func (m *Memory) Delete(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validCollection(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}

	m.mu.Lock()
	c, ok := m.collections[name]
	if ok {
		_, ok = c.docs[id]
	}
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	delete(c.docs, id)
	snap, watchers := m.snapshotLocked(name, c)
	m.mu.Unlock()

	m.logger.Debug("document deleted", "collection", name, "id", id)
	notify(watchers, snap)
	return nil
}

// List returns the collection's documents in creation order.
func (m *Memory) List(ctx context.Context, name string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validCollection(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return []Document{}, nil
	}
	snap, _ := m.snapshotLocked(name, c)
	return snap.Docs, nil
}

// Watch subscribes fn to the collection. Delivery stops when the returned
// function is called or ctx is done.
func (m *Memory) Watch(ctx context.Context, name string, fn func(Snapshot)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validCollection(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	if fn == nil {
		return nil, fmt.Errorf("watch %s: nil callback", name)
	}

	m.mu.Lock()
	c := m.collectionLocked(name)
	m.seq++
	id := m.seq
	c.watchers[id] = fn
	snap, _ := m.snapshotLocked(name, c)
	m.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(c.watchers, id)
			m.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)

	fn(snap)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

// WatcherCount returns the number of active watchers on a collection.
func (m *Memory) WatcherCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		return len(c.watchers)
	}
	return 0
}

func (m *Memory) collectionLocked(name string) *collection {
	c, ok := m.collections[name]
	if !ok {
		c = &collection{
			docs:     make(map[string]*storedDoc),
			watchers: make(map[uint64]func(Snapshot)),
		}
		m.collections[name] = c
	}
	return c
}

// snapshotLocked copies the collection and its watchers in subscription order.
func (m *Memory) snapshotLocked(name string, c *collection) (Snapshot, []func(Snapshot)) {
	stored := make([]*storedDoc, 0, len(c.docs))
	for _, sd := range c.docs {
		stored = append(stored, sd)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	docs := make([]Document, len(stored))
	for i, sd := range stored {
		docs[i] = copyDoc(sd.doc)
	}

	ids := make([]uint64, 0, len(c.watchers))
	for id := range c.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	watchers := make([]func(Snapshot), len(ids))
	for i, id := range ids {
		watchers[i] = c.watchers[id]
	}
	return Snapshot{Collection: name, Docs: docs}, watchers
}

func notify(watchers []func(Snapshot), snap Snapshot) {
	for _, fn := range watchers {
		fn(snap)
	}
}

func copyDoc(d Document) Document {
	d.Data = copyData(d.Data)
	return d
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
