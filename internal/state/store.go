package state

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/pitwall/internal/event"
)

type snapshot struct {
	tree    Tree
	version uint64
}

// Store is the reactive state store. It is safe for concurrent use; commits
// are serialized and reads never block.
type Store struct {
	// mu serializes commits. Middleware runs under it and must not write.
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	initial Tree

	mwMu       sync.RWMutex
	middleware []Middleware

	observers *observerList
	history   *History
	emitter   event.Emitter
	logger    *slog.Logger
	metrics   *storeMetrics

	depth          atomic.Int32
	maxNotifyDepth int32

	// parsed paths by their dot form
	paths sync.Map
}

// New creates a store.
func New(opts ...Option) *Store {
	cfg := storeConfig{
		logger:         slog.Default(),
		historyLimit:   DefaultHistoryLimit,
		maxNotifyDepth: DefaultMaxNotifyDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		initial:        cloneTree(cfg.initial),
		observers:      newObserverList(),
		history:        NewHistory(cfg.historyLimit),
		emitter:        cfg.emitter,
		logger:         cfg.logger.With("component", "state"),
		metrics:        newStoreMetrics(cfg.registerer),
		maxNotifyDepth: int32(cfg.maxNotifyDepth),
	}
	if s.initial == nil {
		s.initial = Tree{}
	}
	s.current.Store(&snapshot{tree: cloneTree(s.initial)})
	return s
}

// GetState returns a deep copy of the whole tree.
func (s *Store) GetState() Tree {
	return cloneTree(s.current.Load().tree)
}

// Get returns a deep copy of the value at path. It reports false when the
// path is absent or malformed.
func (s *Store) Get(path string) (any, bool) {
	p, err := s.parse(path)
	if err != nil {
		return nil, false
	}
	v, ok := getIn(s.current.Load().tree, p.keys)
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Version returns the number of commits applied so far.
func (s *Store) Version() uint64 {
	return s.current.Load().version
}

// SetState writes value at path. It returns false when the path is malformed
// or a middleware vetoes the commit; the store is then unchanged.
func (s *Store) SetState(path string, value any, opts ...SetOption) bool {
	p, err := s.parse(path)
	if err == nil && p.IsRoot() {
		err = fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if err != nil {
		s.logger.Warn("state write rejected", "path", path, "error", err)
		s.metrics.rejected(MutationSet)
		return false
	}

	return s.commit(MutationSet, applySetOptions(opts), func(prev Tree) pending {
		v := cloneValue(value)
		old, _ := getIn(prev, p.keys)
		return pending{
			next: setIn(prev, p.keys, v),
			mutation: Mutation{
				Kind:     MutationSet,
				Path:     p.raw,
				Value:    v,
				OldValue: old,
				Updates:  []Update{{Path: p.raw, Value: v}},
			},
			paths: []Path{p},
		}
	})
}

// BatchUpdate applies every path/value pair as one commit. Paths are applied
// in lexical order.
func (s *Store) BatchUpdate(updates map[string]any, opts ...SetOption) bool {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]Update, len(keys))
	for i, k := range keys {
		list[i] = Update{Path: k, Value: updates[k]}
	}
	return s.Batch(list, opts...)
}

// Batch applies updates in order as one commit. Middleware sees the fully
// updated candidate once; on rejection none of the updates apply. An empty
// batch is a no-op that reports true.
func (s *Store) Batch(updates []Update, opts ...SetOption) bool {
	if len(updates) == 0 {
		return true
	}

	paths := make([]Path, len(updates))
	for i, u := range updates {
		p, err := s.parse(u.Path)
		if err == nil && p.IsRoot() {
			err = fmt.Errorf("%w: empty path", ErrInvalidPath)
		}
		if err != nil {
			s.logger.Warn("state batch rejected", "path", u.Path, "error", err)
			s.metrics.rejected(MutationBatch)
			return false
		}
		paths[i] = p
	}

	return s.commit(MutationBatch, applySetOptions(opts), func(prev Tree) pending {
		next := prev
		stored := make([]Update, len(updates))
		for i, u := range updates {
			v := cloneValue(u.Value)
			next = setIn(next, paths[i].keys, v)
			stored[i] = Update{Path: paths[i].raw, Value: v}
		}
		return pending{
			next:     next,
			mutation: Mutation{Kind: MutationBatch, Updates: stored},
			paths:    distinct(paths),
		}
	})
}

// Reset replaces the whole tree, with the initial state when tree is nil.
// Observers whose path changed value are notified, then wildcard observers.
func (s *Store) Reset(tree Tree, opts ...SetOption) bool {
	if tree == nil {
		tree = s.initial
	}
	replacement := cloneTree(tree)

	return s.commit(MutationReset, applySetOptions(opts), func(prev Tree) pending {
		var changed []Path
		observed := s.observers.paths()
		sort.Strings(observed)
		for _, raw := range observed {
			p, err := s.parse(raw)
			if err != nil {
				continue
			}
			before, _ := getIn(prev, p.keys)
			after, _ := getIn(replacement, p.keys)
			if !reflect.DeepEqual(before, after) {
				changed = append(changed, p)
			}
		}
		return pending{
			next:     replacement,
			mutation: Mutation{Kind: MutationReset},
			paths:    changed,
			root:     true,
		}
	})
}

// Use appends a middleware to the chain.
func (s *Store) Use(mw Middleware) {
	if mw == nil {
		return
	}
	s.mwMu.Lock()
	defer s.mwMu.Unlock()
	s.middleware = append(s.middleware, mw)
}

// Subscribe registers an observer for writes to exactly path, or to every
// commit when path is Wildcard.
func (s *Store) Subscribe(path string, obs Observer) (SubscriptionID, error) {
	if obs == nil {
		return "", ErrNilObserver
	}
	if path != Wildcard {
		p, err := s.parse(path)
		if err != nil {
			return "", err
		}
		if p.IsRoot() {
			return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
		}
		path = p.raw
	}
	id := s.observers.add(path, obs)
	s.metrics.subscriptions.Set(float64(s.observers.count()))
	return id, nil
}

// SubscribeAll registers a wildcard observer.
func (s *Store) SubscribeAll(obs Observer) (SubscriptionID, error) {
	return s.Subscribe(Wildcard, obs)
}

// Unsubscribe removes an observer. It reports whether one was removed.
func (s *Store) Unsubscribe(id SubscriptionID) bool {
	ok := s.observers.remove(id)
	s.metrics.subscriptions.Set(float64(s.observers.count()))
	return ok
}

// History returns the recorded commits from oldest to newest.
func (s *Store) History() []HistoryEntry {
	return s.history.Entries()
}

// ClearHistory drops the recorded commits.
func (s *Store) ClearHistory() {
	s.history.Clear()
	s.metrics.historySize.Set(0)
}

// pending is a candidate commit produced under the commit lock.
type pending struct {
	next     Tree
	mutation Mutation
	// paths whose observers are notified, in order, without duplicates
	paths []Path
	// root marks a whole-tree replacement
	root bool
}

func (s *Store) commit(kind MutationKind, cfg setConfig, build func(prev Tree) pending) bool {
	if depth := s.depth.Load(); depth >= s.maxNotifyDepth {
		s.logger.Warn("state write rejected: observer writes nested too deeply", "kind", kind, "depth", depth)
		s.metrics.rejected(kind)
		return false
	}

	s.mu.Lock()
	prev := s.current.Load()
	p := build(prev.tree)

	if !s.runMiddleware(p.next, prev.tree, p.mutation) {
		s.mu.Unlock()
		s.metrics.rejected(kind)
		return false
	}

	s.current.Store(&snapshot{tree: p.next, version: prev.version + 1})
	s.record(p, prev.tree)

	// Snapshot observers at commit time.
	type delivery struct {
		path    Path
		entries []*observerEntry
	}
	var deliveries []delivery
	var wildcards []*observerEntry
	if !cfg.silent {
		for _, path := range p.paths {
			if entries := s.observers.forPath(path.raw); len(entries) > 0 {
				deliveries = append(deliveries, delivery{path: path, entries: entries})
			}
		}
		wildcards = s.observers.wildcards()
	}
	s.mu.Unlock()

	s.metrics.accepted(kind)
	s.metrics.historySize.Set(float64(s.history.Len()))

	s.depth.Add(1)
	defer s.depth.Add(-1)

	for _, d := range deliveries {
		value, _ := getIn(p.next, d.path.keys)
		old, _ := getIn(prev.tree, d.path.keys)
		change := Change{
			Path:     d.path.raw,
			Value:    value,
			OldValue: old,
			State:    p.next,
			OldState: prev.tree,
			Kind:     kind,
			Updates:  p.mutation.Updates,
		}
		for _, entry := range d.entries {
			s.deliver(entry, change)
		}
	}

	if len(wildcards) > 0 {
		change := Change{
			State:    p.next,
			OldState: prev.tree,
			Kind:     kind,
			Updates:  p.mutation.Updates,
		}
		if kind == MutationSet {
			change.Path = p.mutation.Path
			change.Value = p.mutation.Value
			change.OldValue = p.mutation.OldValue
		}
		for _, entry := range wildcards {
			s.deliver(entry, change)
		}
	}

	s.broadcast(p, cfg)
	return true
}

func (s *Store) record(p pending, prev Tree) {
	now := time.Now()
	if p.root {
		s.history.Append(HistoryEntry{Timestamp: now, NewValue: p.next, OldValue: prev})
		return
	}
	for _, u := range p.mutation.Updates {
		keys := s.mustParse(u.Path).keys
		old, _ := getIn(prev, keys)
		s.history.Append(HistoryEntry{Timestamp: now, Path: u.Path, NewValue: u.Value, OldValue: old})
	}
}

// runMiddleware reports whether every middleware accepts the candidate. A
// panicking middleware counts as a rejection.
func (s *Store) runMiddleware(next, prev Tree, m Mutation) bool {
	s.mwMu.RLock()
	chain := make([]Middleware, len(s.middleware))
	copy(chain, s.middleware)
	s.mwMu.RUnlock()

	for i, mw := range chain {
		ok, panicValue := callMiddleware(mw, next, prev, m)
		if panicValue != nil {
			s.logger.Error("state middleware panicked; commit rejected", "index", i, "kind", m.Kind, "paths", m.Paths(), "panic", panicValue)
			return false
		}
		if !ok {
			s.logger.Debug("state commit rejected by middleware", "index", i, "kind", m.Kind, "paths", m.Paths())
			return false
		}
	}
	return true
}

func callMiddleware(mw Middleware, next, prev Tree, m Mutation) (ok bool, panicValue any) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			panicValue = r
		}
	}()
	return mw(next, prev, m), nil
}

func (s *Store) deliver(entry *observerEntry, change Change) {
	if entry.removed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.metrics.observerFailures.Inc()
			s.logger.Error("state observer panicked", "subscription", entry.id, "path", entry.path, "panic", r)
		}
	}()
	entry.observer(change)
}

func (s *Store) broadcast(p pending, cfg setConfig) {
	if s.emitter == nil {
		return
	}
	var meta []map[string]any
	if cfg.source != "" {
		meta = append(meta, map[string]any{"source": cfg.source})
	}

	ctx := context.Background()
	if p.mutation.Kind == MutationSet {
		s.emitter.Emit(ctx, event.ChannelStateChanged, StateChanged{
			Path:     p.mutation.Path,
			Value:    p.mutation.Value,
			OldValue: p.mutation.OldValue,
			State:    p.next,
		}, meta...)
		return
	}
	s.emitter.Emit(ctx, event.ChannelStateBatchChanged, BatchChanged{
		Kind:    p.mutation.Kind,
		Updates: p.mutation.Updates,
		State:   p.next,
	}, meta...)
}

// parse returns the cached parse of a dot path.
func (s *Store) parse(raw string) (Path, error) {
	if cached, ok := s.paths.Load(raw); ok {
		return cached.(Path), nil
	}
	p, err := ParsePath(raw)
	if err != nil {
		return Path{}, err
	}
	s.paths.Store(raw, p)
	return p, nil
}

func (s *Store) mustParse(raw string) Path {
	p, _ := s.parse(raw)
	return p
}

func applySetOptions(opts []SetOption) setConfig {
	var cfg setConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func distinct(paths []Path) []Path {
	seen := make(map[string]struct{}, len(paths))
	out := make([]Path, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p.raw]; ok {
			continue
		}
		seen[p.raw] = struct{}{}
		out = append(out, p)
	}
	return out
}
