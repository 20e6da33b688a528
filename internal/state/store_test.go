package state

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pitwall/internal/event"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *event.Bus) {
	t.Helper()
	bus := event.NewBus(event.WithLogger(quietLogger()))
	base := []Option{
		WithEmitter(bus),
		WithLogger(quietLogger()),
		WithInitialState(Tree{
			"auth":  map[string]any{"user": nil, "isAuthenticated": false},
			"ui":    map[string]any{"theme": "dark", "loading": false},
			"races": []any{},
		}),
	}
	return New(append(base, opts...)...), bus
}

func TestStore_SetThenGet(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.GetState()

	user := map[string]any{"id": "u1", "name": "Ana"}
	require.True(t, s.SetState("auth.user", user))

	got, ok := s.Get("auth.user")
	require.True(t, ok)
	assert.Equal(t, user, got)

	after := s.GetState()
	assert.Equal(t, before["ui"], after["ui"])
	assert.Equal(t, before["races"], after["races"])
	assert.Equal(t, false, after["auth"].(map[string]any)["isAuthenticated"])
	assert.Equal(t, uint64(1), s.Version())
}

func TestStore_GetStateIsACopy(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetState("drivers", []any{map[string]any{"id": "42"}})

	snapshot := s.GetState()
	snapshot["ui"].(map[string]any)["theme"] = "mutated"
	snapshot["drivers"].([]any)[0].(map[string]any)["id"] = "x"

	theme, _ := s.Get("ui.theme")
	assert.Equal(t, "dark", theme)
	id, _ := s.Get("drivers")
	assert.Equal(t, "42", id.([]any)[0].(map[string]any)["id"])
}

func TestStore_WrittenValueIsCopied(t *testing.T) {
	s, _ := newTestStore(t)
	v := map[string]any{"name": "Ana"}
	s.SetState("auth.user", v)
	v["name"] = "changed"

	name, _ := s.Get("auth.user.name")
	assert.Equal(t, "Ana", name)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok := s.Get("nope.nothing")
	assert.False(t, ok)
	_, ok = s.Get("bad..path")
	assert.False(t, ok)
}

func TestStore_InvalidWritePath(t *testing.T) {
	s, _ := newTestStore(t)
	assert.False(t, s.SetState("", 1))
	assert.False(t, s.SetState("a..b", 1))
	assert.False(t, s.BatchUpdate(map[string]any{"ok": 1, "bad.": 2}))
	_, ok := s.Get("ok")
	assert.False(t, ok)
}

func TestStore_MiddlewareVeto(t *testing.T) {
	s, bus := newTestStore(t)
	s.SetState("ui.theme", "light")
	before := s.GetState()

	changed := 0
	bus.OnFunc(event.ChannelStateChanged, func(context.Context, event.Event) error { changed++; return nil })
	notified := 0
	s.Subscribe("ui.theme", func(Change) { notified++ })

	var seen Mutation
	s.Use(func(next, prev Tree, m Mutation) bool {
		seen = m
		return m.Path != "ui.theme"
	})

	assert.False(t, s.SetState("ui.theme", "neon"))
	assert.Equal(t, before, s.GetState())
	assert.Zero(t, changed)
	assert.Zero(t, notified)
	assert.Equal(t, MutationSet, seen.Kind)
	assert.Equal(t, "neon", seen.Value)
	assert.Equal(t, "light", seen.OldValue)
	assert.Len(t, s.History(), 1)

	assert.True(t, s.SetState("ui.loading", true))
	assert.Equal(t, 1, changed)
}

func TestStore_MiddlewarePanicRejects(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.GetState()
	s.Use(func(Tree, Tree, Mutation) bool { panic("validator bug") })

	assert.False(t, s.SetState("ui.theme", "x"))
	assert.Equal(t, before, s.GetState())
}

func TestStore_MiddlewareOrderAndCandidate(t *testing.T) {
	s, _ := newTestStore(t)
	var order []int
	s.Use(func(next, prev Tree, m Mutation) bool {
		order = append(order, 1)
		assert.Equal(t, "light", next["ui"].(map[string]any)["theme"])
		assert.Equal(t, "dark", prev["ui"].(map[string]any)["theme"])
		return true
	})
	s.Use(func(Tree, Tree, Mutation) bool { order = append(order, 2); return true })
	s.Use(nil)

	require.True(t, s.SetState("ui.theme", "light"))
	assert.Equal(t, []int{1, 2}, order)
}

func TestStore_PathObservers(t *testing.T) {
	s, _ := newTestStore(t)
	var order []string

	s.Subscribe("auth.user", func(c Change) {
		order = append(order, "first")
		assert.Equal(t, "auth.user", c.Path)
		assert.Equal(t, "ana", c.Value)
		assert.Nil(t, c.OldValue)
	})
	s.Subscribe("auth.user", func(Change) { order = append(order, "second") })
	s.Subscribe("ui.theme", func(Change) { order = append(order, "unrelated") })
	var seen []Change
	s.SubscribeAll(func(c Change) {
		order = append(order, "wildcard")
		seen = append(seen, c)
	})

	s.SetState("auth.user", "ana")
	assert.Equal(t, []string{"first", "second", "wildcard"}, order)
	require.Len(t, seen, 1)
	assert.Equal(t, "auth.user", seen[0].Path)
	assert.Equal(t, "ana", seen[0].State["auth"].(map[string]any)["user"])
	assert.Nil(t, seen[0].OldState["auth"].(map[string]any)["user"])

	order = nil
	s.SetState("races", []any{"monza"})
	assert.Equal(t, []string{"wildcard"}, order)
	require.Len(t, seen, 2)
	assert.Equal(t, "races", seen[1].Path)
	assert.Equal(t, []any{"monza"}, seen[1].Value)
	assert.Equal(t, "ana", seen[1].OldState["auth"].(map[string]any)["user"])
}

func TestStore_ParentPathObserverNotNotified(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	s.Subscribe("auth", func(Change) { calls++ })
	s.SetState("auth.user", "ana")
	assert.Zero(t, calls)
}

func TestStore_Unsubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	id, err := s.Subscribe("ui.theme", func(Change) { calls++ })
	require.NoError(t, err)

	assert.True(t, s.Unsubscribe(id))
	assert.False(t, s.Unsubscribe(id))
	s.SetState("ui.theme", "light")
	assert.Zero(t, calls)
}

func TestStore_UnsubscribeDuringNotification(t *testing.T) {
	s, _ := newTestStore(t)
	var second SubscriptionID
	calls := 0
	s.Subscribe("ui.theme", func(Change) { s.Unsubscribe(second) })
	second, _ = s.Subscribe("ui.theme", func(Change) { calls++ })

	s.SetState("ui.theme", "light")
	assert.Zero(t, calls)
}

func TestStore_SubscribeValidation(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Subscribe("a", nil)
	assert.ErrorIs(t, err, ErrNilObserver)
	_, err = s.Subscribe("", func(Change) {})
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = s.Subscribe("a..b", func(Change) {})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStore_ObserverPanicIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, _ := newTestStore(t, WithRegisterer(reg))
	calls := 0
	s.Subscribe("ui.theme", func(Change) { panic("render failed") })
	s.Subscribe("ui.theme", func(Change) { calls++ })

	assert.True(t, s.SetState("ui.theme", "light"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.observerFailures))
}

func TestStore_Silent(t *testing.T) {
	s, bus := newTestStore(t)
	calls, events := 0, 0
	s.Subscribe("ui.theme", func(Change) { calls++ })
	s.SubscribeAll(func(Change) { calls++ })
	bus.OnFunc(event.ChannelStateChanged, func(context.Context, event.Event) error { events++; return nil })

	assert.True(t, s.SetState("ui.theme", "light", Silent()))
	assert.Zero(t, calls)
	assert.Equal(t, 1, events)
	assert.Len(t, s.History(), 1)
}

func TestStore_StateChangedBroadcast(t *testing.T) {
	s, bus := newTestStore(t)
	var got event.Event
	bus.OnFunc(event.ChannelStateChanged, func(_ context.Context, evt event.Event) error { got = evt; return nil })

	s.SetState("ui.theme", "light", WithSource("settings"))

	payload, ok := got.Payload.(StateChanged)
	require.True(t, ok)
	assert.Equal(t, "ui.theme", payload.Path)
	assert.Equal(t, "light", payload.Value)
	assert.Equal(t, "dark", payload.OldValue)
	assert.Equal(t, "light", payload.State["ui"].(map[string]any)["theme"])
	assert.Equal(t, "settings", got.Meta["source"])
}

func TestStore_BatchUpdate(t *testing.T) {
	s, bus := newTestStore(t)
	var batches []BatchChanged
	bus.OnFunc(event.ChannelStateBatchChanged, func(_ context.Context, evt event.Event) error {
		batches = append(batches, evt.Payload.(BatchChanged))
		return nil
	})
	singles := 0
	bus.OnFunc(event.ChannelStateChanged, func(context.Context, event.Event) error { singles++; return nil })

	middlewareCalls := 0
	s.Use(func(next, prev Tree, m Mutation) bool {
		middlewareCalls++
		assert.Equal(t, MutationBatch, m.Kind)
		assert.Equal(t, []string{"auth.isAuthenticated", "auth.user"}, m.Paths())
		assert.Equal(t, true, next["auth"].(map[string]any)["isAuthenticated"])
		assert.Equal(t, "ana", next["auth"].(map[string]any)["user"])
		return true
	})

	var notified []string
	s.Subscribe("auth.user", func(c Change) { notified = append(notified, c.Path) })
	s.Subscribe("auth.isAuthenticated", func(c Change) { notified = append(notified, c.Path) })
	wildcard := 0
	s.SubscribeAll(func(c Change) {
		wildcard++
		assert.Equal(t, MutationBatch, c.Kind)
		assert.Len(t, c.Updates, 2)
	})

	ok := s.BatchUpdate(map[string]any{"auth.user": "ana", "auth.isAuthenticated": true})
	require.True(t, ok)

	assert.Equal(t, 1, middlewareCalls)
	assert.Equal(t, []string{"auth.isAuthenticated", "auth.user"}, notified)
	assert.Equal(t, 1, wildcard)
	assert.Len(t, batches, 1)
	assert.Zero(t, singles)
	assert.Len(t, s.History(), 2)
	assert.Equal(t, uint64(1), s.Version())
}

func TestStore_BatchRejectedAppliesNothing(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.GetState()
	s.Use(func(next, prev Tree, m Mutation) bool {
		return next["ui"].(map[string]any)["theme"] != "forbidden"
	})

	ok := s.Batch([]Update{{Path: "auth.user", Value: "ana"}, {Path: "ui.theme", Value: "forbidden"}})
	assert.False(t, ok)
	assert.Equal(t, before, s.GetState())
	assert.Empty(t, s.History())
}

func TestStore_BatchDuplicatePathNotifiesOnce(t *testing.T) {
	s, _ := newTestStore(t)
	var values []any
	s.Subscribe("ui.theme", func(c Change) { values = append(values, c.Value) })

	s.Batch([]Update{{Path: "ui.theme", Value: "a"}, {Path: "ui.theme", Value: "b"}})
	assert.Equal(t, []any{"b"}, values)
	assert.True(t, s.Batch(nil))
}

func TestStore_HistoryBounded(t *testing.T) {
	s, _ := newTestStore(t, WithHistoryLimit(3))
	for i := 0; i < 10; i++ {
		s.SetState("counter", i)
	}

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, 7, h[0].NewValue)
	assert.Equal(t, 6, h[0].OldValue)
	assert.Equal(t, 9, h[2].NewValue)
	assert.Equal(t, "counter", h[2].Path)

	s.ClearHistory()
	assert.Empty(t, s.History())
}

func TestStore_ReentrantWriteIsNewCommit(t *testing.T) {
	s, _ := newTestStore(t)
	var seen []any
	s.Subscribe("ui.theme", func(c Change) {
		seen = append(seen, c.Value)
		if c.Value == "light" {
			assert.True(t, s.SetState("ui.loading", true))
		}
	})
	loading := 0
	s.Subscribe("ui.loading", func(Change) { loading++ })

	s.SetState("ui.theme", "light")
	assert.Equal(t, []any{"light"}, seen)
	assert.Equal(t, 1, loading)
	assert.Equal(t, uint64(2), s.Version())
}

func TestStore_ReentrantWritesBounded(t *testing.T) {
	s, _ := newTestStore(t, WithMaxNotifyDepth(4))
	calls := 0
	s.Subscribe("ping", func(c Change) {
		calls++
		s.SetState("ping", c.Value.(int)+1)
	})

	assert.True(t, s.SetState("ping", 0))
	assert.Equal(t, 4, calls)
	v, _ := s.Get("ping")
	assert.Equal(t, 3, v)

	// The depth counter unwinds, so later writes work again.
	calls = 0
	assert.True(t, s.SetState("other", 1))
}

func TestStore_Reset(t *testing.T) {
	s, bus := newTestStore(t)
	s.BatchUpdate(map[string]any{"auth.user": "ana", "auth.isAuthenticated": true, "ui.theme": "light"})

	var userChanges, themeChanges, wildcard int
	s.Subscribe("auth.user", func(c Change) {
		userChanges++
		assert.Nil(t, c.Value)
		assert.Equal(t, "ana", c.OldValue)
	})
	s.Subscribe("races", func(Change) { themeChanges++ })
	s.SubscribeAll(func(c Change) { wildcard++; assert.Equal(t, MutationReset, c.Kind) })
	var kinds []MutationKind
	bus.OnFunc(event.ChannelStateBatchChanged, func(_ context.Context, evt event.Event) error {
		kinds = append(kinds, evt.Payload.(BatchChanged).Kind)
		return nil
	})

	require.True(t, s.Reset(nil))
	user, _ := s.Get("auth.user")
	assert.Nil(t, user)
	theme, _ := s.Get("ui.theme")
	assert.Equal(t, "dark", theme)

	assert.Equal(t, 1, userChanges)
	assert.Zero(t, themeChanges, "unchanged paths are not notified")
	assert.Equal(t, 1, wildcard)
	assert.Equal(t, []MutationKind{MutationReset}, kinds)

	last := s.History()[len(s.History())-1]
	assert.Empty(t, last.Path)
}

func TestStore_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, _ := newTestStore(t, WithRegisterer(reg))
	s.Use(func(next, prev Tree, m Mutation) bool { return m.Path != "blocked" })

	s.SetState("ok", 1)
	s.SetState("blocked", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.commits.WithLabelValues("set", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.commits.WithLabelValues("set", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.historySize))
}

func TestSelect(t *testing.T) {
	s, _ := newTestStore(t)
	theme, ok := Select[string](s, "ui.theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", theme)

	_, ok = Select[int](s, "ui.theme")
	assert.False(t, ok)
	_, ok = Select[string](s, "missing")
	assert.False(t, ok)
}

func TestMutationKind_String(t *testing.T) {
	assert.Equal(t, "set", MutationSet.String())
	assert.Equal(t, "batch", MutationBatch.String())
	assert.Equal(t, "reset", MutationReset.String())
	assert.Equal(t, "unknown", MutationKind(9).String())
}
