package router

import (
	"context"
	"sync"
)

// VerdictKind tells the pipeline what to do after a before-hook.
type VerdictKind int

const (
	// VerdictAllow continues the pipeline.
	VerdictAllow VerdictKind = iota
	// VerdictCancel stops the navigation.
	VerdictCancel
	// VerdictRedirect restarts the pipeline for another path.
	VerdictRedirect
)

// Verdict is returned by before-hooks and middlewares. The zero value allows.
type Verdict struct {
	Kind VerdictKind
	Path string
}

// Allow continues the navigation.
func Allow() Verdict { return Verdict{Kind: VerdictAllow} }

// Cancel stops the navigation.
func Cancel() Verdict { return Verdict{Kind: VerdictCancel} }

// Redirect abandons the navigation and starts one to path.
func Redirect(path string) Verdict { return Verdict{Kind: VerdictRedirect, Path: path} }

// Hook runs before a navigation commits. from is nil on the first navigation.
type Hook func(ctx context.Context, to, from *NavigationContext) Verdict

// AfterHook runs after a navigation has rendered.
type AfterHook func(ctx context.Context, to, from *NavigationContext)

type namedHook struct {
	name string
	fn   Hook
}

type namedAfterHook struct {
	name string
	fn   AfterHook
}

// hookManager keeps hooks in registration order. Registering a name again
// replaces the earlier hook in place.
type hookManager struct {
	mu     sync.RWMutex
	before []namedHook
	mw     []namedHook
	after  []namedAfterHook
}

func (m *hookManager) addBefore(name string, fn Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before = upsertHook(m.before, name, fn)
}

func (m *hookManager) addMiddleware(name string, fn Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mw = upsertHook(m.mw, name, fn)
}

func (m *hookManager) addAfter(name string, fn AfterHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.after {
		if name != "" && h.name == name {
			m.after[i].fn = fn
			return
		}
	}
	m.after = append(m.after, namedAfterHook{name: name, fn: fn})
}

func upsertHook(list []namedHook, name string, fn Hook) []namedHook {
	for i, h := range list {
		if name != "" && h.name == name {
			list[i].fn = fn
			return list
		}
	}
	return append(list, namedHook{name: name, fn: fn})
}

// remove drops every hook registered under name.
func (m *hookManager) remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := false
	filter := func(list []namedHook) []namedHook {
		out := list[:0]
		for _, h := range list {
			if h.name == name {
				removed = true
				continue
			}
			out = append(out, h)
		}
		return out
	}
	m.before = filter(m.before)
	m.mw = filter(m.mw)

	after := m.after[:0]
	for _, h := range m.after {
		if h.name == name {
			removed = true
			continue
		}
		after = append(after, h)
	}
	m.after = after
	return removed
}

func (m *hookManager) beforeHooks() []namedHook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]namedHook(nil), m.before...)
}

func (m *hookManager) middlewares() []namedHook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]namedHook(nil), m.mw...)
}

func (m *hookManager) afterHooks() []namedAfterHook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]namedAfterHook(nil), m.after...)
}

// names lists hook names per phase in run order.
func (m *hookManager) names() (before, mw, after []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.before {
		before = append(before, h.name)
	}
	for _, h := range m.mw {
		mw = append(mw, h.name)
	}
	for _, h := range m.after {
		after = append(after, h.name)
	}
	return before, mw, after
}
