package router

import (
	"html"
	"sync"
)

// RenderTarget is where rendered views are placed.
type RenderTarget interface {
	Replace(content string) error
	SetLoading(loading bool)
	// Highlight marks navigation links that point at the active route.
	Highlight(active *NavigationContext)
	SetTitle(title string)
}

// BufferTarget is a RenderTarget that keeps the last output in memory.
type BufferTarget struct {
	mu          sync.Mutex
	content     string
	title       string
	loading     bool
	highlighted *NavigationContext
	renders     int
}

// NewBufferTarget creates an empty target.
func NewBufferTarget() *BufferTarget { return &BufferTarget{} }

// Replace implements RenderTarget.
func (b *BufferTarget) Replace(content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = content
	b.renders++
	return nil
}

// SetLoading implements RenderTarget.
func (b *BufferTarget) SetLoading(loading bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = loading
}

// Highlight implements RenderTarget.
func (b *BufferTarget) Highlight(active *NavigationContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.highlighted = active
}

// SetTitle implements RenderTarget.
func (b *BufferTarget) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.title = title
}

// Content returns the last replaced content.
func (b *BufferTarget) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// Title returns the current title.
func (b *BufferTarget) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title
}

// Loading reports the loading flag.
func (b *BufferTarget) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Highlighted returns the last highlighted route.
func (b *BufferTarget) Highlighted() *NavigationContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highlighted
}

// Renders returns how many times Replace was called.
func (b *BufferTarget) Renders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renders
}

// ErrorView renders the inline error shown when a view cannot be displayed.
type ErrorView func(err error) string

// DefaultErrorView renders a minimal escaped error block.
func DefaultErrorView(err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return `<div class="route-error"><h2>Something went wrong</h2><p>` + html.EscapeString(msg) + `</p></div>`
}
