package preview

import (
	"sync"
	"time"

	"memopad/internal/debounce"
	"memopad/internal/editor"
)

const DefaultDelay = 300 * time.Millisecond

// Live keeps the rendered preview of the editor text current while the
// preview pane is visible.
type Live struct {
	renderer *Renderer
	source   func() string
	timer    *debounce.Timer

	mu      sync.Mutex
	visible bool
	html    string
}

// NewLive renders source once and starts visible. delay <= 0 uses
// DefaultDelay.
func NewLive(renderer *Renderer, source func() string, delay time.Duration) *Live {
	if delay <= 0 {
		delay = DefaultDelay
	}
	l := &Live{renderer: renderer, source: source, visible: true}
	l.timer = debounce.New(delay, l.Refresh)
	l.html = renderer.Render(source())
	return l
}

// EditorChanged is subscribed to the surface. Typing re-renders after the
// debounce delay; loading a document renders right away.
func (l *Live) EditorChanged(change editor.Change) {
	if !l.Visible() {
		return
	}
	if change.Origin == editor.OriginLoad {
		l.timer.Cancel()
		l.store(l.renderer.Render(change.Text))
		return
	}
	l.timer.Trigger()
}

// Refresh renders the current source immediately.
func (l *Live) Refresh() {
	l.store(l.renderer.Render(l.source()))
}

func (l *Live) store(html string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.html = html
}

func (l *Live) HTML() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.html
}

func (l *Live) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// SetVisible shows or hides the pane. Showing it renders immediately so the
// pane never displays stale output.
func (l *Live) SetVisible(visible bool) {
	l.mu.Lock()
	l.visible = visible
	l.mu.Unlock()
	if visible {
		l.Refresh()
		return
	}
	l.timer.Cancel()
}

func (l *Live) Toggle() bool {
	visible := !l.Visible()
	l.SetVisible(visible)
	return visible
}

// Pending reports whether a debounced render is scheduled.
func (l *Live) Pending() bool {
	return l.timer.Pending()
}

// Flush runs a scheduled render now.
func (l *Live) Flush() {
	l.timer.Flush()
}

func (l *Live) Stop() {
	l.timer.Cancel()
}
