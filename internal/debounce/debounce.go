// Package debounce provides a single-shot timer that is cancelled and
// rescheduled on every trigger.
package debounce

import (
	"sync"
	"time"
)

type Timer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	gen     uint64
	pending bool
}

func New(delay time.Duration, fn func()) *Timer {
	return &Timer{delay: delay, fn: fn}
}

func (t *Timer) Delay() time.Duration {
	return t.delay
}

// Trigger cancels any pending run and schedules fn after the delay.
func (t *Timer) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.pending = true
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen) })
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	// a later Trigger or Cancel superseded this run
	if gen != t.gen || !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.timer = nil
	t.mu.Unlock()
	t.fn()
}

// Cancel drops the pending run and reports whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelLocked()
}

func (t *Timer) cancelLocked() bool {
	was := t.pending
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.pending = false
	return was
}

// Flush runs fn immediately on the caller's goroutine if a run was pending.
func (t *Timer) Flush() bool {
	t.mu.Lock()
	was := t.cancelLocked()
	t.mu.Unlock()
	if was {
		t.fn()
	}
	return was
}

func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
