// Package generation tracks the currently relevant unit of request
// processing. A generation is minted per request and invalidated on abort;
// consumers compare their captured value against the live one before
// producing any visible effect, and discard their work on mismatch.
package generation

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gen identifies one unit of work.
type Gen int64

// Tracker holds the live generation counter and the cancel handle of the
// active streaming task. The counter is a relaxed, consumer-polled signal;
// only cancelling the active task forces interruption at a suspension
// point. These two cells are the only state shared between the consumption
// task and the cancellation trigger.
type Tracker struct {
	current atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewTracker creates a Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Next mints a new generation and makes it current.
func (t *Tracker) Next() Gen {
	return Gen(t.current.Add(1))
}

// Current returns the live generation.
func (t *Tracker) Current() Gen {
	return Gen(t.current.Load())
}

// Valid reports whether g is still the live generation.
func (t *Tracker) Valid(g Gen) bool {
	return Gen(t.current.Load()) == g
}

// Invalidate supersedes the current generation. Consumers holding the old
// value observe the mismatch on their next check and discard their work.
func (t *Tracker) Invalidate() Gen {
	return Gen(t.current.Add(1))
}

// SetActive records the cancel handle of the active streaming task,
// replacing any previous handle.
func (t *Tracker) SetActive(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = cancel
}

// ClearActive drops the active handle if it matches no longer running work.
func (t *Tracker) ClearActive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = nil
}

// CancelActive cancels the active streaming task, if any. Returns whether
// a task was cancelled. Safe to call multiple times.
func (t *Tracker) CancelActive() bool {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Abort runs the two-step cancellation protocol: invalidate the generation
// first so rendering stops immediately, then cancel the active task so
// production stops at its next suspension point.
func (t *Tracker) Abort() {
	t.Invalidate()
	t.CancelActive()
}
