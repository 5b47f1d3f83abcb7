// Package stream wraps a model-response increment source so that
// invalidating the generation or cancelling the owning task reliably
// unblocks pending reads and releases the transport.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/voocel/agentcore/generation"
	"github.com/voocel/agentcore/observer"
	"github.com/voocel/agentcore/schema"
)

// State of the controller.
type State int32

const (
	StateOpen State = iota
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "open"
	}
}

// Aborter is the abort hook a transport may expose.
type Aborter interface {
	Abort()
}

// Closer is the close hook a transport may expose.
type Closer interface {
	Close() error
}

// HandleProvider exposes a nested transport handle to try closing when
// the outer value offers no hook of its own.
type HandleProvider interface {
	Handle() any
}

// Controller owns the consumption of one response stream. Consumption
// always runs in its own goroutine so cancellation delivers an interrupt
// at the next suspension point even before the generation check runs.
// Every increment is gated on the captured generation; a mismatch closes
// the stream and produces no further side effects.
type Controller struct {
	source    <-chan schema.Increment
	transport any
	tracker   *generation.Tracker
	gen       generation.Gen
	obs       observer.Observer

	out   chan schema.Increment
	done  chan struct{}
	state atomic.Int32

	closeOnce sync.Once
	closeMu   sync.Mutex
	closeErr  error
	cause     error
}

// NewController starts consuming source under ctx. The transport value is
// only used for best-effort closing; it may expose none, some, or all of
// the known hooks.
func NewController(ctx context.Context, source <-chan schema.Increment, transport any, tracker *generation.Tracker, gen generation.Gen, obs observer.Observer) *Controller {
	if obs == nil {
		obs = observer.Nop{}
	}
	c := &Controller{
		source:    source,
		transport: transport,
		tracker:   tracker,
		gen:       gen,
		obs:       obs,
		out:       make(chan schema.Increment, 16),
		done:      make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

// Increments returns the gated increment channel. It is closed when the
// source is exhausted, the generation is superseded, or the owning task
// is cancelled.
func (c *Controller) Increments() <-chan schema.Increment {
	return c.out
}

// Done is closed when consumption has fully stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current stream state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// CloseErr returns the recorded close failure, if any.
func (c *Controller) CloseErr() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closeErr
}

// Err reports why consumption stopped: ErrStreamCancelled when the owning
// task was cancelled or the generation superseded, nil when the source was
// exhausted normally.
func (c *Controller) Err() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.cause
}

func (c *Controller) setCause(err error) {
	c.closeMu.Lock()
	c.cause = err
	c.closeMu.Unlock()
}

func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.state.Store(int32(StateClosed))
		close(c.out)
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			c.setCause(schema.ErrStreamCancelled)
			c.RequestClose()
			return
		case inc, ok := <-c.source:
			if !ok {
				return
			}
			if !c.tracker.Valid(c.gen) {
				// Superseded: drop the increment, release the transport,
				// exit without further side effects.
				c.setCause(schema.ErrStreamCancelled)
				c.RequestClose()
				return
			}
			select {
			case c.out <- inc:
			case <-ctx.Done():
				c.setCause(schema.ErrStreamCancelled)
				c.RequestClose()
				return
			}
		}
	}
}

// RequestClose attempts every known interruption mechanism on the
// transport, in order: abort hook, close hook, nested handle. Idempotent.
// The injected transport may expose none of these; an unconfirmed closure
// is recorded as a CloseIncompleteError, logged, and otherwise non-fatal.
func (c *Controller) RequestClose() error {
	c.closeOnce.Do(func() {
		c.state.CompareAndSwap(int32(StateOpen), int32(StateDraining))

		confirmed, err := tryClose(c.transport)
		if !confirmed {
			c.closeMu.Lock()
			c.closeErr = &schema.CloseIncompleteError{Err: err}
			c.closeMu.Unlock()
			c.obs.OnCloseIncomplete(err)
		}
	})
	return c.CloseErr()
}

// tryClose walks the hook chain on handle. Returns whether any mechanism
// completed without error, and the last error seen.
func tryClose(handle any) (bool, error) {
	if handle == nil {
		return false, nil
	}

	confirmed := false
	var lastErr error

	if a, ok := handle.(Aborter); ok {
		a.Abort()
		confirmed = true
	}
	if cl, ok := handle.(Closer); ok {
		if err := cl.Close(); err != nil {
			lastErr = err
		} else {
			confirmed = true
		}
	}
	if hp, ok := handle.(HandleProvider); ok {
		inner, err := tryClose(hp.Handle())
		if inner {
			confirmed = true
		}
		if err != nil {
			lastErr = err
		}
	}

	return confirmed, lastErr
}
