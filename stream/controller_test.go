package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/voocel/agentcore/generation"
	"github.com/voocel/agentcore/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func drain(t *testing.T, c *Controller) []schema.Increment {
	t.Helper()
	var out []schema.Increment
	for inc := range c.Increments() {
		out = append(out, inc)
	}
	return out
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
}

type hookTransport struct {
	aborted  bool
	closed   bool
	closeErr error
}

func (h *hookTransport) Abort()       { h.aborted = true }
func (h *hookTransport) Close() error { h.closed = true; return h.closeErr }

type nestedTransport struct {
	inner any
}

func (n *nestedTransport) Handle() any { return n.inner }

func TestControllerForwardsUntilSourceCloses(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	src := make(chan schema.Increment, 3)
	src <- schema.Increment{ID: "a", Delta: "hello"}
	src <- schema.Increment{ID: "b", Delta: " world"}
	close(src)

	c := NewController(context.Background(), src, nil, tracker, gen, nil)
	got := drain(t, c)
	waitDone(t, c)

	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("got %+v, want increments a, b in order", got)
	}
	if c.State() != StateClosed {
		t.Errorf("State() = %v, want closed", c.State())
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v after normal exhaustion, want nil", c.Err())
	}
}

func TestControllerSupersededGenerationDropsIncrements(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	src := make(chan schema.Increment, 2)
	c := NewController(context.Background(), src, &hookTransport{}, tracker, gen, nil)

	// Invalidate before anything is produced: nothing may come through.
	tracker.Invalidate()
	src <- schema.Increment{ID: "late", Delta: "stale"}

	got := drain(t, c)
	waitDone(t, c)

	if len(got) != 0 {
		t.Fatalf("superseded generation delivered %+v, want nothing", got)
	}
	if !errors.Is(c.Err(), schema.ErrStreamCancelled) {
		t.Errorf("Err() = %v, want ErrStreamCancelled", c.Err())
	}
}

func TestControllerCancelReleasesTransport(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	ctx, cancel := context.WithCancel(context.Background())
	src := make(chan schema.Increment)
	h := &hookTransport{}
	c := NewController(ctx, src, h, tracker, gen, nil)

	cancel()
	drain(t, c)
	waitDone(t, c)

	if !h.aborted || !h.closed {
		t.Errorf("transport hooks: aborted=%v closed=%v, want both", h.aborted, h.closed)
	}
	if c.CloseErr() != nil {
		t.Errorf("CloseErr() = %v, want nil for confirmed closure", c.CloseErr())
	}
	if !errors.Is(c.Err(), schema.ErrStreamCancelled) {
		t.Errorf("Err() = %v, want ErrStreamCancelled", c.Err())
	}
	close(src)
}

func TestRequestCloseIdempotent(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	src := make(chan schema.Increment)
	close(src)
	h := &hookTransport{}
	c := NewController(context.Background(), src, h, tracker, gen, nil)
	waitDone(t, c)

	err1 := c.RequestClose()
	h.aborted = false
	err2 := c.RequestClose()

	if err1 != nil || err2 != nil {
		t.Fatalf("RequestClose() = %v, %v; want nil, nil", err1, err2)
	}
	if h.aborted {
		t.Error("second RequestClose re-ran the hooks")
	}
}

func TestRequestCloseNestedHandle(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	inner := &hookTransport{}
	src := make(chan schema.Increment)
	close(src)
	c := NewController(context.Background(), src, &nestedTransport{inner: inner}, tracker, gen, nil)
	waitDone(t, c)

	if err := c.RequestClose(); err != nil {
		t.Fatalf("RequestClose: %v", err)
	}
	if !inner.aborted {
		t.Error("nested handle's abort hook not invoked")
	}
}

func TestRequestCloseUnconfirmed(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	src := make(chan schema.Increment)
	close(src)

	// A transport with no hooks at all cannot confirm closure.
	c := NewController(context.Background(), src, struct{}{}, tracker, gen, nil)
	waitDone(t, c)

	err := c.RequestClose()
	var incomplete *schema.CloseIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("RequestClose() = %v, want CloseIncompleteError", err)
	}
}

func TestRequestCloseFailingCloseHook(t *testing.T) {
	tracker := generation.NewTracker()
	gen := tracker.Next()

	src := make(chan schema.Increment)
	close(src)

	h := &hookTransport{closeErr: errors.New("connection reset")}
	c := NewController(context.Background(), src, h, tracker, gen, nil)
	waitDone(t, c)

	// Abort succeeded, so closure counts as confirmed despite Close failing.
	if err := c.RequestClose(); err != nil {
		t.Fatalf("RequestClose() = %v, want confirmed closure", err)
	}
}
