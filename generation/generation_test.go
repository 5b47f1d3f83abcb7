package generation

import (
	"context"
	"testing"
)

func TestTracker_Monotonic(t *testing.T) {
	tr := NewTracker()

	g1 := tr.Next()
	g2 := tr.Next()
	if g2 <= g1 {
		t.Fatalf("Next() not monotonic: g1=%d g2=%d", g1, g2)
	}
	if tr.Current() != g2 {
		t.Fatalf("Current() = %d, want %d", tr.Current(), g2)
	}
}

func TestTracker_Invalidate(t *testing.T) {
	tr := NewTracker()

	g := tr.Next()
	if !tr.Valid(g) {
		t.Fatal("fresh generation should be valid")
	}

	tr.Invalidate()
	if tr.Valid(g) {
		t.Fatal("invalidated generation should not be valid")
	}
}

func TestTracker_CancelActive(t *testing.T) {
	tr := NewTracker()

	ctx, cancel := context.WithCancel(context.Background())
	tr.SetActive(cancel)

	if !tr.CancelActive() {
		t.Fatal("CancelActive() = false, want true")
	}
	if ctx.Err() == nil {
		t.Fatal("active context not cancelled")
	}

	// Handle is consumed; a second cancel is a no-op.
	if tr.CancelActive() {
		t.Fatal("second CancelActive() = true, want false")
	}
}

func TestTracker_ClearActive(t *testing.T) {
	tr := NewTracker()

	ctx, cancel := context.WithCancel(context.Background())
	tr.SetActive(cancel)
	tr.ClearActive()

	if tr.CancelActive() {
		t.Fatal("CancelActive() = true after ClearActive(), want false")
	}
	if ctx.Err() != nil {
		t.Fatal("ClearActive() must not cancel the task")
	}
	cancel()
}

func TestTracker_Abort(t *testing.T) {
	tr := NewTracker()

	g := tr.Next()
	ctx, cancel := context.WithCancel(context.Background())
	tr.SetActive(cancel)

	tr.Abort()

	if tr.Valid(g) {
		t.Fatal("generation still valid after Abort()")
	}
	if ctx.Err() == nil {
		t.Fatal("active task not cancelled after Abort()")
	}
}
