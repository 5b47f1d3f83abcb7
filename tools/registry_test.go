package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voocel/agentcore/schema"
)

type testTool struct {
	name string
	fn   func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

func (t *testTool) Name() string           { return t.name }
func (t *testTool) Description() string    { return "test tool " + t.name }
func (t *testTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (t *testTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return t.fn(ctx, args)
}

func ok(name string) *testTool {
	return &testTool{name: name, fn: func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"ok"`), nil
	}}
}

func TestRegistryModeClassification(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ok("read"), ModeReadOnly); err != nil {
		t.Fatalf("register read: %v", err)
	}
	if err := r.Register(ok("write"), ModeMutating); err != nil {
		t.Fatalf("register write: %v", err)
	}

	if mode, ok := r.ModeOf("read"); !ok || mode != ModeReadOnly {
		t.Errorf("ModeOf(read) = %v, %v", mode, ok)
	}
	if mode, ok := r.ModeOf("write"); !ok || mode != ModeMutating {
		t.Errorf("ModeOf(write) = %v, %v", mode, ok)
	}
	if _, ok := r.ModeOf("ghost"); ok {
		t.Error("ModeOf(ghost) should not resolve")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ok("read"), ModeReadOnly); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register(ok("read"), ModeMutating)
	if !errors.Is(err, schema.ErrToolAlreadyExists) {
		t.Fatalf("duplicate register error = %v", err)
	}
}

func TestRegistrySpecsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(ok(name), ModeReadOnly); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	specs := r.Specs()
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("specs[%d].Name = %s, want %s", i, specs[i].Name, name)
		}
	}
}

func TestExecuteAppliesTimeout(t *testing.T) {
	slow := &testTool{name: "slow", fn: func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		select {
		case <-time.After(time.Second):
			return json.RawMessage(`"too late"`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}

	r := NewRegistry()
	if err := r.Register(slow, ModeReadOnly, WithTimeout(5*time.Millisecond)); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := r.Execute(context.Background(), schema.ToolCall{ID: "c1", Name: "slow"})
	if !errors.Is(err, schema.ErrToolTimeout) {
		t.Fatalf("Execute error = %v, want timeout", err)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	res, err := r.Execute(context.Background(), schema.ToolCall{ID: "c1", Name: "ghost"})
	if !errors.Is(err, schema.ErrToolNotFound) {
		t.Fatalf("Execute error = %v, want not found", err)
	}
	if res.ID != "c1" || !res.IsError() {
		t.Errorf("result = %+v, want error result carrying the call ID", res)
	}
}

func TestTruncateHeadKeepsPrefix(t *testing.T) {
	content := strings.TrimSuffix(strings.Repeat("line\n", 100), "\n")

	out, total, kept, truncated := TruncateHead(content, 10, 0)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if total != 100 || kept != 10 {
		t.Errorf("total=%d kept=%d, want 100/10", total, kept)
	}
	if !strings.HasPrefix(content, out) {
		t.Error("head truncation must keep a prefix")
	}
}

func TestTruncateTailKeepsSuffix(t *testing.T) {
	content := strings.TrimSuffix(strings.Repeat("line\n", 100), "\n")

	out, total, kept, truncated := TruncateTail(content, 10, 0)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if total != 100 || kept != 10 {
		t.Errorf("total=%d kept=%d, want 100/10", total, kept)
	}
	if !strings.HasSuffix(content, out) {
		t.Error("tail truncation must keep a suffix")
	}
}

func TestTruncateNoopUnderLimits(t *testing.T) {
	out, total, kept, truncated := TruncateHead("short", 0, 0)
	if truncated || out != "short" || total != 1 || kept != 1 {
		t.Errorf("TruncateHead(short) = %q, %d, %d, %v", out, total, kept, truncated)
	}
}
