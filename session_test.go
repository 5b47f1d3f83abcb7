package agentcore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voocel/agentcore/decode"
	"github.com/voocel/agentcore/retry"
	"github.com/voocel/agentcore/schema"
	"github.com/voocel/agentcore/tools"
)

type stubTool struct {
	name string
	mode tools.Mode
	fn   func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

func (t *stubTool) Name() string           { return t.name }
func (t *stubTool) Description() string    { return t.name }
func (t *stubTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (t *stubTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return t.fn(ctx, args)
}

func stubRegistry(t *testing.T, stubs ...*stubTool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for _, s := range stubs {
		if err := r.Register(s, s.mode); err != nil {
			t.Fatalf("register %s: %v", s.name, err)
		}
	}
	return r
}

// scriptedStream plays back one increment script per turn.
type scriptedStream struct {
	turns [][]schema.Increment
	calls atomic.Int32
}

func (s *scriptedStream) open(ctx context.Context, _ []schema.Message, _ []tools.Spec) (<-chan schema.Increment, any, error) {
	turn := int(s.calls.Add(1)) - 1
	if turn >= len(s.turns) {
		return nil, nil, errors.New("script exhausted")
	}
	ch := make(chan schema.Increment, len(s.turns[turn]))
	for _, inc := range s.turns[turn] {
		ch <- inc
	}
	close(ch)
	return ch, nil, nil
}

func fastTestDecoder() *decode.Decoder {
	d := decode.New()
	d.Backoff = retry.Exponential(d.MaxRetries, time.Microsecond, time.Millisecond, false)
	return d
}

func collectAll(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestRunToolLoop(t *testing.T) {
	var gotArgs string
	read := &stubTool{name: "read_file", mode: tools.ModeReadOnly,
		fn: func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
			gotArgs = string(args)
			return json.RawMessage(`"file contents"`), nil
		}}

	stream := &scriptedStream{turns: [][]schema.Increment{
		{
			{ID: "i1", Delta: "Let me read that."},
			{ID: "i1", ToolCalls: []schema.ToolCall{
				{ID: "tc1", Name: "read_file", Args: json.RawMessage(`{"path":"a.txt"}`)},
			}, CallsDone: true},
		},
		{
			{ID: "i2", Delta: "The file says hi.", CallsDone: true},
		},
	}}

	session := NewSession(Config{
		Stream:      stream.open,
		Registry:    stubRegistry(t, read),
		AutoApprove: true,
		Decoder:     fastTestDecoder(),
	})

	msgs, err := Collect(session.Run(context.Background(), "what does a.txt say?"))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if gotArgs != `{"path":"a.txt"}` {
		t.Errorf("tool received args %q", gotArgs)
	}

	// Conversation order: assistant turn, its tool result, final assistant.
	wantRoles := []schema.Role{schema.RoleAssistant, schema.RoleTool, schema.RoleAssistant}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d: %+v", len(msgs), len(wantRoles), msgs)
	}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("msgs[%d].Role = %s, want %s", i, msgs[i].Role, want)
		}
	}
	if !msgs[0].HasToolCalls() {
		t.Error("assistant message lost its tool calls")
	}
	if id, _ := msgs[1].Metadata["tool_call_id"].(string); id != "tc1" {
		t.Errorf("tool result message tagged %q, want tc1", id)
	}
	if !strings.Contains(msgs[1].Content, "file contents") {
		t.Errorf("tool result content = %q", msgs[1].Content)
	}

	// Committed conversation carries the user prompt plus all three.
	all := session.Messages()
	if len(all) != 4 {
		t.Fatalf("conversation has %d messages, want 4", len(all))
	}
	if all[0].Role != schema.RoleUser {
		t.Errorf("conversation[0].Role = %s, want user", all[0].Role)
	}
}

func TestRunMalformedArgsReportedInOrder(t *testing.T) {
	var goodRan atomic.Bool
	good := &stubTool{name: "good", mode: tools.ModeReadOnly,
		fn: func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
			goodRan.Store(true)
			return json.RawMessage(`"ok"`), nil
		}}

	stream := &scriptedStream{turns: [][]schema.Increment{
		{
			{ID: "i1", ToolCalls: []schema.ToolCall{
				{ID: "tc-bad", Name: "good", Args: json.RawMessage(`{"broken`)},
				{ID: "tc-good", Name: "good", Args: json.RawMessage(`{}`)},
			}, CallsDone: true},
		},
		{
			{ID: "i2", Delta: "done", CallsDone: true},
		},
	}}

	session := NewSession(Config{
		Stream:      stream.open,
		Registry:    stubRegistry(t, good),
		AutoApprove: true,
		Decoder:     fastTestDecoder(),
	})

	events := collectAll(session.Run(context.Background(), "go"))

	var results []schema.ToolResult
	for _, ev := range events {
		if ev.Type == EventToolResult {
			results = append(results, ev.Result)
		}
	}
	if len(results) != 2 {
		t.Fatalf("got %d tool results, want 2", len(results))
	}
	if results[0].ID != "tc-bad" || !strings.Contains(results[0].Error, "malformed arguments") {
		t.Errorf("results[0] = %+v, want malformed-args failure for tc-bad", results[0])
	}
	if results[1].ID != "tc-good" || results[1].IsError() {
		t.Errorf("results[1] = %+v, want success for tc-good", results[1])
	}
	if !goodRan.Load() {
		t.Error("well-formed sibling call did not execute")
	}
}

func TestRunStreamErrorSurfaces(t *testing.T) {
	stream := &scriptedStream{turns: [][]schema.Increment{
		{{ID: "i1", Err: errors.New("connection reset")}},
	}}

	session := NewSession(Config{
		Stream:   stream.open,
		Registry: stubRegistry(t),
		Decoder:  fastTestDecoder(),
	})

	events := collectAll(session.Run(context.Background(), "hello"))

	if n := countEvents(events, EventError); n != 1 {
		t.Fatalf("got %d error events, want 1", n)
	}
	if n := countEvents(events, EventRunEnd); n != 1 {
		t.Fatalf("got %d run.end events, want 1", n)
	}
}

// blockingStream never yields until the run context is cancelled.
type blockingStream struct {
	opened chan struct{}
	abort  atomic.Bool
}

func (s *blockingStream) open(ctx context.Context, _ []schema.Message, _ []tools.Spec) (<-chan schema.Increment, any, error) {
	ch := make(chan schema.Increment)
	close(s.opened)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, s, nil
}

func (s *blockingStream) Abort() { s.abort.Store(true) }

func TestAbortNotifiesCancellationOnce(t *testing.T) {
	stream := &blockingStream{opened: make(chan struct{})}

	session := NewSession(Config{
		Stream:   stream.open,
		Registry: stubRegistry(t),
		Decoder:  fastTestDecoder(),
	})

	events := session.Run(context.Background(), "long task")
	<-stream.opened
	session.Abort()

	all := collectAll(events)

	if n := countEvents(all, EventRunCancelled); n != 1 {
		t.Fatalf("got %d cancellation notifications, want exactly 1", n)
	}
	if n := countEvents(all, EventRunEnd); n != 1 {
		t.Fatalf("got %d run.end events, want 1", n)
	}
	if !stream.abort.Load() {
		t.Error("transport abort hook not invoked on cancellation")
	}

	// Nothing from the aborted generation may reach the conversation.
	for _, msg := range session.Messages() {
		if msg.Role == schema.RoleAssistant {
			t.Errorf("aborted run committed assistant message %+v", msg)
		}
	}
}

func TestAbortBeforeRunIsSafe(t *testing.T) {
	session := NewSession(Config{
		Stream:   (&scriptedStream{}).open,
		Registry: stubRegistry(t),
	})
	session.Abort() // no active run; must not panic
}

func TestRunMaxTurnsBound(t *testing.T) {
	loop := &stubTool{name: "loop", mode: tools.ModeReadOnly,
		fn: func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`"again"`), nil
		}}

	// Every turn requests another tool call, forever.
	turns := make([][]schema.Increment, 8)
	for i := range turns {
		turns[i] = []schema.Increment{
			{ID: "i", ToolCalls: []schema.ToolCall{
				{ID: "tc", Name: "loop", Args: json.RawMessage(`{}`)},
			}, CallsDone: true},
		}
	}

	session := NewSession(Config{
		Stream:      (&scriptedStream{turns: turns}).open,
		Registry:    stubRegistry(t, loop),
		AutoApprove: true,
		Decoder:     fastTestDecoder(),
		MaxTurns:    3,
	})

	events := collectAll(session.Run(context.Background(), "spin"))

	if n := countEvents(events, EventTurnStart); n != 3 {
		t.Errorf("got %d turns, want 3", n)
	}
	if n := countEvents(events, EventError); n != 1 {
		t.Errorf("got %d error events, want the max-turns error", n)
	}
}
