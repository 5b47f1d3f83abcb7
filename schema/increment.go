package schema

// Increment is one unit of model output yielded by the response stream.
// A single response is delivered as a sequence of increments; each may
// carry a text delta, tool calls, or both. The model exposes tool calls
// only within one increment at a time, so CallsDone marks the point where
// it has finished emitting calls for the current increment and queued
// work may be flushed.
type Increment struct {
	ID        string     `json:"id"`
	Delta     string     `json:"delta,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CallsDone bool       `json:"calls_done,omitempty"`
	Err       error      `json:"-"`
}

// HasCalls reports whether the increment carries tool calls.
func (i Increment) HasCalls() bool {
	return len(i.ToolCalls) > 0
}
