// Package observer provides execution observability hooks for the tool
// pipeline.
package observer

import (
	"time"

	"github.com/voocel/agentcore/schema"
)

// Observer receives pipeline notifications. Implementations must be safe
// for concurrent use; read-only tools run in parallel.
type Observer interface {
	OnAuthorize(call schema.ToolCall, outcome string)
	OnToolStart(call schema.ToolCall)
	OnToolEnd(call schema.ToolCall, result schema.ToolResult, elapsed time.Duration)
	OnFlush(reads, writes int)
	OnCancel(gen int64)
	OnCloseIncomplete(err error)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) OnAuthorize(schema.ToolCall, string)                           {}
func (Nop) OnToolStart(schema.ToolCall)                                   {}
func (Nop) OnToolEnd(schema.ToolCall, schema.ToolResult, time.Duration)   {}
func (Nop) OnFlush(int, int)                                              {}
func (Nop) OnCancel(int64)                                                {}
func (Nop) OnCloseIncomplete(error)                                       {}

var _ Observer = Nop{}
