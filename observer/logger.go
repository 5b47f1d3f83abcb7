package observer

import (
	"io"
	"log"
	"time"

	"github.com/voocel/agentcore/schema"
)

// Logger provides basic log output for pipeline activity.
type Logger struct {
	logger *log.Logger
}

// NewLogger creates a Logger writing to out.
func NewLogger(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{
		logger: log.New(out, "agentcore ", log.LstdFlags|log.Lmicroseconds),
	}
}

func (o *Logger) OnAuthorize(call schema.ToolCall, outcome string) {
	o.logger.Printf("authorize tool=%s call_id=%s seq=%d outcome=%s", call.Name, call.ID, call.Seq, outcome)
}

func (o *Logger) OnToolStart(call schema.ToolCall) {
	o.logger.Printf("tool start tool=%s call_id=%s seq=%d args_len=%d", call.Name, call.ID, call.Seq, len(call.Args))
}

func (o *Logger) OnToolEnd(call schema.ToolCall, result schema.ToolResult, elapsed time.Duration) {
	if result.IsError() {
		o.logger.Printf("tool error tool=%s call_id=%s seq=%d elapsed=%s err=%s", call.Name, call.ID, call.Seq, elapsed, result.Error)
		return
	}
	o.logger.Printf("tool end tool=%s call_id=%s seq=%d elapsed=%s result_len=%d", call.Name, call.ID, call.Seq, elapsed, len(result.Result))
}

func (o *Logger) OnFlush(reads, writes int) {
	o.logger.Printf("flush reads=%d writes=%d", reads, writes)
}

func (o *Logger) OnCancel(gen int64) {
	o.logger.Printf("cancel generation=%d", gen)
}

func (o *Logger) OnCloseIncomplete(err error) {
	o.logger.Printf("transport close incomplete err=%v", err)
}

var _ Observer = (*Logger)(nil)
