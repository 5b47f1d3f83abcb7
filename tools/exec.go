package tools

import (
	"context"
	"errors"

	"github.com/voocel/agentcore/schema"
)

// Execute looks up and runs a single tool call, applying the registered
// per-tool timeout. The returned result always carries the call ID; the
// error is also reported separately so callers can apply their failure
// policy without parsing result text.
func (r *Registry) Execute(ctx context.Context, call schema.ToolCall) (schema.ToolResult, error) {
	r.mu.RLock()
	e, exists := r.entries[call.Name]
	r.mu.RUnlock()

	if !exists {
		err := schema.NewToolError(call.Name, "execute", schema.ErrToolNotFound)
		return schema.ToolResult{ID: call.ID, Error: err.Error()}, err
	}

	execCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	output, err := e.tool.Execute(execCtx, call.Args)
	if err != nil {
		if e.timeout > 0 && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = schema.NewToolError(call.Name, "execute", schema.ErrToolTimeout)
		} else {
			err = schema.NewToolError(call.Name, "execute", err)
		}
		return schema.ToolResult{ID: call.ID, Error: err.Error()}, err
	}

	return schema.ToolResult{ID: call.ID, Result: output}, nil
}
