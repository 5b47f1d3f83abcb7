// Package tools defines the tool collaborator surface: the Tool interface,
// the registry that classifies tools as read-only or mutating at
// registration, and a handful of builtin tools.
package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Mode classifies a tool's side-effect behavior. Read-only tools have no
// observable side effect and are safe to run concurrently with peers;
// mutating tools require ordering and exclusivity.
type Mode int

const (
	ModeReadOnly Mode = iota
	ModeMutating
)

func (m Mode) String() string {
	if m == ModeMutating {
		return "mutating"
	}
	return "read-only"
}

// Tool defines the tool interface.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Labeler is an optional interface for a human-readable tool label.
type Labeler interface {
	Label() string
}

// Spec describes a tool to the model.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Option configures a tool registration.
type Option func(*entry)

// WithTimeout sets a per-tool execution timeout. A timed-out tool raises
// a typed timeout error without blocking whole-request cancellation.
func WithTimeout(d time.Duration) Option {
	return func(e *entry) {
		e.timeout = d
	}
}
