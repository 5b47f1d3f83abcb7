package schema

import (
	"errors"
	"fmt"
)

var (
	// Tool-related errors
	ErrToolNotFound      = errors.New("tool not found")
	ErrToolAlreadyExists = errors.New("tool already exists")
	ErrToolTimeout       = errors.New("tool execution timeout")

	// ErrStreamCancelled reports that stream consumption stopped early
	// because the run was cancelled or its generation superseded. Normal
	// termination of the request, never a failure.
	ErrStreamCancelled = errors.New("stream cancelled")

	// Common errors
	ErrInvalidInput = errors.New("invalid input")
)

// DeniedError reports that authorization refused a tool call. Feedback,
// when set, is routed back into the conversation so the model can adjust.
type DeniedError struct {
	Tool     string
	Rule     string
	Feedback string
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("tool %s: denied", e.Tool)
	if e.Rule != "" {
		msg += fmt.Sprintf(" by %s", e.Rule)
	}
	if e.Feedback != "" {
		msg += ": " + e.Feedback
	}
	return msg
}

// NewDeniedError creates a DeniedError.
func NewDeniedError(tool, rule, feedback string) *DeniedError {
	return &DeniedError{Tool: tool, Rule: rule, Feedback: feedback}
}

// ParseError is a decode-class failure of a tool-call argument payload.
// It is the only retryable error class.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse tool arguments: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MalformedArgsError reports that a tool-call argument payload stayed
// unparseable after the retry bound was exhausted. Payload holds a
// truncated copy of the original text.
type MalformedArgsError struct {
	Tool    string
	Payload string
	Retries int
}

func (e *MalformedArgsError) Error() string {
	return fmt.Sprintf("tool %s: malformed arguments after %d retries: %q", e.Tool, e.Retries, e.Payload)
}

// ToolError describes a per-item tool execution failure.
type ToolError struct {
	ToolName string
	Op       string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %v", e.ToolName, e.Op, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a ToolError.
func NewToolError(toolName, op string, err error) *ToolError {
	return &ToolError{ToolName: toolName, Op: op, Err: err}
}

// AbortError reports an explicit user abort; it terminates the request
// cleanly and is never retried.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	if e.Reason == "" {
		return "aborted by user"
	}
	return "aborted by user: " + e.Reason
}

// CloseIncompleteError reports that closure of the model transport could
// not be confirmed. Logged and non-fatal.
type CloseIncompleteError struct {
	Err error
}

func (e *CloseIncompleteError) Error() string {
	if e.Err == nil {
		return "transport close not confirmed"
	}
	return fmt.Sprintf("transport close not confirmed: %v", e.Err)
}

func (e *CloseIncompleteError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error belongs to a retryable class.
// Only decode-class parse failures retry; denials, aborts and execution
// failures surface immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// IsDenied reports whether err is or wraps a DeniedError.
func IsDenied(err error) bool {
	var denied *DeniedError
	return errors.As(err, &denied)
}

// IsAbort reports whether err is or wraps an AbortError.
func IsAbort(err error) bool {
	var abort *AbortError
	return errors.As(err, &abort)
}
