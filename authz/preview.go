package authz

import (
	"strings"
	"unicode/utf8"
)

// Preview caps. The rendering layer receives at most MaxPreviewChars of
// content plus the fixed truncation marker, never unbounded payloads.
const (
	MaxPreviewChars     = 2000
	MaxPreviewLines     = 40
	MaxPreviewLineWidth = 200

	TruncationMarker = "\n... (truncated)"
)

// ConfirmationRequest is handed to the confirmation UI. Preview is bounded
// by hard caps on total characters, line count, and per-line width. Label
// is the human-readable name to render; it defaults to the tool name.
type ConfirmationRequest struct {
	Tool      string
	Label     string
	Preview   string
	Truncated bool
}

// NewConfirmationRequest builds a bounded request from the raw content a
// tool wants to show (typically its argument payload or a diff).
func NewConfirmationRequest(tool, raw string) *ConfirmationRequest {
	preview, truncated := boundPreview(raw)
	return &ConfirmationRequest{
		Tool:      tool,
		Label:     tool,
		Preview:   preview,
		Truncated: truncated,
	}
}

// boundPreview enforces the caps in order: per-line width, line count,
// total characters. The marker is appended whenever any cap trips.
func boundPreview(raw string) (string, bool) {
	truncated := false

	lines := strings.Split(raw, "\n")
	if len(lines) > MaxPreviewLines {
		lines = lines[:MaxPreviewLines]
		truncated = true
	}
	for i, line := range lines {
		if len(line) > MaxPreviewLineWidth {
			lines[i] = cutAtRune(line, MaxPreviewLineWidth)
			truncated = true
		}
	}

	out := strings.Join(lines, "\n")
	if len(out) > MaxPreviewChars {
		out = cutAtRune(out, MaxPreviewChars)
		truncated = true
	}

	if truncated {
		out += TruncationMarker
	}
	return out, truncated
}

// cutAtRune truncates s to at most max bytes without splitting a rune, so
// the preview is always valid UTF-8.
func cutAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
