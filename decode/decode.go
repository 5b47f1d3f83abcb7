// Package decode turns raw tool-call argument text into canonical JSON.
// Streaming models occasionally emit malformed or concatenated payloads as
// a generation artifact; decode-class failures retry with exponential
// backoff before surfacing a typed malformed-arguments failure.
package decode

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/voocel/agentcore/retry"
	"github.com/voocel/agentcore/schema"
)

// Default bounds. Backoff doubles from the base up to the cap.
const (
	DefaultMaxRetries = 10
	DefaultMaxPayload = 256
)

// Decoder parses tool-call argument payloads.
type Decoder struct {
	// MaxRetries bounds decode-class retries; a payload that never parses
	// fails after exactly this many retries (MaxRetries+1 attempts).
	MaxRetries int
	// MaxPayload caps how much of the original payload the failure keeps.
	MaxPayload int
	// Backoff supplies the delay between attempts. Its MaxAttempts field
	// is not used here; MaxRetries governs the bound.
	Backoff *retry.Config
}

// New creates a Decoder with the default bounds.
func New() *Decoder {
	return &Decoder{
		MaxRetries: DefaultMaxRetries,
		MaxPayload: DefaultMaxPayload,
		Backoff:    retry.Exponential(DefaultMaxRetries, 100*time.Millisecond, 5*time.Second, false),
	}
}

// Decode fetches and parses an argument payload, retrying decode-class
// failures. It returns the canonical arguments and the number of retries
// performed. Errors from fetch itself, and anything that is not a parse
// failure, surface immediately without retrying.
func (d *Decoder) Decode(ctx context.Context, tool string, fetch func() (string, error)) (json.RawMessage, int, error) {
	maxRetries := d.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := d.Backoff
	if backoff == nil {
		backoff = retry.Exponential(maxRetries, 100*time.Millisecond, 5*time.Second, false)
	}

	var lastRaw string
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		raw, err := fetch()
		if err != nil {
			return nil, attempt - 1, err
		}
		lastRaw = raw

		args, err := parsePayload(raw)
		if err == nil {
			return args, attempt - 1, nil
		}
		if !schema.IsRetryable(err) {
			return nil, attempt - 1, err
		}

		if attempt <= maxRetries {
			if werr := backoff.Wait(ctx, attempt); werr != nil {
				return nil, attempt - 1, werr
			}
		}
	}

	return nil, maxRetries, &schema.MalformedArgsError{
		Tool:    tool,
		Payload: d.truncate(lastRaw),
		Retries: maxRetries,
	}
}

// DecodeString decodes a fixed payload.
func (d *Decoder) DecodeString(ctx context.Context, tool, raw string) (json.RawMessage, int, error) {
	return d.Decode(ctx, tool, func() (string, error) { return raw, nil })
}

func (d *Decoder) truncate(raw string) string {
	max := d.MaxPayload
	if max <= 0 {
		max = DefaultMaxPayload
	}
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}

// parsePayload parses one argument payload. An empty payload decodes to an
// empty object. Concatenated objects (two JSON objects back to back, a
// known generation artifact) are merged in order, later keys winning.
func parsePayload(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage("{}"), nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var objs []map[string]json.RawMessage
	for dec.More() {
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			return nil, &schema.ParseError{Err: err}
		}
		objs = append(objs, obj)
	}

	switch len(objs) {
	case 0:
		return nil, &schema.ParseError{Err: errors.New("no JSON object in payload")}
	case 1:
		return json.RawMessage(trimmed), nil
	}

	merged := make(map[string]json.RawMessage)
	for _, obj := range objs {
		for k, v := range obj {
			merged[k] = v
		}
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, &schema.ParseError{Err: err}
	}
	return out, nil
}
