// Package llm adapts the litellm client to the increment stream the
// controller consumes.
package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/voocel/litellm"

	"github.com/voocel/agentcore/schema"
	"github.com/voocel/agentcore/tools"
)

// Client wraps a litellm client for one configured model.
type Client struct {
	client *litellm.Client
	model  string
}

// Config configures the model transport.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// NewClient creates a litellm-backed transport for the configured model.
func NewClient(cfg Config) *Client {
	var client *litellm.Client

	switch {
	case isAnthropicModel(cfg.Model):
		if cfg.BaseURL != "" {
			client = litellm.New(
				litellm.WithAnthropic(cfg.APIKey, cfg.BaseURL),
				litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature),
			)
		} else {
			client = litellm.New(
				litellm.WithAnthropic(cfg.APIKey),
				litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature),
			)
		}
	case isGeminiModel(cfg.Model):
		if cfg.BaseURL != "" {
			client = litellm.New(
				litellm.WithGemini(cfg.APIKey, cfg.BaseURL),
				litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature),
			)
		} else {
			client = litellm.New(
				litellm.WithGemini(cfg.APIKey),
				litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature),
			)
		}
	default:
		// OpenAI and OpenAI-compatible endpoints.
		if cfg.BaseURL != "" {
			client = litellm.New(
				litellm.WithOpenAI(cfg.APIKey, cfg.BaseURL),
				litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature),
			)
		} else {
			client = litellm.New(
				litellm.WithOpenAI(cfg.APIKey),
				litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature),
			)
		}
	}

	return &Client{client: client, model: cfg.Model}
}

// Stream opens one model response as an increment stream. litellm
// completions are request/response, so the response arrives as a text
// increment followed by a tool-call increment carrying the calls-done
// marker. The returned handle exposes an abort hook that cancels the
// in-flight completion.
func (c *Client) Stream(ctx context.Context, msgs []schema.Message, specs []tools.Spec) (<-chan schema.Increment, any, error) {
	ch := make(chan schema.Increment, 4)
	reqCtx, cancel := context.WithCancel(ctx)
	h := &abortHandle{cancel: cancel}

	go func() {
		defer close(ch)
		defer cancel()

		resp, err := c.client.Complete(reqCtx, c.buildRequest(msgs, specs))
		if err != nil {
			ch <- schema.Increment{ID: uuid.NewString(), Err: err}
			return
		}

		id := uuid.NewString()
		if resp.Content != "" {
			ch <- schema.Increment{ID: id, Delta: resp.Content}
		}
		ch <- schema.Increment{
			ID:        id,
			ToolCalls: convertToolCalls(resp.ToolCalls),
			CallsDone: true,
		}
	}()

	return ch, h, nil
}

// abortHandle is the transport handle handed to the stream controller.
type abortHandle struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (h *abortHandle) Abort() {
	h.once.Do(h.cancel)
}

func (c *Client) buildRequest(msgs []schema.Message, specs []tools.Spec) *litellm.Request {
	return &litellm.Request{
		Model:    c.model,
		Messages: convertMessages(msgs),
		Tools:    convertSpecs(specs),
	}
}

func convertMessages(msgs []schema.Message) []litellm.Message {
	result := make([]litellm.Message, len(msgs))
	for i, msg := range msgs {
		result[i] = litellm.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == schema.RoleTool {
			if id, ok := msg.Metadata["tool_call_id"].(string); ok {
				result[i].ToolCallID = id
			}
		}
	}
	return result
}

func convertSpecs(specs []tools.Spec) []litellm.Tool {
	if len(specs) == 0 {
		return nil
	}
	result := make([]litellm.Tool, len(specs))
	for i, spec := range specs {
		result[i] = litellm.Tool{
			Type: "function",
			Function: litellm.FunctionSchema{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		}
	}
	return result
}

func convertToolCalls(calls []litellm.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]schema.ToolCall, len(calls))
	for i, tc := range calls {
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		result[i] = schema.ToolCall{
			ID:   id,
			Name: tc.Function.Name,
			Args: []byte(tc.Function.Arguments),
		}
	}
	return result
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(model, "claude")
}

func isGeminiModel(model string) bool {
	return strings.HasPrefix(model, "gemini")
}
