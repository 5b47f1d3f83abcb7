// Package agentcore is the tool-execution control plane of an interactive
// LLM coding agent: it authorizes requested actions, batches and schedules
// tool invocations emitted incrementally by a streaming model, and cancels
// in-flight work cleanly.
package agentcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voocel/agentcore/authz"
	"github.com/voocel/agentcore/batch"
	"github.com/voocel/agentcore/decode"
	"github.com/voocel/agentcore/generation"
	"github.com/voocel/agentcore/observer"
	"github.com/voocel/agentcore/schema"
	"github.com/voocel/agentcore/stream"
	"github.com/voocel/agentcore/tools"
)

const defaultMaxTurns = 10

// StreamFunc opens one model response stream for the given conversation.
// The second return value is the transport handle used for best-effort
// closing; it may expose none, some, or all of the stream close hooks.
type StreamFunc func(ctx context.Context, msgs []schema.Message, specs []tools.Spec) (<-chan schema.Increment, any, error)

// Config configures a Session.
type Config struct {
	Stream   StreamFunc
	Registry *tools.Registry

	// Rules for the authorization engine; DefaultRules when nil.
	Rules     []authz.Rule
	Confirmer authz.Confirmer

	Observer observer.Observer
	Decoder  *decode.Decoder

	SystemPrompt string
	MaxWorkers   int
	MaxTurns     int

	// Per-request authorization flags and user lists.
	PlanMode    bool
	AutoApprove bool
	AllowList   []string
	DenyList    []string
}

// Session drives the request loop: stream increments in, tool batches
// out, ordered results back into the conversation.
type Session struct {
	cfg     Config
	engine  *authz.Engine
	tracker *generation.Tracker

	mu         sync.Mutex
	messages   []schema.Message
	controller *stream.Controller
}

// NewSession creates a session. The rule set is fixed for the session's
// lifetime; only the per-request flags vary between evaluations.
func NewSession(cfg Config) *Session {
	if cfg.Observer == nil {
		cfg.Observer = observer.Nop{}
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decode.New()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	rules := cfg.Rules
	if rules == nil {
		rules = authz.DefaultRules()
	}

	s := &Session{
		cfg:     cfg,
		engine:  authz.NewEngine(rules...),
		tracker: generation.NewTracker(),
	}
	if cfg.SystemPrompt != "" {
		s.messages = append(s.messages, schema.Message{
			ID:        uuid.NewString(),
			Role:      schema.RoleSystem,
			Content:   cfg.SystemPrompt,
			Timestamp: time.Now(),
		})
	}
	return s
}

// Tracker exposes the generation tracker shared with collaborators.
func (s *Session) Tracker() *generation.Tracker {
	return s.tracker
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Abort runs the cancellation protocol for the in-flight run: invalidate
// the generation (rendering stops immediately), cancel the owning task,
// and request a best-effort stream close. This is the entry point for the
// key-event collaborator's cancel signal.
func (s *Session) Abort() {
	s.tracker.Abort()

	s.mu.Lock()
	ctrl := s.controller
	s.mu.Unlock()
	if ctrl != nil {
		ctrl.RequestClose()
	}
}

// Run starts one request with a fresh generation and returns its event
// channel. The streaming loop runs as an independently cancellable task,
// never inline in the caller.
func (s *Session) Run(ctx context.Context, prompt string) <-chan Event {
	ch := make(chan Event, 128)

	gen := s.tracker.Next()
	runCtx, cancel := context.WithCancel(ctx)
	s.tracker.SetActive(cancel)

	go func() {
		defer close(ch)
		defer s.tracker.ClearActive()
		defer cancel()
		s.run(runCtx, gen, prompt, ch)
	}()

	return ch
}

func (s *Session) run(ctx context.Context, gen generation.Gen, prompt string, ch chan<- Event) {
	s.append(gen, schema.Message{
		ID:        uuid.NewString(),
		Role:      schema.RoleUser,
		Content:   prompt,
		Timestamp: time.Now(),
	})
	emit(ch, Event{Type: EventRunStart, Gen: gen})

	sched := batch.NewScheduler(batch.Config{
		Registry:    s.cfg.Registry,
		Engine:      s.engine,
		Confirmer:   s.cfg.Confirmer,
		Observer:    s.cfg.Observer,
		MaxWorkers:  s.cfg.MaxWorkers,
		PlanMode:    s.cfg.PlanMode,
		AutoApprove: s.cfg.AutoApprove,
		AllowList:   s.cfg.AllowList,
		DenyList:    s.cfg.DenyList,
	})

	for turn := 0; ; turn++ {
		if turn >= s.cfg.MaxTurns {
			emit(ch, Event{Type: EventError, Gen: gen, Err: fmt.Errorf("max turns (%d) reached", s.cfg.MaxTurns)})
			emit(ch, Event{Type: EventRunEnd, Gen: gen})
			return
		}
		emit(ch, Event{Type: EventTurnStart, Gen: gen})

		assistant, results, abortErr, runErr := s.turn(ctx, gen, sched, ch)
		if runErr != nil {
			emit(ch, Event{Type: EventError, Gen: gen, Err: runErr})
			emit(ch, Event{Type: EventRunEnd, Gen: gen})
			return
		}

		if ctx.Err() != nil || !s.tracker.Valid(gen) {
			s.notifyCancelled(gen, ch)
			return
		}

		// Commit the assistant turn, then its tool results in submission
		// order. Concurrency is never visible here.
		s.append(gen, assistant)
		emit(ch, Event{Type: EventMessageEnd, Gen: gen, Message: assistant})

		for _, r := range results {
			msg := resultMessage(r)
			s.append(gen, msg)
			emit(ch, Event{Type: EventToolResult, Gen: gen, Result: r})
			emit(ch, Event{Type: EventMessageEnd, Gen: gen, Message: msg})
		}
		emit(ch, Event{Type: EventTurnEnd, Gen: gen, Message: assistant})

		if abortErr != nil {
			s.notifyCancelled(gen, ch)
			return
		}
		if len(results) == 0 {
			emit(ch, Event{Type: EventRunEnd, Gen: gen})
			return
		}
	}
}

// turn consumes one model response stream and drains the tool batches it
// produces. abortErr is a user abort from a confirmation round-trip;
// runErr is a transport failure.
func (s *Session) turn(ctx context.Context, gen generation.Gen, sched *batch.Scheduler, ch chan<- Event) (assistant schema.Message, results []schema.ToolResult, abortErr, runErr error) {
	src, handle, err := s.cfg.Stream(ctx, s.Messages(), s.cfg.Registry.Specs())
	if err != nil {
		return schema.Message{}, nil, nil, fmt.Errorf("open stream: %w", err)
	}

	ctrl := stream.NewController(ctx, src, handle, s.tracker, gen, s.cfg.Observer)
	s.setController(ctrl)
	defer s.setController(nil)

	assistant = schema.Message{
		ID:        uuid.NewString(),
		Role:      schema.RoleAssistant,
		Timestamp: time.Now(),
	}

consume:
	for inc := range ctrl.Increments() {
		if inc.Err != nil {
			runErr = inc.Err
			break consume
		}
		if inc.Delta != "" {
			assistant.Content += inc.Delta
			emit(ch, Event{Type: EventMessageUpdate, Gen: gen, Delta: inc.Delta, Message: assistant})
		}

		if inc.HasCalls() {
			for _, call := range inc.ToolCalls {
				if call.ID == "" {
					call.ID = uuid.NewString()
				}
				call.IncrementID = inc.ID
				assistant.AddToolCall(call)

				raw := string(call.Args)
				args, _, derr := s.cfg.Decoder.Decode(ctx, call.Name, func() (string, error) { return raw, nil })
				if derr != nil {
					// Malformed arguments hold their slot so the result order
					// still matches emission order.
					sched.SubmitFailed(call, derr)
					continue
				}
				call.Args = args

				res, serr := sched.Submit(ctx, call)
				results = append(results, res...)
				if serr != nil {
					abortErr = serr
					break consume
				}
			}
		}

		if inc.CallsDone {
			res, serr := sched.Flush(ctx)
			results = append(results, res...)
			if serr != nil {
				abortErr = serr
				break consume
			}
		}
	}

	if abortErr != nil || runErr != nil {
		ctrl.RequestClose()
		return assistant, results, abortErr, runErr
	}

	// Stream ended without a calls-done marker; drain the remainder.
	res, serr := sched.Flush(ctx)
	results = append(results, res...)
	return assistant, results, serr, nil
}

// notifyCancelled produces the terminal cancellation notification.
// Emitted exactly once per run; a cancellation never ends in silence.
func (s *Session) notifyCancelled(gen generation.Gen, ch chan<- Event) {
	s.cfg.Observer.OnCancel(int64(gen))
	emit(ch, Event{Type: EventRunCancelled, Gen: gen})
	emit(ch, Event{Type: EventRunEnd, Gen: gen})
}

// append commits a message to the conversation unless the generation has
// been superseded; a stale generation mutates nothing.
func (s *Session) append(gen generation.Gen, msg schema.Message) {
	if !s.tracker.Valid(gen) {
		return
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *Session) setController(c *stream.Controller) {
	s.mu.Lock()
	s.controller = c
	s.mu.Unlock()
}

func resultMessage(r schema.ToolResult) schema.Message {
	content := string(r.Result)
	if r.IsError() {
		content = r.Error
	}
	content, _, _, _ = tools.TruncateHead(content, 0, 0)

	msg := schema.Message{
		ID:        uuid.NewString(),
		Role:      schema.RoleTool,
		Content:   content,
		Timestamp: time.Now(),
	}
	msg.SetMetadata("tool_call_id", r.ID)
	msg.SetMetadata("is_error", r.IsError())
	return msg
}
