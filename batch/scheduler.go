// Package batch accumulates tool invocations across stream increments and
// dispatches them with read/write-aware scheduling. The model surfaces
// tool calls one increment at a time with no native cross-increment
// grouping; the scheduler rebuilds that batching so read-only calls spread
// over several increments still run concurrently.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/voocel/agentcore/authz"
	"github.com/voocel/agentcore/observer"
	"github.com/voocel/agentcore/schema"
	"github.com/voocel/agentcore/tools"
)

const defaultMaxWorkers = 4

// Config configures a Scheduler. The scheduler is request-scoped: create
// one per request and drain it before the request completes.
type Config struct {
	Registry  *tools.Registry
	Engine    *authz.Engine
	Confirmer authz.Confirmer // nil approves without interaction
	Observer  observer.Observer

	// MaxWorkers bounds the per-flush worker pool for read-only calls.
	MaxWorkers int

	// Per-request authorization flags and user lists.
	PlanMode    bool
	AutoApprove bool
	AllowList   []string
	DenyList    []string
}

// Scheduler queues tool calls and flushes them in partitioned order:
// read-only calls concurrently through a bounded pool, mutating calls
// strictly sequenced after the reads drain. Results always come back in
// submission order.
type Scheduler struct {
	cfg Config

	mu      sync.Mutex
	pending []pendingCall
	nextSeq int
}

type pendingCall struct {
	call    schema.ToolCall
	failErr error // set when the call failed before scheduling (e.g. malformed args)
}

// NewScheduler creates a scheduler for one request.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	if cfg.Observer == nil {
		cfg.Observer = observer.Nop{}
	}
	return &Scheduler{cfg: cfg}
}

// Submit appends a call to the open batch, assigning its submission
// sequence. Submitting a mutating call flushes immediately: everything
// queued before it must complete first, so no mutation observes a
// not-yet-performed read and no read reorders past a mutation it follows.
// The returned results are non-nil only when a flush ran.
func (s *Scheduler) Submit(ctx context.Context, call schema.ToolCall) ([]schema.ToolResult, error) {
	s.enqueue(call, nil)

	if mode, ok := s.cfg.Registry.ModeOf(call.Name); ok && mode == tools.ModeMutating {
		return s.Flush(ctx)
	}
	return nil, nil
}

// SubmitFailed reserves the call's slot in submission order with a preset
// failure, so a call that never became schedulable (malformed arguments)
// still reports its result in the right position.
func (s *Scheduler) SubmitFailed(call schema.ToolCall, err error) {
	s.enqueue(call, err)
}

func (s *Scheduler) enqueue(call schema.ToolCall, failErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call.Seq = s.nextSeq
	s.nextSeq++
	s.pending = append(s.pending, pendingCall{call: call, failErr: failErr})
}

// Pending returns the number of queued calls.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type item struct {
	idx  int // slot in the batch, equals submission order
	call schema.ToolCall
	mode tools.Mode
}

// Flush authorizes and executes every queued call. Authorization and
// confirmation run serially in submission order before any dispatch, so
// confirmation prompts never interleave. Results are reassembled in
// submission order; execution concurrency is never visible as reordering.
// The returned error is non-nil only for a user abort; per-item failures
// are recorded in their result slots.
func (s *Scheduler) Flush(ctx context.Context) ([]schema.ToolResult, error) {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(queued) == 0 {
		return nil, nil
	}

	slots := make([]schema.ToolResult, len(queued))
	var reads, writes []item
	var abortErr error

	for i, pc := range queued {
		call := pc.call
		if pc.failErr != nil {
			slots[i] = schema.ToolResult{ID: call.ID, Error: pc.failErr.Error()}
			continue
		}
		if abortErr != nil {
			slots[i] = skipped(call, "request aborted")
			continue
		}

		mode, ok := s.cfg.Registry.ModeOf(call.Name)
		if !ok {
			err := schema.NewToolError(call.Name, "authorize", schema.ErrToolNotFound)
			slots[i] = schema.ToolResult{ID: call.ID, Error: err.Error()}
			continue
		}

		result, denyRule := s.authorize(call, mode)
		s.cfg.Observer.OnAuthorize(call, result.String())

		switch result {
		case authz.Deny:
			denied := schema.NewDeniedError(call.Name, denyRule, denyFeedback(denyRule, mode))
			slots[i] = schema.ToolResult{ID: call.ID, Error: denied.Error()}
			continue

		case authz.Confirm:
			resp, err := s.confirm(ctx, call)
			if err != nil {
				slots[i] = schema.ToolResult{ID: call.ID, Error: err.Error()}
				continue
			}
			switch resp.Action {
			case authz.ActionReject:
				denied := schema.NewDeniedError(call.Name, "user", resp.Feedback)
				slots[i] = schema.ToolResult{ID: call.ID, Error: denied.Error()}
				continue
			case authz.ActionAbort:
				abortErr = &schema.AbortError{Reason: "confirmation aborted"}
				slots[i] = skipped(call, "request aborted")
				continue
			}
		}

		if mode == tools.ModeMutating {
			writes = append(writes, item{idx: i, call: call, mode: mode})
		} else {
			reads = append(reads, item{idx: i, call: call, mode: mode})
		}
	}

	// An abort voids the whole request: calls approved before the abort
	// answer have not started yet, and they never do.
	if abortErr != nil {
		for _, it := range reads {
			slots[it.idx] = skipped(it.call, "request aborted")
		}
		for _, it := range writes {
			slots[it.idx] = skipped(it.call, "request aborted")
		}
		return slots, abortErr
	}

	s.cfg.Observer.OnFlush(len(reads), len(writes))

	// Read-only subset: bounded pool, one slot written exactly once per
	// worker, one item's failure never aborts siblings. The pool exists
	// for this flush only.
	s.runReads(ctx, reads, slots)

	// Mutating subset starts only after every read has drained, then runs
	// in strict sequence order.
	s.runWrites(ctx, writes, slots)

	return slots, abortErr
}

func (s *Scheduler) authorize(call schema.ToolCall, mode tools.Mode) (authz.Result, string) {
	if s.cfg.Engine == nil {
		return authz.Confirm, ""
	}
	c := authz.NewContext(call.Name, call.Args, mode, s.cfg.PlanMode, s.cfg.AutoApprove, s.cfg.AllowList, s.cfg.DenyList)
	return s.cfg.Engine.Authorize(c)
}

func (s *Scheduler) confirm(ctx context.Context, call schema.ToolCall) (authz.Response, error) {
	if s.cfg.Confirmer == nil {
		return authz.Response{Action: authz.ActionApprove}, nil
	}
	req := authz.NewConfirmationRequest(call.Name, string(call.Args))
	if tool, ok := s.cfg.Registry.Get(call.Name); ok {
		if l, ok := tool.(tools.Labeler); ok {
			req.Label = l.Label()
		}
	}
	return s.cfg.Confirmer.Confirm(ctx, req)
}

func (s *Scheduler) runReads(ctx context.Context, reads []item, slots []schema.ToolResult) {
	if len(reads) == 0 {
		return
	}

	max := s.cfg.MaxWorkers
	if max > len(reads) {
		max = len(reads)
	}
	sem := make(chan struct{}, max)

	var wg sync.WaitGroup
	for _, it := range reads {
		wg.Add(1)
		go func(it item) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				slots[it.idx] = schema.ToolResult{ID: it.call.ID, Error: ctx.Err().Error()}
				return
			}
			slots[it.idx], _ = s.execute(ctx, it.call)
		}(it)
	}
	wg.Wait()
}

// runWrites executes the mutating subset in sequence order. A failure
// halts the remaining items; each skipped call gets an error result so
// nothing is silently dropped.
func (s *Scheduler) runWrites(ctx context.Context, writes []item, slots []schema.ToolResult) {
	halted := false
	for _, it := range writes {
		if halted {
			slots[it.idx] = skipped(it.call, "prior mutating tool failed")
			continue
		}
		if ctx.Err() != nil {
			slots[it.idx] = schema.ToolResult{ID: it.call.ID, Error: ctx.Err().Error()}
			halted = true
			continue
		}

		result, err := s.execute(ctx, it.call)
		slots[it.idx] = result
		if err != nil {
			halted = true
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, call schema.ToolCall) (schema.ToolResult, error) {
	s.cfg.Observer.OnToolStart(call)
	start := time.Now()
	result, err := s.cfg.Registry.Execute(ctx, call)
	s.cfg.Observer.OnToolEnd(call, result, time.Since(start))
	return result, err
}

func skipped(call schema.ToolCall, reason string) schema.ToolResult {
	return schema.ToolResult{ID: call.ID, Error: "skipped: " + reason}
}

func denyFeedback(rule string, mode tools.Mode) string {
	switch rule {
	case "plan_mode":
		return "plan mode is active; " + mode.String() + " tools are unavailable until the user leaves plan mode"
	case "deny_list":
		return "this tool is on the user's deny list"
	}
	return ""
}
