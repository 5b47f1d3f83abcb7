// Package authz classifies tool invocations as allow, confirm, or deny
// through an ordered rule chain. Rules are registered once at startup;
// only the per-request context flags vary between evaluations.
package authz

import (
	"encoding/json"
	"sort"

	"github.com/voocel/agentcore/tools"
)

// Result is the tri-state authorization outcome. Allow executes silently,
// Confirm requires a synchronous approval round-trip, Deny never executes.
type Result int

const (
	Confirm Result = iota
	Allow
	Deny
)

func (r Result) String() string {
	switch r {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "confirm"
	}
}

// Context is the immutable snapshot a rule evaluates against.
type Context struct {
	Tool        string
	Args        json.RawMessage
	Mode        tools.Mode
	PlanMode    bool
	AutoApprove bool
	AllowList   map[string]struct{}
	DenyList    map[string]struct{}
}

// NewContext builds an evaluation context from per-request flags and user
// allow/deny lists.
func NewContext(tool string, args json.RawMessage, mode tools.Mode, planMode, autoApprove bool, allow, deny []string) *Context {
	c := &Context{
		Tool:        tool,
		Args:        args,
		Mode:        mode,
		PlanMode:    planMode,
		AutoApprove: autoApprove,
		AllowList:   make(map[string]struct{}, len(allow)),
		DenyList:    make(map[string]struct{}, len(deny)),
	}
	for _, name := range allow {
		if name != "" {
			c.AllowList[name] = struct{}{}
		}
	}
	for _, name := range deny {
		if name != "" {
			c.DenyList[name] = struct{}{}
		}
	}
	return c
}

// Rule inspects a single tool invocation. Evaluate returns nil when the
// rule has no opinion. Rules must be pure: no side effects, no mutation
// of the context.
type Rule interface {
	Evaluate(c *Context) *Result
	Priority() int
	Name() string
}

// Engine evaluates rules in two passes: a deny pass where the first Deny
// short-circuits everything, then an allow pass where the first Allow
// wins. No decision yields Confirm.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine. Rules are ordered by descending priority;
// the set is fixed for the engine's lifetime.
func NewEngine(rules ...Rule) *Engine {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() > ordered[j].Priority()
	})
	return &Engine{rules: ordered}
}

// Authorize classifies the invocation described by c. A Deny from any rule
// forces the final classification to Deny irrespective of allow-producing
// rules or their priority. DeniedBy reports which rule denied.
func (e *Engine) Authorize(c *Context) (Result, string) {
	for _, r := range e.rules {
		if res := r.Evaluate(c); res != nil && *res == Deny {
			return Deny, r.Name()
		}
	}
	for _, r := range e.rules {
		if res := r.Evaluate(c); res != nil && *res == Allow {
			return Allow, r.Name()
		}
	}
	return Confirm, ""
}

// DefaultRules returns the standard rule chain: plan-mode restriction on
// top, then the user deny list, the user allow list, and auto-approve.
func DefaultRules() []Rule {
	return []Rule{
		&PlanModeRule{},
		&DenyListRule{},
		&AllowListRule{},
		&AutoApproveRule{},
	}
}
