package authz

import "github.com/voocel/agentcore/tools"

func allow() *Result {
	r := Allow
	return &r
}

func deny() *Result {
	r := Deny
	return &r
}

// PlanModeRule denies any mutating tool while the read-only plan mode is
// active. Highest priority so it wins over every allow source.
type PlanModeRule struct{}

func (r *PlanModeRule) Name() string  { return "plan_mode" }
func (r *PlanModeRule) Priority() int { return 100 }

func (r *PlanModeRule) Evaluate(c *Context) *Result {
	if c.PlanMode && c.Mode == tools.ModeMutating {
		return deny()
	}
	return nil
}

// DenyListRule denies tools on the user deny list.
type DenyListRule struct{}

func (r *DenyListRule) Name() string  { return "deny_list" }
func (r *DenyListRule) Priority() int { return 50 }

func (r *DenyListRule) Evaluate(c *Context) *Result {
	if _, ok := c.DenyList[c.Tool]; ok {
		return deny()
	}
	return nil
}

// AllowListRule allows tools on the user allow list.
type AllowListRule struct{}

func (r *AllowListRule) Name() string  { return "allow_list" }
func (r *AllowListRule) Priority() int { return 40 }

func (r *AllowListRule) Evaluate(c *Context) *Result {
	if _, ok := c.AllowList[c.Tool]; ok {
		return allow()
	}
	return nil
}

// AutoApproveRule allows everything when the global skip-confirmations
// flag is set. Lowest priority; deny rules still win.
type AutoApproveRule struct{}

func (r *AutoApproveRule) Name() string  { return "auto_approve" }
func (r *AutoApproveRule) Priority() int { return 10 }

func (r *AutoApproveRule) Evaluate(c *Context) *Result {
	if c.AutoApprove {
		return allow()
	}
	return nil
}
