package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// Context is the opaque per-call runtime context passed to every jitOp
// (spec §4.4.1 step 3's "runtime context"). It plays the role an
// emitted-code ABI struct would play in a real codegen backend: the
// live register pointer, the hooks table, and the running budgets a
// block's closures consult and mutate as they execute.
type Context struct {
	Regs  *gekko.Regs
	Hooks *Hooks

	CyclesBudget Cycles
	InstrBudget  int
	CyclesUsed   Cycles
	InstrsUsed   int

	NextPC       gekko.Address
	DynamicExit  bool // set when a terminator can't resolve a static successor
	ExitReason   ExitReason
	HitBreakpoint bool

	breakpoints []gekko.Address
}

func (c *Context) budgetExhausted() bool {
	return c.CyclesUsed >= c.CyclesBudget || c.InstrsUsed >= c.InstrBudget
}

func (c *Context) atBreakpoint(addr gekko.Address) bool {
	for _, bp := range c.breakpoints {
		if bp == addr {
			return true
		}
	}
	return false
}

func (c *Context) chargeInstr(weight Cycles) {
	c.CyclesUsed += weight
	c.InstrsUsed++
}
