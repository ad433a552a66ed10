// Package jit implements the PowerPC block compiler and execution
// driver (spec components C4/C5): per-address compiled blocks, fastmem
// fast-path memory access, block linking and invalidation, idle-loop
// detection, and the runtime hook table generated code calls into for
// everything it cannot inline.
//
// Go has no idiomatic equivalent of a Cranelift-style machine-code
// backend in the retrieval pack, so "compiled code" here means what the
// teacher's own opcode dispatch tables already are one level up:
// decode each guest instruction once into a closure (jitOp) and store
// the resulting slice as the block body. Execution is "run the
// closures in order" instead of "jump into machine code" — decode-once,
// execute-many, the same complexity trade a real JIT makes, expressed
// with what Go actually gives us.
package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// Cycles mirrors gekko.Cycles; kept as a distinct name in this package's
// exported surface so call sites read as JIT-domain quantities.
type Cycles = gekko.Cycles

// Pattern classifies a block at compile time for specialized runtime
// handling (spec §4.4.3).
type Pattern int

const (
	PatternGeneric Pattern = iota
	PatternIdleBasic
	PatternIdleVolatileRead
	PatternCall
	PatternGetMailboxStatusFunc
)

func (p Pattern) String() string {
	switch p {
	case PatternIdleBasic:
		return "idle-basic"
	case PatternIdleVolatileRead:
		return "idle-volatile-read"
	case PatternCall:
		return "call"
	case PatternGetMailboxStatusFunc:
		return "get-mailbox-status-func"
	default:
		return "generic"
	}
}

// ExitReason reports why execute/step returned control to the driver.
type ExitReason int

const (
	ExitBudget ExitReason = iota
	ExitBreakpoint
	ExitIdle
	ExitDynamicDispatch
)
