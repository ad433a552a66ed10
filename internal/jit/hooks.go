package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// LinkInfo is what FollowLink inspects to decide whether to take an
// already-populated link slot this call (spec §4.5).
type LinkInfo struct {
	CyclesUsed      Cycles
	InstrsUsed      int
	CyclesRemaining Cycles
	InstrsRemaining int
	TargetPattern   Pattern
}

// Hooks is the fixed table of callbacks generated block code calls
// into for anything it cannot inline, binding the JIT to the rest of
// the system (spec §4.5, §C5). It is a plain struct of function
// fields — the Go equivalent of a stable ABI function-pointer table —
// bound once per New and never re-entered through recursive block
// execution.
//
// try_link and follow_link are in spec.md's C5 hook table too, but
// they only ever need the JIT's own block-mapping tables — in the
// original, hooks exist so machine code compiled to a separate buffer
// can call back across a real ABI boundary; our "compiled" blocks are
// ordinary Go closures already running inside this package, so link
// resolution is a private JIT method (driver.go's tryLink/followLink)
// rather than a pluggable field System would have no tables to
// implement it with.
type Hooks struct {
	GetRegisters func() *gekko.Regs

	// GetFastmem returns the page-indexed fastmem slice for a logical
	// (if logical=true) or physical address, or nil on a miss, forcing
	// the slow path.
	GetFastmem func(logical bool, addr gekko.Address) []byte

	ReadI8   func(addr gekko.Address) (uint8, bool)
	ReadI16  func(addr gekko.Address) (uint16, bool)
	ReadI32  func(addr gekko.Address) (uint32, bool)
	ReadI64  func(addr gekko.Address) (uint64, bool)
	WriteI8  func(addr gekko.Address, v uint8) bool
	WriteI16 func(addr gekko.Address, v uint16) bool
	WriteI32 func(addr gekko.Address, v uint32) bool
	WriteI64 func(addr gekko.Address, v uint64) bool

	ReadQuantized  func(addr gekko.Address, gqr gekko.GQR, w bool) (gekko.Paired, bool)
	WriteQuantized func(addr gekko.Address, gqr gekko.GQR, p gekko.Paired, w bool) bool

	InvalidateICache func(addr gekko.Address)
	CacheDMA         func(ramAddr, cacheAddr gekko.Address, length uint32, toCache bool)

	MSRChanged  func(gekko.MSR)
	IBATChanged func(bats [4]gekko.Bat)
	DBATChanged func(bats [4]gekko.Bat)

	TBRead    func() uint64
	TBChanged func(uint64)
	DECRead   func() uint32
	DECChanged func(uint32)
}
