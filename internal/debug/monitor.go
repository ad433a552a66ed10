// Package debug is a scriptable machine monitor: breakpoints with
// Lua-evaluated conditions, named macros, and disassembly/register
// dumps, generalizing legacy/debug_monitor.go's MachineMonitor (whose
// BreakpointCondition field stored a condition string but never
// evaluated one, and whose macros map[string][]string stored command
// lists with no interpreter behind them) into a single-CPU monitor
// over a system.System.
package debug

import (
	"fmt"
	"log"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/gekko/disasm"
	"github.com/hemisphere-go/hemisphere/internal/jit"
	"github.com/hemisphere-go/hemisphere/internal/system"
)

// Breakpoint is a stop address with an optional Lua condition. An
// empty Condition always stops, matching the teacher's unconditional
// breakpoints; a non-empty one is evaluated by ShouldBreak against the
// live register file and only stops when it returns a truthy value.
type Breakpoint struct {
	Address   gekko.Address
	Condition string
}

// OutputLine mirrors the teacher's scrollback entry shape, minus the
// packed color (this monitor has no renderer of its own; callers that
// want color can interpret Level themselves).
type OutputLine struct {
	Text  string
	Level string // "info", "break", "error"
}

// Monitor is the debugger state machine for one system.System.
type Monitor struct {
	mu sync.Mutex

	sys    *system.System
	logger *log.Logger

	active      bool
	breakpoints map[gekko.Address]*Breakpoint
	macros      map[string][]string

	lua *lua.LState

	output    []OutputLine
	maxOutput int
	history   []string
}

// New creates a Monitor over sys. The returned Monitor owns a private
// gopher-lua state for condition/macro evaluation; callers should
// Close it when done.
func New(sys *system.System, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		sys:         sys,
		logger:      logger,
		breakpoints: make(map[gekko.Address]*Breakpoint),
		macros:      make(map[string][]string),
		lua:         lua.NewState(),
		maxOutput:   500,
	}
}

// Close releases the Lua state.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lua.Close()
}

// Activate marks the monitor active and prints the register/disassembly
// banner the teacher's Activate showed on entry.
func (m *Monitor) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return
	}
	m.active = true
	m.appendOutput("MACHINE MONITOR - commands: step, registers, disassemble, break, clear, macro, run, quit", "info")
	m.showRegistersLocked()
	m.showDisassemblyLocked(8)
}

// Deactivate marks the monitor inactive; the caller is responsible for
// resuming execution.
func (m *Monitor) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// IsActive reports whether the monitor is currently shown.
func (m *Monitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetBreakpoint installs or replaces a breakpoint at addr.
func (m *Monitor) SetBreakpoint(addr gekko.Address, condition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakpoints[addr] = &Breakpoint{Address: addr, Condition: condition}
}

// ClearBreakpoint removes a breakpoint at addr, if any.
func (m *Monitor) ClearBreakpoint(addr gekko.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakpoints, addr)
}

// Addresses returns the breakpoint address list, suitable for passing
// straight to jit.JIT.Execute's breakpoints argument.
func (m *Monitor) Addresses() []gekko.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	addrs := make([]gekko.Address, 0, len(m.breakpoints))
	for a := range m.breakpoints {
		addrs = append(addrs, a)
	}
	return addrs
}

// ShouldBreak reports whether execution stopped at addr because of a
// breakpoint whose condition holds (or has none). Called after
// jit.JIT.Execute returns with ExitBreakpoint — a plain address match
// without this check would stop on every hit, defeating conditional
// breakpoints entirely.
func (m *Monitor) ShouldBreak(addr gekko.Address) bool {
	m.mu.Lock()
	bp, ok := m.breakpoints[addr]
	m.mu.Unlock()
	if !ok {
		return false
	}
	if bp.Condition == "" {
		return true
	}
	hold, err := m.evalCondition(bp.Condition)
	if err != nil {
		m.mu.Lock()
		m.appendOutput(fmt.Sprintf("breakpoint condition error at %#x: %v", uint32(addr), err), "error")
		m.mu.Unlock()
		return true // fail open: surface the break rather than silently running past it
	}
	return hold
}

// evalCondition runs expr as a Lua expression with the live register
// file bound as globals (pc, r0..r31, cr, lr, ctr) and returns its
// truthiness. Conditions are pure reads: nothing in the register
// binding is written back, so a condition script can't corrupt guest
// state.
func (m *Monitor) evalCondition(expr string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindRegistersLocked()
	if err := m.lua.DoString("return (" + expr + ")"); err != nil {
		return false, err
	}
	ret := m.lua.Get(-1)
	m.lua.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (m *Monitor) bindRegistersLocked() {
	regs := m.sys.Regs
	m.lua.SetGlobal("pc", lua.LNumber(uint32(regs.PC)))
	m.lua.SetGlobal("lr", lua.LNumber(regs.LR))
	m.lua.SetGlobal("ctr", lua.LNumber(regs.CTR))
	m.lua.SetGlobal("cr", lua.LNumber(uint32(regs.CR)))
	for i, v := range regs.GPR {
		m.lua.SetGlobal(fmt.Sprintf("r%d", i), lua.LNumber(v))
	}
}

// DefineMacro stores a named list of monitor commands, to be replayed
// by RunMacro. This is the evaluating counterpart of the teacher's
// inert macros map[string][]string.
func (m *Monitor) DefineMacro(name string, commands []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(commands))
	copy(cp, commands)
	m.macros[name] = cp
}

// RunMacro replays a previously-defined macro's commands through exec,
// which is normally a Monitor.Dispatch bound to the same monitor — kept
// as a parameter so Dispatch's own command table can be unit-tested
// independently of macro expansion.
func (m *Monitor) RunMacro(name string, exec func(cmd string) error) error {
	m.mu.Lock()
	commands, ok := m.macros[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("debug: no macro named %q", name)
	}
	for _, cmd := range commands {
		if err := exec(cmd); err != nil {
			return fmt.Errorf("debug: macro %q: %w", name, err)
		}
	}
	return nil
}

// Step runs exactly one instruction through the JIT and appends a
// disassembly line for the instruction just retired, matching the
// teacher's Activate/handleBreakpointHit practice of re-showing
// disassembly after every stop.
func (m *Monitor) Step() jit.ExecuteResult {
	before := m.sys.Regs.PC
	res := m.sys.JIT.Step()
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := disasm.Disassemble(m.readBytesLocked, before, 1)
	if len(lines) == 1 {
		m.appendOutput(fmt.Sprintf("%#010x: %-24s %s", uint32(lines[0].Address), lines[0].HexBytes, lines[0].Mnemonic), "info")
	}
	return res
}

// ShowRegisters appends a register dump to the output log.
func (m *Monitor) ShowRegisters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showRegistersLocked()
}

func (m *Monitor) showRegistersLocked() {
	regs := m.sys.Regs
	m.appendOutput(fmt.Sprintf("PC=%#010x LR=%#010x CTR=%#010x CR=%#010x", uint32(regs.PC), regs.LR, regs.CTR, regs.CR), "info")
	for i := 0; i < 32; i += 4 {
		m.appendOutput(fmt.Sprintf("r%-2d=%#010x r%-2d=%#010x r%-2d=%#010x r%-2d=%#010x",
			i, regs.GPR[i], i+1, regs.GPR[i+1], i+2, regs.GPR[i+2], i+3, regs.GPR[i+3]), "info")
	}
}

// ShowDisassembly appends count disassembled lines starting at PC.
func (m *Monitor) ShowDisassembly(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showDisassemblyLocked(count)
}

func (m *Monitor) showDisassemblyLocked(count int) {
	lines := disasm.Disassemble(m.readBytesLocked, m.sys.Regs.PC, count)
	for _, l := range lines {
		marker := "  "
		if uint32(l.Address) == uint32(m.sys.Regs.PC) {
			marker = "->"
		}
		m.appendOutput(fmt.Sprintf("%s %#010x: %-12s %s", marker, uint32(l.Address), l.HexBytes, l.Mnemonic), "info")
	}
}

func (m *Monitor) readBytesLocked(addr gekko.Address, size int) []byte {
	buf := make([]byte, size)
	for i := 0; i < size; i++ {
		buf[i] = m.sys.Mem.Read8(addr + gekko.Address(i))
	}
	return buf
}

func (m *Monitor) appendOutput(text, level string) {
	m.output = append(m.output, OutputLine{Text: text, Level: level})
	if len(m.output) > m.maxOutput {
		m.output = m.output[len(m.output)-m.maxOutput:]
	}
	m.logger.Printf("[monitor] %s", text)
}

// Output returns a copy of the current scrollback buffer.
func (m *Monitor) Output() []OutputLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutputLine, len(m.output))
	copy(out, m.output)
	return out
}
