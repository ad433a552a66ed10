package dsp

import "fmt"

// Control mirrors the hardware control register's software-visible bits
// relevant to the interpreter's own execution (the MMIO-facing control
// word, including the DMA/interrupt-mask bits the CPU side reads and
// writes, lives in package iface; this is the subset the core consults
// every step).
type Control struct {
	Interrupt bool // external-interrupt line, set by the CPU side
	ResetHigh bool
}

// preExecSnapshot captures the register state an extension opcode must
// see, taken before the main opcode executes (spec §4.6 step 5).
type preExecSnapshot struct {
	Acc40 [2]Acc40
	Addr  [4]uint16
}

func (in *Interpreter) snapshot() preExecSnapshot {
	return preExecSnapshot{Acc40: in.Regs.Acc40, Addr: in.Regs.Addressing}
}

// Interpreter is the DSP core: registers, memory, mailboxes, DMA
// configuration, and the main+extension opcode dispatch tables.
type Interpreter struct {
	Regs Registers
	Mem  Memory

	ToCPU   Mailbox // DSP -> CPU
	FromCPU Mailbox // CPU -> DSP

	DMA     DMA
	Control Control

	halted bool

	mainOps [256]opFunc
	extOps  [256]extFunc
}

type opFunc func(*Interpreter, Ins)
type extFunc func(*Interpreter, preExecSnapshot)

// New returns a freshly reset interpreter with its opcode tables built.
func New() *Interpreter {
	in := &Interpreter{Regs: NewRegisters()}
	in.initMainOps()
	in.initExtOps()
	return in
}

// Reset clears wrap registers, stacks, and mailboxes, and sets PC
// according to resetHigh, per spec. When resetHigh is false the caller
// must still perform the boot microcode DMA (BootMicrocodeDMA) — that
// needs access to main RAM, which this package does not own, so System
// is expected to call it right after Reset(false).
func (in *Interpreter) Reset(resetHigh bool) {
	in.Regs = NewRegisters()
	in.ToCPU = Mailbox{}
	in.FromCPU = Mailbox{}
	in.halted = false
	if resetHigh {
		in.Regs.PC = 0x8000
	} else {
		in.Regs.PC = 0x0000
	}
	in.Control.ResetHigh = resetHigh
}

// Halted reports whether the core is stopped.
func (in *Interpreter) Halted() bool { return in.halted }

// Halt stops execution; only a reset clears it.
func (in *Interpreter) Halt() { in.halted = true }

// Step executes exactly one instruction slot, following spec §4.6's
// eight-step sequence.
//
// BLOOP's repeat check happens at the bottom of the step, against the PC
// the just-executed instruction was fetched from: a one-instruction loop
// body pushes its own address as the loop head, so re-matching that same
// address after execution is exactly "the body ran once more."
func (in *Interpreter) Step() {
	if in.halted {
		return
	}

	if in.Regs.Status.ExternalInterruptEnable && in.Control.Interrupt {
		in.raiseException(7)
		return
	}

	pc := in.Regs.PC
	word := in.Mem.FetchInstruction(pc)
	ins := Ins{Base: word}

	length := uint16(1)
	if formTakesExtraWord(ins.Base) {
		ins.Extra = in.Mem.FetchInstruction(pc + 1)
		length = 2
	}

	pre := in.snapshot()

	op := in.mainOps[ins.Base>>8]
	if op == nil {
		panic(fmt.Sprintf("dsp: unimplemented main opcode %#04x at pc=%#04x", ins.Base, pc))
	}
	op(in, ins)

	if ins.hasExtension() {
		ext := in.extOps[ins.extension()]
		if ext == nil {
			panic(fmt.Sprintf("dsp: illegal extension opcode %#02x", ins.extension()))
		}
		ext(in, pre)
	}

	// CALL/JMP/RET assign the branch target directly into Regs.PC; any
	// other opcode leaves it at pc, so the fallthrough address is still
	// pc+length.
	nextPC := pc + length
	if in.Regs.PC != pc {
		nextPC = in.Regs.PC
	}
	if top, ok := in.Regs.LoopStack.top(); ok && top == pc {
		count, _ := in.Regs.LoopCount.top()
		count--
		if count == 0 {
			in.Regs.LoopStack.pop()
			in.Regs.LoopCount.pop()
			in.Regs.PC = nextPC
		} else {
			in.Regs.LoopCount.data[in.Regs.LoopCount.n-1] = count
			in.Regs.PC = top
		}
		return
	}

	in.Regs.PC = nextPC
}

func (in *Interpreter) raiseException(vector uint16) {
	in.Regs.CallStack.push(in.Regs.PC)
	in.Regs.DataStack.push(packStatus(in.Regs.Status))
	in.Regs.PC = vector * 2
}

func packStatus(s Status) uint16 {
	var v uint16
	set := func(bit uint, cond bool) {
		if cond {
			v |= 1 << bit
		}
	}
	set(0, s.Carry)
	set(1, s.Overflow)
	set(2, s.ArithmeticZero)
	set(3, s.Sign)
	set(4, s.AboveS32)
	set(5, s.TopTwoBitsEqual)
	set(6, s.LogicZero)
	set(7, s.OverflowSticky)
	set(9, s.InterruptEnable)
	set(11, s.ExternalInterruptEnable)
	set(13, s.DontDoubleResult)
	set(14, s.SignExtendTo40)
	set(15, s.UnsignedMultiply)
	return v
}
