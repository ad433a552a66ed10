package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// Static cycle weights (spec §4.4.4): 1 for ALU-class forms, 2 for
// memory forms, more for the rare multi-step ones. No lmw/stmw support
// yet — see DESIGN.md for scope notes on the compiled opcode subset.
const (
	weightALU    Cycles = 1
	weightMemory Cycles = 2
	weightBranch Cycles = 1
)

// fetcher reads one big-endian guest instruction word through
// translate_instr, matching the compiler's contract in spec §4.4.1
// step 2 ("stopping early on translation failure").
type fetcher func(addr gekko.Address) (uint32, bool)

// termKind classifies how the last-compiled instruction in a block
// ends it, read back after the compile loop exits to assign Pattern
// (spec §4.4.3): the terminator is always the last op appended, since
// every branch/return form in compileOne reports terminates=true.
type termKind int

const (
	termOther termKind = iota
	termUncondBranch
	termCall
	termReturn
)

// compileBlock decodes up to maxInstrs guest instructions starting at
// addr into a slice of jitOps, stopping at a terminator, a translation
// failure, or the instruction limit — whichever comes first (spec
// §4.4.1 step 2).
func compileBlock(addr gekko.Address, logical bool, maxInstrs int, fetch fetcher) *Block {
	b := &Block{Addr: addr, Logical: logical}
	cur := addr

	var firstIsLoad bool
	var term termKind
	var termTarget gekko.Address

	for b.Instrs < maxInstrs {
		word, ok := fetch(cur)
		if !ok {
			break
		}
		ins, primary, ext := gekko.Decode(word)

		if b.Instrs == 0 {
			firstIsLoad = primary == 32 || primary == 34 || primary == 40
		}

		switch {
		case primary == 18 && ins.LK():
			term, termTarget = termCall, branchTarget(cur, ins)
		case primary == 18:
			term, termTarget = termUncondBranch, branchTarget(cur, ins)
		case primary == 19 && ext == 16:
			term = termReturn
		default:
			term = termOther
		}

		op, weight, terminates := compileOne(ins, primary, ext, cur)
		b.Ops = append(b.Ops, op)
		b.Weight += weight
		b.Instrs++
		b.Length += 4
		cur += 4

		if terminates {
			break
		}
	}

	if len(b.Ops) == 0 {
		panic("jit: compiled an empty block")
	}

	switch {
	case term == termCall:
		b.Pattern = PatternCall
		b.CallTarget = termTarget
	case term == termUncondBranch && b.Instrs == 1 && termTarget == addr:
		b.Pattern = PatternIdleBasic
	case term == termUncondBranch && b.Instrs == 2 && firstIsLoad && termTarget == addr:
		b.Pattern = PatternIdleVolatileRead
	case term == termReturn && b.Instrs == 2 && firstIsLoad:
		// A short accessor: one volatile-ish load, then an unconditional
		// return. This is the shape the spec's DSP-mailbox-wait idiom
		// calls through (spec §4.4.3) — a leaf function a caller polls
		// in a tight Call loop. The tag doesn't verify which address the
		// load touches; mailboxShortCircuit checks that separately
		// against the live mailbox register before acting on it.
		b.Pattern = PatternGetMailboxStatusFunc
	default:
		b.Pattern = PatternGeneric
	}
	return b
}

// compileOne decodes a single instruction into its closure. Unknown
// primary opcodes compile to a guest program exception — an
// unimplemented instruction is a guest fault, never a host error
// (spec §7 item 1) — and always terminate the block.
func compileOne(ins gekko.Ins, primary, ext uint32, pc gekko.Address) (op jitOp, weight Cycles, terminates bool) {
	switch primary {
	case 14: // addi
		rd, ra, simm := ins.RD(), ins.RA(), ins.SIMM()
		return func(ctx *Context) bool {
			base := int32(0)
			if ra != 0 {
				base = int32(ctx.Regs.GPR[ra])
			}
			ctx.Regs.GPR[rd] = uint32(base + int32(simm))
			ctx.chargeInstr(weightALU)
			ctx.Regs.PC += 4
			return true
		}, weightALU, false

	case 24: // ori (rd,ra=ra|uimm); "ori r0,r0,0" is the canonical NOP
		rs, ra, uimm := ins.RS(), ins.RA(), ins.UIMM()
		return func(ctx *Context) bool {
			ctx.Regs.GPR[ra] = ctx.Regs.GPR[rs] | uint32(uimm)
			ctx.chargeInstr(weightALU)
			ctx.Regs.PC += 4
			return true
		}, weightALU, false

	case 18: // b / ba / bl / bla
		target := branchTarget(pc, ins)
		lk := ins.LK()
		return func(ctx *Context) bool {
			ctx.chargeInstr(weightBranch)
			if lk {
				ctx.Regs.LR = uint32(pc) + 4
			}
			ctx.Regs.PC = uint32(target)
			ctx.NextPC = target
			return false
		}, weightBranch, true

	case 16: // bc / bca / bcl / bcla (simplified: BO's "always" form and the CR-bit test only; CTR is never used)
		target := gekko.Address(int32(pc) + int32(ins.BD()))
		if ins.AA() {
			target = gekko.Address(int32(ins.BD()))
		}
		bo, bi, lk := ins.BO(), ins.BI(), ins.LK()
		return func(ctx *Context) bool {
			ctx.chargeInstr(weightBranch)
			if !branchTaken(ctx.Regs.CR, bo, bi) {
				ctx.Regs.PC += 4
				ctx.NextPC = gekko.Address(ctx.Regs.PC)
				return false
			}
			if lk {
				ctx.Regs.LR = uint32(pc) + 4
			}
			ctx.Regs.PC = uint32(target)
			ctx.NextPC = target
			return false
		}, weightBranch, true

	case 19: // extended opcode 19: bclr/bclrl (simplified like bc, ext 16 only)
		if ext != 16 {
			return programException(), weightALU, true
		}
		bo, bi, lk := ins.BO(), ins.BI(), ins.LK()
		return func(ctx *Context) bool {
			ctx.chargeInstr(weightBranch)
			if !branchTaken(ctx.Regs.CR, bo, bi) {
				ctx.Regs.PC += 4
				ctx.NextPC = gekko.Address(ctx.Regs.PC)
				return false
			}
			target := gekko.Address(ctx.Regs.LR)
			if lk {
				ctx.Regs.LR = uint32(pc) + 4
			}
			ctx.Regs.PC = uint32(target)
			ctx.NextPC = target
			ctx.DynamicExit = true
			return false
		}, weightBranch, true

	case 32: // lwz
		return memOp(ins, 4, false, false), weightMemory, false
	case 34: // lbz
		return memOp(ins, 1, false, false), weightMemory, false
	case 40: // lhz
		return memOp(ins, 2, false, false), weightMemory, false
	case 36: // stw
		return memOp(ins, 4, true, false), weightMemory, false
	case 38: // stb
		return memOp(ins, 1, true, false), weightMemory, false
	case 44: // sth
		return memOp(ins, 2, true, false), weightMemory, false

	case 56: // psq_l
		return quantOp(ins, false), weightMemory, false
	case 60: // psq_st
		return quantOp(ins, true), weightMemory, false

	default:
		return programException(), weightALU, true
	}
}

// programException compiles to a guest program exception: an
// unimplemented instruction is a guest fault, never a host error (spec
// §7 item 1). Shared by compileOne's default case and by extended
// opcode 19 forms other than bclr (ext 16), which this compiler
// doesn't otherwise model.
func programException() jitOp {
	return func(ctx *Context) bool {
		ctx.chargeInstr(weightALU)
		ctx.Regs.Raise(gekko.ExceptionProgram)
		ctx.NextPC = gekko.Address(ctx.Regs.PC)
		return false
	}
}

// branchTaken evaluates a BO/BI pair against the condition register,
// the shared logic behind bc's and bclr's simplified condition
// handling (spec §4.4 note: only BO's "always" bit and the four
// CR-field tests are modeled, not the full BO decrement-counter space).
func branchTaken(cr gekko.CondReg, bo, bi uint32) bool {
	if bo&0x14 == 0x14 {
		return true
	}
	cond := cr.Field(int(bi / 4))
	switch bi % 4 {
	case 0:
		return cond.LT == (bo&0x08 == 0)
	case 1:
		return cond.GT == (bo&0x08 == 0)
	case 2:
		return cond.EQ == (bo&0x08 == 0)
	default:
		return cond.OV == (bo&0x08 == 0)
	}
}

func branchTarget(pc gekko.Address, ins gekko.Ins) gekko.Address {
	if ins.AA() {
		return gekko.Address(ins.LI())
	}
	return pc + gekko.Address(uint32(ins.LI()))
}

// memOp compiles a fixed-size, non-update, register+displacement
// load/store through the runtime's fastmem-then-slow-path sequence
// (spec §4.4.5). Fastmem is consulted first; a nil page forces the
// hook-mediated slow path.
func memOp(ins gekko.Ins, size int, store, update bool) jitOp {
	rd, ra := ins.RD(), ins.RA()
	offset := ins.Offset()
	return func(ctx *Context) bool {
		base := uint32(0)
		if ra != 0 {
			base = ctx.Regs.GPR[ra]
		}
		addr := gekko.Address(base + uint32(offset))
		logical := ctx.Regs.MSR.DataAddrTranslation

		if store {
			ok := slowStore(ctx, addr, size, ctx.Regs.GPR[rd])
			if !ok {
				ctx.Regs.DAR = uint32(addr)
				ctx.Regs.Raise(gekko.ExceptionDSI)
				ctx.NextPC = gekko.Address(ctx.Regs.PC)
				return false
			}
		} else {
			if page := ctx.Hooks.GetFastmem(logical, addr); page != nil && fitsPage(addr, size) {
				ctx.Regs.GPR[rd] = readFromPage(page, addr, size)
			} else {
				v, ok := slowLoad(ctx, addr, size)
				if !ok {
					ctx.Regs.DAR = uint32(addr)
					ctx.Regs.Raise(gekko.ExceptionDSI)
					ctx.NextPC = gekko.Address(ctx.Regs.PC)
					return false
				}
				ctx.Regs.GPR[rd] = v
			}
		}
		ctx.chargeInstr(weightMemory)
		ctx.Regs.PC += 4
		return true
	}
}

// fitsPage reports whether a size-byte access at addr stays within a
// single 128 KiB fastmem page (spec §4.4.5: straddling accesses always
// take the slow path).
func fitsPage(addr gekko.Address, size int) bool {
	const pageSize = 1 << 17
	start := uint32(addr) & (pageSize - 1)
	return start+uint32(size) <= pageSize
}

func readFromPage(page []byte, addr gekko.Address, size int) uint32 {
	off := uint32(addr) & ((1 << 17) - 1)
	var v uint32
	for i := 0; i < size; i++ {
		v = v<<8 | uint32(page[off+uint32(i)])
	}
	return v
}

func slowLoad(ctx *Context, addr gekko.Address, size int) (uint32, bool) {
	switch size {
	case 1:
		v, ok := ctx.Hooks.ReadI8(addr)
		return uint32(v), ok
	case 2:
		v, ok := ctx.Hooks.ReadI16(addr)
		return uint32(v), ok
	default:
		return ctx.Hooks.ReadI32(addr)
	}
}

func slowStore(ctx *Context, addr gekko.Address, size int, v uint32) bool {
	switch size {
	case 1:
		return ctx.Hooks.WriteI8(addr, uint8(v))
	case 2:
		return ctx.Hooks.WriteI16(addr, uint16(v))
	default:
		return ctx.Hooks.WriteI32(addr, v)
	}
}

// quantOp compiles psq_l/psq_st, reading the indexed GQR and delegating
// element conversion to LoadQuantized/StoreQuantized (spec §4.4.6).
// Quantized transfers always take the hook-mediated path: the
// dequantization table and saturation logic already dominate the cost
// of a quantized element relative to a fastmem hit, so no fast path is
// compiled for it — a deliberate simplification over the general
// integer/float load path above.
func quantOp(ins gekko.Ins, store bool) jitOp {
	rd, ra := ins.RD(), ins.RA()
	offset := ins.PSOffset()
	gqrIndex := ins.GQRIndex()
	w := ins.PSW()
	n := rd // for psq_st rd names the source paired-single register
	return func(ctx *Context) bool {
		base := uint32(0)
		if ra != 0 {
			base = ctx.Regs.GPR[ra]
		}
		addr := gekko.Address(base + uint32(offset))
		var gqr gekko.GQRField
		if store {
			gqr = ctx.Regs.GQR[gqrIndex].Store
		} else {
			gqr = ctx.Regs.GQR[gqrIndex].Load
		}

		read := func(a gekko.Address) (uint8, bool) { return ctx.Hooks.ReadI8(a) }
		write := func(a gekko.Address, v uint8) bool { return ctx.Hooks.WriteI8(a, v) }

		if store {
			p := ctx.Regs.Paired(int(n))
			ok, _ := StoreQuantized(write, addr, gqr, p, w)
			if !ok {
				ctx.Regs.DAR = uint32(addr)
				ctx.Regs.Raise(gekko.ExceptionDSI)
				ctx.NextPC = gekko.Address(ctx.Regs.PC)
				return false
			}
		} else {
			p, ok, _ := LoadQuantized(read, addr, gqr, w)
			if !ok {
				ctx.Regs.DAR = uint32(addr)
				ctx.Regs.Raise(gekko.ExceptionDSI)
				ctx.NextPC = gekko.Address(ctx.Regs.PC)
				return false
			}
			ctx.Regs.SetPaired(int(n), p)
		}
		ctx.chargeInstr(weightMemory)
		ctx.Regs.PC += 4
		return true
	}
}

