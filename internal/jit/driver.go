package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// Config bounds a single block's compilation (spec §4.4.1).
type Config struct {
	InstrsPerBlock int
}

func defaultConfig() Config { return Config{InstrsPerBlock: 64} }

// JIT is the block compiler and execution driver (spec components
// C4/C5): it owns the block arena, the logical/physical mapping
// tables, and the hooks binding it to the rest of the system.
type JIT struct {
	cfg   Config
	hooks *Hooks

	arena   []*Block // dense id -> block; invalidation never shrinks this
	logical *mappingTable
	phys    *mappingTable
}

// New binds a JIT to its hook table. Hooks must not be nil; every
// field is expected to be populated by the caller (System).
func New(hooks *Hooks, cfg Config) *JIT {
	if cfg.InstrsPerBlock == 0 {
		cfg = defaultConfig()
	}
	return &JIT{
		cfg:     cfg,
		hooks:   hooks,
		logical: newMappingTable(),
		phys:    newMappingTable(),
	}
}

func (j *JIT) table(logical bool) *mappingTable {
	if logical {
		return j.logical
	}
	return j.phys
}

// ExecuteResult is execute/step's return value (spec §4.4.1).
type ExecuteResult struct {
	Instructions int
	Cycles       Cycles
	Exit         ExitReason
}

// Execute runs compiled blocks starting at the current PC until the
// cycle or instruction budget is exhausted, a breakpoint is hit, or an
// idle loop is detected (spec §4.4.1, redesign-flag item 2: a
// zero-cycle budget is a no-op).
func (j *JIT) Execute(cyclesBudget Cycles, instrBudget int, breakpoints []gekko.Address) ExecuteResult {
	if cyclesBudget <= 0 || instrBudget <= 0 {
		return ExecuteResult{}
	}

	ctx := &Context{
		Regs:         j.hooks.GetRegisters(),
		Hooks:        j.hooks,
		CyclesBudget: cyclesBudget,
		InstrBudget:  instrBudget,
		breakpoints:  breakpoints,
	}

	for {
		pc := gekko.Address(ctx.Regs.PC)
		logical := ctx.Regs.MSR.InstrAddrTranslation

		maxInstrs := j.cfg.InstrsPerBlock
		if bound, ok := nearestBreakpointBound(pc, breakpoints); ok && bound < maxInstrs {
			maxInstrs = bound
		}
		if maxInstrs == 0 {
			ctx.HitBreakpoint = true
			ctx.ExitReason = ExitBreakpoint
			break
		}

		b := j.lookupOrCompile(pc, logical, maxInstrs)
		if b == nil {
			ctx.ExitReason = ExitDynamicDispatch
			break
		}

		if b.Pattern == PatternCall && j.mailboxShortCircuit(b, ctx, logical) {
			ctx.ExitReason = ExitIdle
			break
		}

		j.runBlock(b, ctx)

		// A block whose sole instruction is an unconditional branch to
		// its own start address, or whose two instructions are a load
		// followed by that same self-branch, is, by construction, an
		// infinite spinloop: one execution already advanced PC right
		// back to where it started, so there is nothing left to learn by
		// running it again. Arrest it here and report the full
		// remaining budget as consumed (spec §4.4.3, scenario S4).
		if (b.Pattern == PatternIdleBasic || b.Pattern == PatternIdleVolatileRead) && gekko.Address(ctx.Regs.PC) == pc {
			ctx.CyclesUsed = ctx.CyclesBudget
			ctx.ExitReason = ExitIdle
			break
		}

		if ctx.budgetExhausted() {
			ctx.ExitReason = ExitBudget
			break
		}
		if ctx.atBreakpoint(gekko.Address(ctx.Regs.PC)) {
			ctx.HitBreakpoint = true
			ctx.ExitReason = ExitBreakpoint
			break
		}
	}

	return ExecuteResult{Instructions: ctx.InstrsUsed, Cycles: ctx.CyclesUsed, Exit: ctx.ExitReason}
}

// Step forces a single one-instruction block with link-following
// disabled (spec §4.4.8).
func (j *JIT) Step() ExecuteResult {
	ctx := &Context{
		Regs:         j.hooks.GetRegisters(),
		Hooks:        j.hooks,
		CyclesBudget: 1 << 30,
		InstrBudget:  1,
	}
	pc := gekko.Address(ctx.Regs.PC)
	logical := ctx.Regs.MSR.InstrAddrTranslation
	b := j.lookupOrCompile(pc, logical, 1)
	if b != nil {
		j.runBlock(b, ctx)
	}
	return ExecuteResult{Instructions: ctx.InstrsUsed, Cycles: ctx.CyclesUsed, Exit: ExitBudget}
}

func nearestBreakpointBound(pc gekko.Address, breakpoints []gekko.Address) (int, bool) {
	best := -1
	for _, bp := range breakpoints {
		if bp <= pc {
			continue
		}
		words := int(uint32(bp-pc) / 4)
		if best == -1 || words < best {
			best = words
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// lookupOrCompile finds a stored block at addr satisfying maxInstrs, or
// compiles and stores a fresh one (spec §4.4.1 steps 1-2).
func (j *JIT) lookupOrCompile(addr gekko.Address, logical bool, maxInstrs int) *Block {
	table := j.table(logical)
	if m, ok := table.lookup(addr); ok {
		b := j.arena[m.id]
		if b.Instrs <= maxInstrs {
			return b
		}
	}

	fetch := j.fetcherFor(logical)
	b := compileBlock(addr, logical, maxInstrs, fetch)
	id := blockID(len(j.arena))
	b.ID = id
	j.arena = append(j.arena, b)
	table.insert(addr, b.Length, id)
	return b
}

// MailboxStatusAddr is the well-known CPU->DSP mailbox status register
// address the GetMailboxStatusFunc short-circuit polls (spec §4.4.3).
// Kept here rather than imported from internal/system to avoid a
// dependency cycle (system already depends on jit); internal/system's
// mmio.go binds the same literal address to the live mailbox state.
const MailboxStatusAddr = gekko.Address(0xCC00_5000)

// mailboxReadyBit is the packed-word position of Mailbox.Ready's bit
// (internal/dsp.Mailbox's bit 31, high half bit 15, shifted into a
// 32-bit register read — see internal/system/mmio.go's mmioRead32).
const mailboxReadyBit = uint32(1) << 31

// mailboxShortCircuit implements the spec's DSP-mailbox-wait idiom: a
// Call block whose target is itself tagged GetMailboxStatusFunc, polled
// in a tight loop, teaches the caller nothing new on repeated
// execution once the mailbox it's checking is already in the state the
// caller is waiting to observe go away — every future call would read
// the identical status and branch the identical way. Skip straight to
// budget exhaustion instead of running it again.
//
// This only fires once the mailbox's ready bit is set; a func tagged
// GetMailboxStatusFunc that happens not to touch the mailbox at all
// harmlessly never sees this short-circuit take effect, since it still
// has to run to discover whatever it actually does.
func (j *JIT) mailboxShortCircuit(b *Block, ctx *Context, logical bool) bool {
	callee := j.lookupOrCompile(b.CallTarget, logical, j.cfg.InstrsPerBlock)
	if callee == nil || callee.Pattern != PatternGetMailboxStatusFunc {
		return false
	}
	status, ok := ctx.Hooks.ReadI32(MailboxStatusAddr)
	if !ok || status&mailboxReadyBit == 0 {
		return false
	}
	ctx.CyclesUsed = ctx.CyclesBudget
	ctx.InstrsUsed = 1
	return true
}

func (j *JIT) fetcherFor(logical bool) fetcher {
	return func(addr gekko.Address) (uint32, bool) {
		page := j.hooks.GetFastmem(logical, addr)
		if page == nil || !fitsPage(addr, 4) {
			v, ok := j.hooks.ReadI32(addr)
			return v, ok
		}
		return readFromPage(page, addr, 4), true
	}
}

// runBlock executes a block's ops in order, then handles its
// terminator per spec §4.4.2: attempt the inline link slot for a
// statically known successor, or fall back to dynamic dispatch.
func (j *JIT) runBlock(b *Block, ctx *Context) {
	for _, op := range b.Ops {
		if !op(ctx) {
			break
		}
	}

	if ctx.DynamicExit {
		return
	}

	if !b.Link.Filled {
		j.tryLink(ctx.NextPC, b.Logical, &b.Link)
	}

	if b.Link.Filled {
		info := LinkInfo{
			CyclesUsed:      ctx.CyclesUsed,
			InstrsUsed:      ctx.InstrsUsed,
			CyclesRemaining: ctx.CyclesBudget - ctx.CyclesUsed,
			InstrsRemaining: ctx.InstrBudget - ctx.InstrsUsed,
			TargetPattern:   b.Link.TargetPattern,
		}
		j.followLink(info, &b.Link)
	}
}

// tryLink populates an empty link slot for addr and registers the
// back-reference on the target block, if one is already compiled
// (spec §4.5's try_link).
func (j *JIT) tryLink(addr gekko.Address, logical bool, slot *LinkSlot) {
	m, ok := j.table(logical).lookup(addr)
	if !ok {
		return
	}
	target := j.arena[m.id]
	slot.Filled = true
	slot.TargetID = m.id
	slot.TargetEntry = nil // resolved through the arena by id, not a raw function pointer
	slot.TargetPattern = target.Pattern
	target.addBackRef(slot)
}

// followLink decides whether to take an already-populated link slot
// this call (spec §4.5's follow_link): respect the remaining budget,
// and never re-enter an idle-pattern target (idle arrest is already
// handled in Execute's own loop by checking b.Pattern after runBlock,
// so followLink's only job is the budget check).
func (j *JIT) followLink(info LinkInfo, slot *LinkSlot) bool {
	return info.CyclesRemaining > 0 && info.InstrsRemaining > 0
}

// InvalidateICache clears every block (logical and physical) whose
// instruction interval overlaps the 32-byte line containing addr
// (spec §4.4.1's invalidate_icache, §6's cache-line size).
func (j *JIT) InvalidateICache(addr gekko.Address) {
	for _, removed := range j.logical.invalidateLine(addr) {
		j.arena[removed.id].invalidateLinks()
	}
	for _, removed := range j.phys.invalidateLine(addr) {
		j.arena[removed.id].invalidateLinks()
	}
}

// InvalidateWrite invalidates every mapping (both tables) whose
// interval contains addr, the path taken when JIT-emitted code writes
// through memory rather than through an explicit invalidate
// instruction (spec §4.4.7).
func (j *JIT) InvalidateWrite(addr gekko.Address) {
	for _, removed := range j.logical.invalidateAddr(addr) {
		j.arena[removed.id].invalidateLinks()
	}
	for _, removed := range j.phys.invalidateAddr(addr) {
		j.arena[removed.id].invalidateLinks()
	}
}

// InvalidateAll performs the IBAT-rebuild blanket clear (spec §4.4.7).
func (j *JIT) InvalidateAll() {
	for _, removed := range j.logical.clear() {
		j.arena[removed.id].invalidateLinks()
	}
	for _, removed := range j.phys.clear() {
		j.arena[removed.id].invalidateLinks()
	}
}
