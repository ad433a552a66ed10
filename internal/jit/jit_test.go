package jit

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// fakeGuest is a flat byte-addressed memory backing both the slow-path
// hooks and, optionally, a fastmem page, so tests can exercise either
// path of memOp/quantOp without a real system package.
type fakeGuest struct {
	regs gekko.Regs
	mem  map[uint32]byte
}

func newFakeGuest() *fakeGuest {
	return &fakeGuest{mem: make(map[uint32]byte)}
}

func (g *fakeGuest) writeBytes(addr uint32, bs ...byte) {
	for i, b := range bs {
		g.mem[addr+uint32(i)] = b
	}
}

func (g *fakeGuest) hooks() *Hooks {
	return &Hooks{
		GetRegisters: func() *gekko.Regs { return &g.regs },
		GetFastmem: func(logical bool, addr gekko.Address) []byte { return nil },
		ReadI8: func(addr gekko.Address) (uint8, bool) {
			v, ok := g.mem[uint32(addr)]
			return v, ok
		},
		ReadI16: func(addr gekko.Address) (uint16, bool) {
			hi, ok1 := g.mem[uint32(addr)]
			lo, ok2 := g.mem[uint32(addr)+1]
			return uint16(hi)<<8 | uint16(lo), ok1 && ok2
		},
		ReadI32: func(addr gekko.Address) (uint32, bool) {
			var v uint32
			for i := 0; i < 4; i++ {
				b, ok := g.mem[uint32(addr)+uint32(i)]
				if !ok {
					return 0, false
				}
				v = v<<8 | uint32(b)
			}
			return v, true
		},
		ReadI64: func(addr gekko.Address) (uint64, bool) { return 0, false },
		WriteI8: func(addr gekko.Address, v uint8) bool {
			g.mem[uint32(addr)] = v
			return true
		},
		WriteI16: func(addr gekko.Address, v uint16) bool {
			g.mem[uint32(addr)] = byte(v >> 8)
			g.mem[uint32(addr)+1] = byte(v)
			return true
		},
		WriteI32: func(addr gekko.Address, v uint32) bool {
			g.mem[uint32(addr)] = byte(v >> 24)
			g.mem[uint32(addr)+1] = byte(v >> 16)
			g.mem[uint32(addr)+2] = byte(v >> 8)
			g.mem[uint32(addr)+3] = byte(v)
			return true
		},
		WriteI64:         func(addr gekko.Address, v uint64) bool { return false },
		ReadQuantized:    func(addr gekko.Address, gqr gekko.GQR, w bool) (gekko.Paired, bool) { return gekko.Paired{}, false },
		WriteQuantized:   func(addr gekko.Address, gqr gekko.GQR, p gekko.Paired, w bool) bool { return false },
		InvalidateICache: func(addr gekko.Address) {},
		CacheDMA:         func(ramAddr, cacheAddr gekko.Address, length uint32, toCache bool) {},
		MSRChanged:       func(gekko.MSR) {},
		IBATChanged:      func(bats [4]gekko.Bat) {},
		DBATChanged:      func(bats [4]gekko.Bat) {},
		TBRead:           func() uint64 { return 0 },
		TBChanged:        func(uint64) {},
		DECRead:          func() uint32 { return 0 },
		DECChanged:       func(uint32) {},
	}
}

func putWord(g *fakeGuest, addr uint32, word uint32) {
	g.writeBytes(addr, byte(word>>24), byte(word>>16), byte(word>>8), byte(word))
}

func TestAddiAndUnconditionalBranch(t *testing.T) {
	g := newFakeGuest()
	// addi r3, r0, 5 ; b .+8
	// primary 14, rd=3, ra=0, simm=5
	putWord(g, 0, (14<<26)|(3<<21)|(0<<16)|5)
	// b .+8 (skip one word): LI's raw field is the word-count, encoded at
	// bits 2..25 (Ins.LI() shifts it left 2 to get a byte displacement).
	putWord(g, 4, (18<<26)|(2<<2)) // LI raw=2 words=8 bytes, AA=0, LK=0

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	// instrBudget=2 stops Execute right after this block: nothing is
	// mapped past address 8, so letting it try a third block would panic
	// on an empty compile.
	res := j.Execute(1000, 2, nil)

	if g.regs.GPR[3] != 5 {
		t.Fatalf("GPR3 = %d, want 5", g.regs.GPR[3])
	}
	if g.regs.PC != 12 {
		t.Fatalf("PC = %d, want 12 (0 + 4 + 8)", g.regs.PC)
	}
	if res.Instructions != 2 {
		t.Fatalf("Instructions = %d, want 2", res.Instructions)
	}
}

func TestLoadStoreSlowPath(t *testing.T) {
	g := newFakeGuest()
	g.regs.GPR[4] = 0x2000
	// stw r3,0(r4) ; primary 36
	putWord(g, 0, (36<<26)|(3<<21)|(4<<16)|0)
	// lwz r5,0(r4) ; primary 32
	putWord(g, 4, (32<<26)|(5<<21)|(4<<16)|0)
	g.regs.GPR[3] = 0xCAFEBABE

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	j.Execute(1000, 2, nil) // nothing is mapped past address 8

	if g.regs.GPR[5] != 0xCAFEBABE {
		t.Fatalf("GPR5 = %#x, want 0xCAFEBABE", g.regs.GPR[5])
	}
}

func TestConditionalBranchTakenAndNotTaken(t *testing.T) {
	g := newFakeGuest()
	// bc with BO=0x14 (always), BI=0, BD raw=2 words (+8 bytes), encoded
	// at bits 2..15 (Ins.BD() shifts the raw field left 2).
	putWord(g, 0, (16<<26)|(0x14<<21)|(0<<16)|(2<<2))
	j := New(g.hooks(), Config{InstrsPerBlock: 1})
	j.Execute(1000, 1, nil) // nothing mapped past this single instruction
	if g.regs.PC != 8 {
		t.Fatalf("always-taken bc: PC = %d, want 8", g.regs.PC)
	}

	g2 := newFakeGuest()
	// bc BO=0x0C, BI=2 (CR0's EQ bit): compileOne's simplified bc
	// evaluates this as "take the branch iff CR0.EQ is false". CR0.EQ is
	// true here, so the branch must not be taken.
	g2.regs.CR.SetField(0, gekko.Cond{EQ: true})
	putWord(g2, 0, (16<<26)|(0x0C<<21)|(2<<16)|(2<<2))
	j2 := New(g2.hooks(), Config{InstrsPerBlock: 1})
	j2.Execute(1000, 1, nil)
	if g2.regs.PC != 4 {
		t.Fatalf("not-taken bc: PC = %d, want 4 (fallthrough)", g2.regs.PC)
	}
}

func TestIdleLoopDetectionExitsOnFirstPass(t *testing.T) {
	g := newFakeGuest()
	// b . (branch to self), primary 18, LI=0, AA=0
	putWord(g, 0x1000, 18<<26)
	g.regs.PC = 0x1000

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	res := j.Execute(1000, 1000, nil)

	if res.Exit != ExitIdle {
		t.Fatalf("Exit = %v, want ExitIdle", res.Exit)
	}
	if res.Instructions != 1 {
		t.Fatalf("Instructions = %d, want 1", res.Instructions)
	}
	if res.Cycles != 1000 {
		t.Fatalf("Cycles = %d, want 1000 (full budget charged)", res.Cycles)
	}
}

func TestZeroBudgetIsNoOp(t *testing.T) {
	g := newFakeGuest()
	putWord(g, 0, 18<<26)
	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	res := j.Execute(0, 1000, nil)
	if res.Instructions != 0 || res.Cycles != 0 {
		t.Fatalf("zero cycle budget should be a no-op, got %+v", res)
	}
}

func TestInvalidateWriteClearsLinkAndForcesRecompile(t *testing.T) {
	g := newFakeGuest()
	// Block A at 0: addi r1,r0,1. Block B at 4: addi r2,r0,2. Neither is
	// ever run through Execute here — only compiled and linked directly —
	// so nothing needs to exist past address 4.
	putWord(g, 0, (14<<26)|(1<<21)|(0<<16)|1)
	putWord(g, 4, (14<<26)|(2<<21)|(0<<16)|2)

	j := New(g.hooks(), Config{InstrsPerBlock: 1}) // force one instruction per block so A and B compile separately

	blockA := j.lookupOrCompile(0, false, 1)
	blockB := j.lookupOrCompile(4, false, 1)
	j.tryLink(4, false, &blockA.Link)

	if !blockA.Link.Filled || blockA.Link.TargetID != blockB.ID {
		t.Fatalf("expected block A's link to resolve to block B")
	}
	if len(blockB.BackRefs) != 1 {
		t.Fatalf("expected block B to record one back-reference, got %d", len(blockB.BackRefs))
	}

	j.InvalidateWrite(4)

	if blockA.Link.Filled {
		t.Fatal("invalidating block B's address should clear block A's link slot")
	}
	if _, ok := j.phys.lookup(4); ok {
		t.Fatal("invalidated mapping should no longer be looked up")
	}

	// A subsequent compile at the same address must produce a fresh block.
	recompiled := j.lookupOrCompile(4, false, 1)
	if recompiled.ID == blockB.ID {
		t.Fatal("expected a freshly compiled block with a new id")
	}
}

func TestDependencyIndexConsistencyAcrossRegionPages(t *testing.T) {
	table := newMappingTable()
	// A mapping spanning two region pages (4KiB each): starts just below
	// a page boundary and runs past it.
	addr := gekko.Address(0x0FFC)
	table.insert(addr, 16, blockID(7))

	p0 := regionPage(addr)
	p1 := regionPage(addr + 15)
	if p0 == p1 {
		t.Fatal("test setup should straddle two region pages")
	}
	if len(table.deps[p0]) != 1 || len(table.deps[p1]) != 1 {
		t.Fatalf("expected the mapping indexed under both region pages, got deps[%d]=%d deps[%d]=%d",
			p0, len(table.deps[p0]), p1, len(table.deps[p1]))
	}

	removed := table.invalidateAddr(addr + 15)
	if len(removed) != 1 || removed[0].id != blockID(7) {
		t.Fatalf("invalidateAddr should remove the straddling mapping, got %+v", removed)
	}
	if len(table.deps[p0]) != 0 || len(table.deps[p1]) != 0 {
		t.Fatal("removing a mapping must drop it from every region page it occupied")
	}
	if _, ok := table.byAddr[addr]; ok {
		t.Fatal("removed mapping should no longer be reachable by start address")
	}
}

func TestInvalidationClearsEveryBackReference(t *testing.T) {
	target := &Block{ID: 1}
	var slotA, slotB LinkSlot
	slotA.Filled, slotA.TargetID = true, 1
	slotB.Filled, slotB.TargetID = true, 1
	target.addBackRef(&slotA)
	target.addBackRef(&slotB)

	target.invalidateLinks()

	if slotA.Filled || slotB.Filled {
		t.Fatal("invalidateLinks must clear every registered back-reference")
	}
	if target.BackRefs != nil {
		t.Fatal("invalidateLinks should drop the back-reference list itself")
	}
}

func TestQuantizedLoadThroughCompiledBlock(t *testing.T) {
	g := newFakeGuest()
	g.regs.GQR[1].Load = gekko.GQRField{Type: gekko.QTypeInt8, Scale: 3}
	g.regs.GPR[4] = 0x3000
	g.writeBytes(0x3000, 0x40, 0x20) // 64/8=8.0, 32/8=4.0 per spec scenario S6

	// psq_l fd=6, ra=4, w=0, i(gqr index)=1, offset=0 ; primary 56
	word := uint32(56)<<26 | (6 << 21) | (4 << 16) | (0 << 15) | (1 << 12) | 0
	putWord(g, 0, word)

	j := New(g.hooks(), Config{InstrsPerBlock: 1})
	j.Execute(1000, 1, nil) // nothing mapped past this single instruction

	p := g.regs.Paired(6)
	if p.PS0 != 8.0 || p.PS1 != 4.0 {
		t.Fatalf("quantized load = {%v,%v}, want {8,4}", p.PS0, p.PS1)
	}
}

func TestUnknownOpcodeRaisesProgramException(t *testing.T) {
	g := newFakeGuest()
	putWord(g, 0, 63<<26) // opcode 63 without a matching case in compileOne's switch falls to default... guard below
	j := New(g.hooks(), Config{InstrsPerBlock: 1})
	before := g.regs.PC
	j.Execute(1000, 1, nil) // nothing mapped past this single instruction
	want := gekko.ExceptionProgram.Vector(g.regs.MSR.ExceptionPrefix)
	if gekko.Address(g.regs.PC) != want {
		t.Fatalf("unknown opcode: PC = %#x, want program-exception vector %#x (started at %#x)", g.regs.PC, want, before)
	}
}
