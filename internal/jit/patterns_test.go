package jit

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

func TestBlCompilesToPatternCallWithTarget(t *testing.T) {
	g := newFakeGuest()
	// bl +8: primary 18, LI raw=2 words, AA=0, LK=1
	putWord(g, 0, (18<<26)|(2<<2)|1)

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	b := j.lookupOrCompile(0, false, 64)

	if b.Pattern != PatternCall {
		t.Fatalf("Pattern = %v, want PatternCall", b.Pattern)
	}
	if b.CallTarget != 8 {
		t.Fatalf("CallTarget = %#x, want 8", b.CallTarget)
	}
}

func TestBlrAlwaysTakenReturnsToLinkRegister(t *testing.T) {
	g := newFakeGuest()
	g.regs.LR = 0x4000
	// bclr with BO=0x14 (always), BI=0, LK=0 ; primary 19, ext 16
	putWord(g, 0, (19<<26)|(0x14<<21)|(0<<16)|(16<<1))

	j := New(g.hooks(), Config{InstrsPerBlock: 1})
	res := j.Execute(1000, 1, nil)

	if g.regs.PC != 0x4000 {
		t.Fatalf("PC = %#x, want 0x4000 (blr target)", g.regs.PC)
	}
	if res.Exit != ExitBudget {
		t.Fatalf("Exit = %v, want ExitBudget (instrBudget=1 exhausted after the blr)", res.Exit)
	}
	if res.Instructions != 1 {
		t.Fatalf("Instructions = %d, want 1", res.Instructions)
	}
}

func TestBclrNotTakenFallsThrough(t *testing.T) {
	g := newFakeGuest()
	g.regs.LR = 0x4000
	g.regs.CR.SetField(0, gekko.Cond{LT: true})
	// bclr BO=0x0C, BI=0 (CR0.LT): "take iff CR0.LT is false" -> not taken.
	putWord(g, 0, (19<<26)|(0x0C<<21)|(0<<16)|(16<<1))
	putWord(g, 4, (14<<26)|(1<<21)|(0<<16)|7) // addi r1,r0,7, so Execute has somewhere to land

	j := New(g.hooks(), Config{InstrsPerBlock: 1})
	j.Execute(1000, 2, nil)

	if g.regs.PC != 8 {
		t.Fatalf("PC = %d, want 8 (fallthrough then addi)", g.regs.PC)
	}
	if g.regs.GPR[1] != 7 {
		t.Fatalf("GPR1 = %d, want 7 (fallthrough block ran)", g.regs.GPR[1])
	}
}

func TestLoadThenSelfBranchCompilesToPatternIdleVolatileRead(t *testing.T) {
	g := newFakeGuest()
	g.regs.GPR[4] = 0x2000
	g.writeBytes(0x2000, 0, 0, 0, 0)
	// lwz r3,0(r4) ; primary 32
	putWord(g, 0x1000, (32<<26)|(3<<21)|(4<<16)|0)
	// b back to 0x1000 ; primary 18, LI raw = -1 word
	putWord(g, 0x1004, (18<<26)|(uint32(int32(-1)&0x00FFFFFF)<<2))
	g.regs.PC = 0x1000

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	b := j.lookupOrCompile(0x1000, false, 64)

	if b.Pattern != PatternIdleVolatileRead {
		t.Fatalf("Pattern = %v, want PatternIdleVolatileRead", b.Pattern)
	}

	res := j.Execute(1000, 1000, nil)
	if res.Exit != ExitIdle {
		t.Fatalf("Exit = %v, want ExitIdle (idle arrest covers PatternIdleVolatileRead too)", res.Exit)
	}
	if res.Cycles != 1000 {
		t.Fatalf("Cycles = %d, want 1000 (full budget charged on arrest)", res.Cycles)
	}
}

func TestLoadThenBlrCompilesToPatternGetMailboxStatusFunc(t *testing.T) {
	g := newFakeGuest()
	// lwz r3,0(r4) ; blr (BO=0x14 always, BI=0, LK=0)
	putWord(g, 0x2000, (32<<26)|(3<<21)|(4<<16)|0)
	putWord(g, 0x2004, (19<<26)|(0x14<<21)|(0<<16)|(16<<1))

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	b := j.lookupOrCompile(0x2000, false, 64)

	if b.Pattern != PatternGetMailboxStatusFunc {
		t.Fatalf("Pattern = %v, want PatternGetMailboxStatusFunc", b.Pattern)
	}
}

func TestMailboxShortCircuitSkipsCalleeWhenReady(t *testing.T) {
	g := newFakeGuest()
	g.regs.LR = 0 // irrelevant, callee never actually runs

	// Caller at 0: bl 0x2000
	putWord(g, 0, (18<<26)|(uint32(0x2000/4)<<2)|1)
	// Callee at 0x2000: lwz r3,0(r0) ; blr (the tag does not check which
	// address the load reads)
	putWord(g, 0x2000, (32<<26)|(3<<21)|(0<<16)|0)
	putWord(g, 0x2004, (19<<26)|(0x14<<21)|(0<<16)|(16<<1))

	putWord(g, uint32(MailboxStatusAddr), mailboxReadyBit)

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	res := j.Execute(1000, 1000, nil)

	if res.Exit != ExitIdle {
		t.Fatalf("Exit = %v, want ExitIdle", res.Exit)
	}
	if res.Instructions != 1 {
		t.Fatalf("Instructions = %d, want 1 (callee never actually ran)", res.Instructions)
	}
	if res.Cycles != 1000 {
		t.Fatalf("Cycles = %d, want 1000 (full budget charged)", res.Cycles)
	}
	if g.regs.PC != 0 {
		t.Fatalf("PC = %#x, want 0 (caller's bl never actually executed)", g.regs.PC)
	}
}

func TestMailboxShortCircuitDoesNotFireWhenNotReady(t *testing.T) {
	g := newFakeGuest()
	g.regs.LR = 0x10
	g.writeBytes(0, 0, 0, 0, 0) // callee's lwz reads address 0 (RA=0 means "no base")

	putWord(g, 0, (18<<26)|(uint32(0x2000/4)<<2)|1)
	putWord(g, 0x2000, (32<<26)|(3<<21)|(0<<16)|0)
	putWord(g, 0x2004, (19<<26)|(0x14<<21)|(0<<16)|(16<<1))

	putWord(g, uint32(MailboxStatusAddr), 0) // ready bit clear

	j := New(g.hooks(), Config{InstrsPerBlock: 64})
	// instrBudget=3 (bl, then the callee's lwz+blr) stops Execute right as
	// the callee returns, before it tries to compile a block at the
	// unmapped address the callee's blr landed on.
	res := j.Execute(1000, 3, nil)

	if res.Exit == ExitIdle {
		t.Fatalf("short-circuit should not fire when the mailbox isn't ready")
	}
	if g.regs.PC != 0x4 {
		t.Fatalf("PC = %#x, want 0x4 (bl set LR to 4; the callee ran and returned via LR)", g.regs.PC)
	}
	if res.Instructions != 3 {
		t.Fatalf("Instructions = %d, want 3 (bl + callee's lwz + blr all actually ran)", res.Instructions)
	}
}
