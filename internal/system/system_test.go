package system

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/iface"
)

func encodeD(op, rD, rA uint32, imm uint16) uint32 {
	return op<<26 | rD<<21 | rA<<16 | uint32(imm)
}

func putWord(buf []byte, off int, w uint32) {
	buf[off] = byte(w >> 24)
	buf[off+1] = byte(w >> 16)
	buf[off+2] = byte(w >> 8)
	buf[off+3] = byte(w)
}

func newTestSystem(t *testing.T) *System {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewWiresEveryComponent(t *testing.T) {
	s := newTestSystem(t)
	if s.Regs == nil || s.Mem == nil || s.Sched == nil || s.JIT == nil ||
		s.DSP == nil || s.GX == nil || s.IO == nil {
		t.Fatalf("New left a component nil: %+v", s)
	}
	if s.IO.PI == nil || s.IO.VI == nil || s.IO.SI == nil {
		t.Fatalf("New left an interface unit nil: %+v", s.IO)
	}
}

func TestStepExecutesAddiThenStore(t *testing.T) {
	s := newTestSystem(t)
	ram := s.Mem.RAM()
	putWord(ram, 0, encodeD(14, 3, 0, 0x1234)) // addi r3,r0,0x1234
	putWord(ram, 4, encodeD(36, 3, 0, 0x0100)) // stw r3,0x100(r0)

	s.JIT.Step()
	if s.Regs.GPR[3] != 0x1234 {
		t.Fatalf("GPR[3] = %#x, want 0x1234", s.Regs.GPR[3])
	}
	if s.Regs.PC != 4 {
		t.Fatalf("PC = %#x, want 4", s.Regs.PC)
	}

	s.JIT.Step()
	if s.Regs.PC != 8 {
		t.Fatalf("PC = %#x, want 8", s.Regs.PC)
	}
	if got := s.Mem.Read32(0x100); got != 0x1234 {
		t.Fatalf("mem[0x100] = %#x, want 0x1234", got)
	}
}

func TestTranslateDataPassthroughWhenDisabled(t *testing.T) {
	s := newTestSystem(t)
	phys, ok := s.translateData(0x12345678)
	if !ok || phys != 0x12345678 {
		t.Fatalf("translateData = (%#x, %v), want (0x12345678, true)", phys, ok)
	}
}

func TestTranslateDataFaultsOnBATMiss(t *testing.T) {
	s := newTestSystem(t)
	s.Regs.MSR.DataAddrTranslation = true
	if _, ok := s.translateData(0x8000_0000); ok {
		t.Fatalf("translateData succeeded with no BAT configured")
	}
}

func TestReadWriteRAMRoundtrip(t *testing.T) {
	s := newTestSystem(t)
	if ok := s.writeI32(0x40, 0xCAFEBABE); !ok {
		t.Fatalf("writeI32 failed")
	}
	v, ok := s.readI32(0x40)
	if !ok || v != 0xCAFEBABE {
		t.Fatalf("readI32 = (%#x, %v), want (0xCAFEBABE, true)", v, ok)
	}
}

func TestMMIOPIMaskRegisterRoundTrip(t *testing.T) {
	s := newTestSystem(t)
	if ok := s.writeI32(regPIMask, 0x3); !ok {
		t.Fatalf("writeI32(regPIMask) failed")
	}
	v, ok := s.readI32(regPIMask)
	if !ok || v != 0x3 {
		t.Fatalf("readI32(regPIMask) = (%#x, %v), want (0x3, true)", v, ok)
	}
}

func TestMMIOPICauseReflectsAggregator(t *testing.T) {
	s := newTestSystem(t)
	s.IO.PI.SetCause(iface.SourceVideo, true)
	v, ok := s.readI32(regPICause)
	if !ok || v&(1<<iface.SourceVideo) == 0 {
		t.Fatalf("readI32(regPICause) = (%#x, %v), want SourceVideo bit set", v, ok)
	}
}

func TestMMIODSPMailboxOutRoundTrip(t *testing.T) {
	s := newTestSystem(t)
	if ok := s.writeI32(regDSPMailboxOut, 0x1234); !ok {
		t.Fatalf("writeI32(regDSPMailboxOut) failed")
	}
	if !s.DSP.FromCPU.Ready() {
		t.Fatalf("writing the mailbox's low half should set its ready bit")
	}
	v, ok := s.readI32(regDSPMailboxOut)
	if !ok {
		t.Fatalf("readI32(regDSPMailboxOut) failed")
	}
	if v&0xFFFF != 0x1234 {
		t.Fatalf("readI32(regDSPMailboxOut) low half = %#x, want 0x1234", v&0xFFFF)
	}
	if v&(1<<31) == 0 {
		t.Fatalf("readI32(regDSPMailboxOut) = %#x, want bit 31 (ready) set", v)
	}
}

func TestCheckExternalInterruptFiresOnPendingUnmaskedCause(t *testing.T) {
	s := newTestSystem(t)
	s.Regs.MSR.ExternalInterrupts = true
	s.Regs.PC = 0x2000

	s.IO.PI.SetCause(iface.SourceVideo, true)

	want := uint32(gekko.ExceptionExternalInterrupt.Vector(false))
	if s.Regs.PC != want {
		t.Fatalf("PC = %#x, want exception vector %#x", s.Regs.PC, want)
	}
	if s.Regs.SRR0 != 0x2000 {
		t.Fatalf("SRR0 = %#x, want 0x2000", s.Regs.SRR0)
	}
}

func TestCheckExternalInterruptStaysQuietWhenMasked(t *testing.T) {
	s := newTestSystem(t)
	s.Regs.MSR.ExternalInterrupts = false
	s.Regs.PC = 0x2000

	s.IO.PI.SetCause(iface.SourceVideo, true)

	if s.Regs.PC != 0x2000 {
		t.Fatalf("PC = %#x, want unchanged 0x2000", s.Regs.PC)
	}
}

func TestDecChangedSchedulesOverflow(t *testing.T) {
	s := newTestSystem(t)
	s.decChanged(10)

	s.Sched.Advance(10)
	s.Sched.RunReady()

	want := uint32(gekko.ExceptionDecrementer.Vector(false))
	if s.Regs.PC != want {
		t.Fatalf("PC = %#x, want decrementer vector %#x", s.Regs.PC, want)
	}
}

func TestDecChangedCancelsPreviousSchedule(t *testing.T) {
	s := newTestSystem(t)
	s.decChanged(100)
	s.decChanged(10) // restarts the countdown; the 100-cycle event must not also fire

	s.Sched.Advance(10)
	s.Sched.RunReady()
	if s.Sched.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0 after the single rescheduled event fires", s.Sched.Pending())
	}
}

func TestFlushGXFifoReadsSubmittedBuffer(t *testing.T) {
	s := newTestSystem(t)
	ram := s.Mem.RAM()
	const base = 0x2000
	ram[base] = 0x00 // cmdNop

	if ok := s.writeI32(regGXFifoBase, base); !ok {
		t.Fatalf("writeI32(regGXFifoBase) failed")
	}
	if ok := s.writeI32(regGXFifoLength, 1); !ok {
		t.Fatalf("writeI32(regGXFifoLength) failed")
	}
}

func TestIBATChangedLeavesInstrTranslationOff(t *testing.T) {
	s := newTestSystem(t)
	ram := s.Mem.RAM()
	putWord(ram, 0, encodeD(24, 0, 0, 0)) // ori r0,r0,0 (nop)
	s.JIT.Step()

	s.ibatChanged(s.Regs.IBAT)
	// ibatChanged must not panic and must leave translation disabled
	// (MSR.InstrAddrTranslation untouched), the state this system booted
	// into; RebuildBATLUT with no active BATs is a no-op on the LUT.
	if s.Regs.MSR.InstrAddrTranslation {
		t.Fatalf("ibatChanged unexpectedly enabled instruction translation")
	}
}
