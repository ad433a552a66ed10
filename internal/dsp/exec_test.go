package dsp

import "testing"

func TestAcc40RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 1 << 20, -(1 << 20), acc40Min, -(acc40Min + 1)}
	for _, v := range cases {
		var a Acc40
		got := a.Set(v)
		if got != v {
			t.Errorf("Acc40.Set(%d) round-tripped to %d", v, got)
		}
		if a.Get() != got {
			t.Errorf("Acc40.Get() = %d, want %d", a.Get(), got)
		}
	}
}

func TestAddrRegWrapViaStep(t *testing.T) {
	// Mirrors the AR=0x1003, WR=0x0003 fibonacci-wrap scenario: four
	// consecutive IAR steps then four DAR steps return to the start.
	in := New()
	in.Regs.Addressing[0] = 0x1003
	in.Regs.Wrapping[0] = 0x0003
	in.Mem.IRAM[0] = opIAR << 8

	want := []uint16{0x1000, 0x1001, 0x1002, 0x1003}
	for i, w := range want {
		in.Regs.PC = 0
		in.Step()
		if in.Regs.Addressing[0] != w {
			t.Fatalf("IAR step %d: got %#04x, want %#04x", i, in.Regs.Addressing[0], w)
		}
	}

	in.Mem.IRAM[0] = opDAR << 8
	wantDown := []uint16{0x1002, 0x1001, 0x1000, 0x1003}
	for i, w := range wantDown {
		in.Regs.PC = 0
		in.Step()
		if in.Regs.Addressing[0] != w {
			t.Fatalf("DAR step %d: got %#04x, want %#04x", i, in.Regs.Addressing[0], w)
		}
	}
}

func TestMailboxReadyBit(t *testing.T) {
	var m Mailbox
	if m.Ready() {
		t.Fatal("fresh mailbox should not be ready")
	}
	m.WriteLow(0x1234)
	if !m.Ready() {
		t.Fatal("mailbox should be ready after WriteLow")
	}
	if got := m.ReadLow(); got != 0x1234 {
		t.Fatalf("ReadLow() = %#04x, want 0x1234", got)
	}
	if m.Ready() {
		t.Fatal("mailbox should not be ready after ReadLow")
	}
}

type fakeRAM struct {
	data map[uint32]uint16
}

func newFakeRAM() *fakeRAM { return &fakeRAM{data: map[uint32]uint16{}} }

func (r *fakeRAM) Read16(addr uint32) uint16  { return r.data[addr] }
func (r *fakeRAM) Write16(addr uint32, v uint16) { r.data[addr] = v }

func TestDMARAMToDSP(t *testing.T) {
	ram := newFakeRAM()
	ram.data[0x2000] = 0xAAAA
	ram.data[0x2002] = 0xBBBB

	var mem Memory
	dma := DMA{RAMBase: 0x2000, DSPBase: 0x10, Length: 4, Target: DMATargetDMEM, Direction: DMAFromRAMToDSP, Ongoing: true}

	completed := dma.RunDMA(ram, &mem)
	if !completed {
		t.Fatal("RunDMA should report completion")
	}
	if dma.Ongoing || dma.Length != 0 {
		t.Fatal("RunDMA should clear Ongoing and Length on completion")
	}
	if mem.DRAM[0x10] != 0xAAAA || mem.DRAM[0x11] != 0xBBBB {
		t.Fatalf("DMA transferred wrong data: %#04x %#04x", mem.DRAM[0x10], mem.DRAM[0x11])
	}
}

func TestBootMicrocodeDMA(t *testing.T) {
	ram := newFakeRAM()
	for i := 0; i < 512; i++ {
		ram.data[0x0100_0000+uint32(i*2)] = uint16(i)
	}
	var mem Memory
	BootMicrocodeDMA(ram, &mem)
	for i := 0; i < 512; i++ {
		if mem.IRAM[i] != uint16(i) {
			t.Fatalf("IRAM[%d] = %#04x, want %#04x", i, mem.IRAM[i], uint16(i))
		}
	}
}

func TestResetSetsPCFromResetHigh(t *testing.T) {
	in := New()
	in.Regs.PC = 0x1234
	in.Halt()

	in.Reset(true)
	if in.Regs.PC != 0x8000 {
		t.Fatalf("Reset(true) PC = %#04x, want 0x8000", in.Regs.PC)
	}
	if in.Halted() {
		t.Fatal("Reset should clear halted")
	}

	in.Reset(false)
	if in.Regs.PC != 0x0000 {
		t.Fatalf("Reset(false) PC = %#04x, want 0", in.Regs.PC)
	}
}

func TestHaltStopsStep(t *testing.T) {
	in := New()
	in.Mem.IRAM[0] = opHALT << 8
	in.Step()
	if !in.Halted() {
		t.Fatal("HALT should set halted")
	}
	pcBefore := in.Regs.PC
	in.Step()
	if in.Regs.PC != pcBefore {
		t.Fatal("Step after halt should be a no-op")
	}
}

func TestAddAccumulators(t *testing.T) {
	in := New()
	in.Regs.Acc40[0].Set(100)
	in.Regs.Acc40[1].Set(50)
	in.Mem.IRAM[0] = opADD << 8 // d=0: AC0 += AC1

	in.Step()
	if got := in.Regs.Acc40[0].Get(); got != 150 {
		t.Fatalf("AC0 after ADD = %d, want 150", got)
	}
	if in.Regs.Status.ArithmeticZero {
		t.Fatal("result is nonzero, ArithmeticZero should be false")
	}
}

func TestLoadImmediateAndMove(t *testing.T) {
	in := New()
	in.Mem.IRAM[0] = opLRI << 8 // dst = RegAR0 (selector 0)
	in.Mem.IRAM[1] = 0x4242
	in.Step()
	if in.Regs.Addressing[0] != 0x4242 {
		t.Fatalf("LRI AR0 = %#04x, want 0x4242", in.Regs.Addressing[0])
	}

	in.Regs.PC = 0
	in.Mem.IRAM[0] = opMRR<<8 | uint16(RegAR0)<<4 | uint16(RegAR1) // dst=AR1 (low nibble), src=AR0 (high nibble)
	in.Step()
	if in.Regs.Addressing[1] != 0x4242 {
		t.Fatalf("MRR AR1 = %#04x, want 0x4242", in.Regs.Addressing[1])
	}
}

func TestStoreAndLoadData(t *testing.T) {
	in := New()
	in.Regs.Addressing[0] = 0x10
	in.Regs.Wrapping[0] = 0xFFFF
	in.Regs.Set(RegAR1, 0x55AA)

	in.Mem.IRAM[0] = opSR<<8 | uint16(RegAR1)<<2 | 0 // addrReg=0, src=AR1
	in.Step()
	if in.Mem.DRAM[0x10] != 0x55AA {
		t.Fatalf("SR wrote %#04x, want 0x55AA", in.Mem.DRAM[0x10])
	}
	if in.Regs.Addressing[0] != 0x11 {
		t.Fatalf("SR should post-increment AR0, got %#04x", in.Regs.Addressing[0])
	}

	in.Regs.PC = 0
	in.Regs.Addressing[0] = 0x10
	in.Mem.IRAM[0] = opLR<<8 | uint16(RegAR2)<<2 | 0
	in.Step()
	if in.Regs.Get(RegAR2) != 0x55AA {
		t.Fatalf("LR loaded %#04x, want 0x55AA", in.Regs.Get(RegAR2))
	}
}

func TestCallAndReturn(t *testing.T) {
	in := New()
	in.Mem.IRAM[0] = opCALL << 8
	in.Mem.IRAM[1] = 0x0010
	in.Mem.IRAM[0x10] = opRET << 8

	in.Step() // CALL -> PC=0x10
	if in.Regs.PC != 0x10 {
		t.Fatalf("after CALL, PC = %#04x, want 0x10", in.Regs.PC)
	}
	in.Step() // RET -> PC back after the CALL's two words
	if in.Regs.PC != 2 {
		t.Fatalf("after RET, PC = %#04x, want 2", in.Regs.PC)
	}
}

func TestBloopRepeatsBody(t *testing.T) {
	in := New()
	// BLOOP 3 at PC 0 (2 words), body is a single NOP at PC 2 that loops
	// back to itself three times before falling through to PC 3.
	in.Mem.IRAM[0] = opBLOOP << 8
	in.Mem.IRAM[1] = 3
	in.Mem.IRAM[2] = opNOP << 8
	in.Mem.IRAM[3] = opHALT << 8

	in.Step() // BLOOP
	if in.Regs.PC != 2 {
		t.Fatalf("after BLOOP, PC = %d, want 2", in.Regs.PC)
	}

	for i := 0; i < 3; i++ {
		in.Step()
	}
	if in.Halted() {
		t.Fatal("loop body should still be collapsing, not fallen through to HALT yet")
	}
	if in.Regs.PC != 3 {
		t.Fatalf("after loop exhausts, PC = %d, want 3", in.Regs.PC)
	}

	in.Step()
	if !in.Halted() {
		t.Fatal("expected fallthrough to HALT after loop completes")
	}
}

func TestMailboxOpcodes(t *testing.T) {
	in := New()
	in.FromCPU.WriteLow(0x7777)

	in.Mem.IRAM[0] = opMBoxReadFromCPU<<8 | uint16(RegAR0)
	in.Step()
	if in.Regs.Addressing[0] != 0x7777 {
		t.Fatalf("mailbox read into AR0 = %#04x, want 0x7777", in.Regs.Addressing[0])
	}

	in.Regs.PC = 0
	in.Regs.Set(RegAR1, 0x9999)
	in.Mem.IRAM[0] = opMBoxWriteToCPU<<8 | uint16(RegAR1)
	in.Step()
	if !in.ToCPU.Ready() || in.ToCPU.Low != 0x9999 {
		t.Fatalf("expected ToCPU mailbox to carry 0x9999, got %#04x ready=%v", in.ToCPU.Low, in.ToCPU.Ready())
	}
}
