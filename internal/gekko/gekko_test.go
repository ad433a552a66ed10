package gekko

import "testing"

func TestCondRegFieldRoundTrip(t *testing.T) {
	var cr CondReg
	cr.SetField(0, Cond{EQ: true, GT: true})
	cr.SetField(7, Cond{LT: true})

	got0 := cr.Field(0)
	if !got0.EQ || !got0.GT || got0.LT || got0.OV {
		t.Fatalf("CR0 = %+v, want {EQ:true GT:true}", got0)
	}
	got7 := cr.Field(7)
	if !got7.LT {
		t.Fatalf("CR7 = %+v, want LT:true", got7)
	}
}

func TestBatBlockLength(t *testing.T) {
	tests := []struct {
		mask uint32
		want uint32
	}{
		{0x000, 128 * 1024},
		{0x001, 256 * 1024},
		{0x003, 512 * 1024},
		{0x7FF, 256 * 1024 * 1024}, // all 11 bits set -> 2^11 * 128KiB
	}
	for _, tc := range tests {
		b := Bat{BlockLengthMask: tc.mask}
		if got := b.BlockLength(); got != tc.want {
			t.Errorf("mask %#x: BlockLength() = %d, want %d", tc.mask, got, tc.want)
		}
	}
}

func TestBatContainsAndTranslate(t *testing.T) {
	b := Bat{
		EffectiveRegion: 0x8000_0000 >> 17,
		PhysicalRegion:  0,
		BlockLengthMask: 0,
		SupervisorMode:  true,
	}
	if !b.Contains(0x8000_0000) || !b.Contains(0x8001_FFFF) {
		t.Fatal("expected BAT to contain its own block bounds")
	}
	if b.Contains(0x8002_0000) {
		t.Fatal("BAT should not contain an address past its block length")
	}
	if got := b.Translate(0x8000_1234); got != 0x0000_1234 {
		t.Fatalf("Translate() = %#08x, want 0x1234", uint32(got))
	}
}

func TestExceptionVectorHonorsPrefix(t *testing.T) {
	if v := ExceptionDSI.Vector(false); v != 0x300 {
		t.Fatalf("unprefixed DSI vector = %#x, want 0x300", uint32(v))
	}
	if v := ExceptionDSI.Vector(true); v != 0xFFF0_0300 {
		t.Fatalf("prefixed DSI vector = %#x, want 0xFFF00300", uint32(v))
	}
}

func TestRaiseSavesStateAndJumps(t *testing.T) {
	r := &Regs{PC: 0x8000_1000}
	r.MSR.DataAddrTranslation = true
	r.MSR.ExternalInterrupts = true

	r.Raise(ExceptionProgram)

	if r.SRR0 != 0x8000_1000 {
		t.Fatalf("SRR0 = %#x, want 0x80001000", r.SRR0)
	}
	if r.MSR.DataAddrTranslation || r.MSR.ExternalInterrupts {
		t.Fatal("exception entry must clear translation and external-interrupt-enable")
	}
	if r.PC != 0x700 {
		t.Fatalf("PC = %#x, want 0x700", r.PC)
	}
}
