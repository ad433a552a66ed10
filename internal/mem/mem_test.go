package mem

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// TestBATTranslation mirrors scenario S1 from the spec: a BAT covering
// 0x8000_0000..0x81FF_FFFF mapped to physical 0x0000_0000.
func TestBATTranslation(t *testing.T) {
	m := New(nil, nil)
	bat := gekko.Bat{
		EffectiveRegion: 0x8000_0000 >> 17,
		PhysicalRegion:  0,
		BlockLengthMask: 0x0FF, // 128 KiB << 8 = 32 MiB
		SupervisorMode:  true,
	}
	m.RebuildBATLUT(gekko.BankData, [4]gekko.Bat{bat})

	got, ok := m.Translate(gekko.BankData, 0x8012_3456)
	if !ok || got != 0x0012_3456 {
		t.Fatalf("translate(0x8012_3456) = (%#08x, %v), want (0x0012_3456, true)", uint32(got), ok)
	}

	_, ok = m.Translate(gekko.BankData, 0x8200_0000)
	if ok {
		t.Fatalf("translate(0x8200_0000) should miss, the BAT ends at 0x81FF_FFFF")
	}
}

// TestFastmemRoundTrip mirrors scenario S2: reading through the fastmem
// LUT must match a direct physical read, both with translation on and
// with it off.
func TestFastmemRoundTrip(t *testing.T) {
	m := New(nil, nil)
	bat := gekko.Bat{
		EffectiveRegion: 0x8000_0000 >> 17,
		PhysicalRegion:  0,
		BlockLengthMask: 0x000,
		SupervisorMode:  true,
	}
	m.RebuildBATLUT(gekko.BankData, [4]gekko.Bat{bat})
	m.Write8(0x100, 0xAB)

	logicalAddr := gekko.Address(0x8000_0100)
	buf := m.FastmemPtr(true, logicalAddr)
	if buf == nil {
		t.Fatal("expected fastmem hit for logical address under active BAT")
	}
	offset := uint32(logicalAddr) & pageMask
	if buf[offset] != 0xAB {
		t.Fatalf("fastmem logical read = %#x, want 0xAB", buf[offset])
	}

	physBuf := m.FastmemPtr(false, 0x100)
	if physBuf == nil || physBuf[0x100] != 0xAB {
		t.Fatalf("fastmem physical read mismatch")
	}
}

func TestOutOfRegionAccessIsSilentlyDefaulted(t *testing.T) {
	m := New(nil, nil)
	if got := m.Read32(0x5000_0000); got != 0 {
		t.Fatalf("unmapped read = %#x, want 0", got)
	}
	// Must not panic.
	m.Write32(0x5000_0000, 0xDEADBEEF)
}

func TestRebuildBATLUTReportsChangedPages(t *testing.T) {
	m := New(nil, nil)
	bat := gekko.Bat{
		EffectiveRegion: 0x8000_0000 >> 17,
		PhysicalRegion:  0,
		BlockLengthMask: 0x000,
		SupervisorMode:  true,
	}
	changed := m.RebuildBATLUT(gekko.BankData, [4]gekko.Bat{bat})
	if len(changed) != 1 {
		t.Fatalf("expected exactly one changed page for a single 128KiB BAT, got %d", len(changed))
	}
}
