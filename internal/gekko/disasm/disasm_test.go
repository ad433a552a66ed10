package disasm

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

func words(t *testing.T, ws ...uint32) func(addr gekko.Address, size int) []byte {
	t.Helper()
	buf := make([]byte, len(ws)*4)
	for i, w := range ws {
		binary.BigEndian.PutUint32(buf[i*4:], w)
	}
	// The words are mapped starting at the first address read.
	base, started := gekko.Address(0), false
	return func(addr gekko.Address, size int) []byte {
		if !started {
			base, started = addr, true
		}
		off := int(addr - base)
		if off+size > len(buf) {
			return buf[off:]
		}
		return buf[off : off+size]
	}
}

func TestDisassembleAddiRendersLiForZeroBase(t *testing.T) {
	// addi r3, r0, 0x1234
	word := uint32(14)<<26 | uint32(3)<<21 | uint32(0)<<16 | 0x1234
	lines := Disassemble(words(t, word), 0, 1)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Mnemonic != "li r3, 4660" {
		t.Fatalf("mnemonic = %q", lines[0].Mnemonic)
	}
}

func TestDisassembleStwNamesOffsetAndBase(t *testing.T) {
	// stw r3, 0x100(r1)
	word := uint32(36)<<26 | uint32(3)<<21 | uint32(1)<<16 | 0x100
	lines := Disassemble(words(t, word), 0, 1)
	if !strings.Contains(lines[0].Mnemonic, "stw r3, 256(r1)") {
		t.Fatalf("mnemonic = %q", lines[0].Mnemonic)
	}
}

func TestDisassembleBranchReportsAbsoluteTarget(t *testing.T) {
	// b 0x1000, AA=1
	li := int32(0x1000)
	word := uint32(18)<<26 | (uint32(li>>2)&0x00FF_FFFF)<<2 | 1<<1
	lines := Disassemble(words(t, word), 0x8000_0000, 1)
	if !lines[0].IsBranch {
		t.Fatalf("expected IsBranch")
	}
	if uint32(lines[0].BranchTarget) != 0x1000 {
		t.Fatalf("BranchTarget = %#x, want 0x1000", uint32(lines[0].BranchTarget))
	}
}

func TestDisassembleBranchRelativeAddsCurrentAddress(t *testing.T) {
	// b +8, AA=0
	word := uint32(18)<<26 | (uint32(8>>2)&0x00FF_FFFF)<<2
	lines := Disassemble(words(t, word), 0x8000_0100, 1)
	if uint32(lines[0].BranchTarget) != 0x8000_0108 {
		t.Fatalf("BranchTarget = %#x, want 0x80000108", uint32(lines[0].BranchTarget))
	}
}

func TestDisassembleStopsAtShortRead(t *testing.T) {
	read := func(addr gekko.Address, size int) []byte { return []byte{0x00, 0x00} }
	lines := Disassemble(read, 0, 5)
	if len(lines) != 0 {
		t.Fatalf("got %d lines, want 0 on short read", len(lines))
	}
}

func TestDisassembleUnknownOpcodeFallsBackToRawWord(t *testing.T) {
	word := uint32(1)<<26 | 0xDEAD // opcode 1 is unused on Gekko
	lines := Disassemble(words(t, word), 0, 1)
	if !strings.HasPrefix(lines[0].Mnemonic, ".long") {
		t.Fatalf("mnemonic = %q, want .long fallback", lines[0].Mnemonic)
	}
}
