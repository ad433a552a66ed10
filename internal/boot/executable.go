package boot

import (
	"encoding/binary"
	"fmt"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/mem"
)

// DOL section counts and header field offsets. The format predates this
// project's retrieval pack (hemisphere/src/system/executable.rs imports
// a dol crate that wasn't itself captured), so the layout below is the
// well-known flat-DOL header rather than something ported line-for-line:
// 7 text + 11 data section file offsets, then their load addresses,
// then their sizes, then a single BSS range and the entry point.
const (
	numText     = 7
	numData     = 11
	numSections = numText + numData

	offOffsets = 0x00
	offAddrs   = 0x48
	offSizes   = 0x90
	offBSSAddr = 0xD8
	offBSSSize = 0xDC
	offEntry   = 0xE0

	headerSize = 0x100
)

// LoadExecutable parses a flat DOL-format executable image and copies
// every non-empty section into guest RAM at its stated load address,
// zeroing the BSS range behind it, matching the common loader contract
// (spec §6): load addresses are effective addresses in the cached or
// uncached RAM mirror, and sections land at the physical address left
// after clearing the top two bits, not through any BAT, since guest
// translation is always off this early in boot.
func LoadExecutable(data []byte, m *mem.Memory) (gekko.Address, error) {
	if len(data) < headerSize {
		return 0, &LoadError{Kind: KindParsingHeader, Source: fmt.Errorf("dol: file too short for header (%d bytes, want %d)", len(data), headerSize)}
	}

	var offsets, addrs, sizes [numSections]uint32
	for i := 0; i < numSections; i++ {
		offsets[i] = binary.BigEndian.Uint32(data[offOffsets+i*4:])
		addrs[i] = binary.BigEndian.Uint32(data[offAddrs+i*4:])
		sizes[i] = binary.BigEndian.Uint32(data[offSizes+i*4:])
	}
	bssAddr := binary.BigEndian.Uint32(data[offBSSAddr:])
	bssSize := binary.BigEndian.Uint32(data[offBSSSize:])
	entry := binary.BigEndian.Uint32(data[offEntry:])

	for i := 0; i < numSections; i++ {
		if sizes[i] == 0 {
			continue
		}
		start, end := offsets[i], offsets[i]+sizes[i]
		if end < start || end > uint32(len(data)) {
			return 0, &LoadError{Kind: KindParsingSection, Source: fmt.Errorf("dol: section %d [%#x,%#x) overruns file of length %#x", i, start, end, len(data))}
		}
		writeBytes(m, gekko.Address(addrs[i]&^0xC000_0000), data[start:end])
	}
	zeroBytes(m, gekko.Address(bssAddr&^0xC000_0000), bssSize)

	return gekko.Address(entry), nil
}

func writeBytes(m *mem.Memory, addr gekko.Address, data []byte) {
	for i, b := range data {
		m.Write8(addr+gekko.Address(i), b)
	}
}

func zeroBytes(m *mem.Memory, addr gekko.Address, length uint32) {
	for i := uint32(0); i < length; i++ {
		m.Write8(addr+gekko.Address(i), 0)
	}
}
