package gx

import (
	"math"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// Attr identifies one of the per-vertex attributes the vertex
// descriptor can carry (spec §4.7, §3's "vertex-attribute descriptor").
type Attr int

const (
	AttrPosMtxIdx Attr = iota
	AttrTex0MtxIdx
	AttrTex1MtxIdx
	AttrTex2MtxIdx
	AttrPosition
	AttrNormal
	AttrColor0
	AttrColor1
	AttrTex0
	AttrTex1
	AttrTex2
	AttrTex3
	AttrTex4
	AttrTex5
	AttrTex6
	AttrTex7
	attrCount
)

// Presence selects how a vertex-descriptor slot supplies one
// attribute's value (spec §4.7: "absent, inlined directly, or looked
// up by 8- or 16-bit index").
type Presence int

const (
	PresenceNone Presence = iota
	PresenceDirect
	PresenceIndex8
	PresenceIndex16
)

// AttrFormat is the on-the-wire numeric format of one direct or
// indexed attribute component.
type AttrFormat int

const (
	FormatU8 AttrFormat = iota
	FormatS8
	FormatU16
	FormatS16
	FormatF32
)

func (f AttrFormat) byteSize() int {
	switch f {
	case FormatU8, FormatS8:
		return 1
	case FormatU16, FormatS16:
		return 2
	default:
		return 4
	}
}

// AttrDescriptor is one VAT slot's format description: component
// count, numeric format, and (for fixed-point formats) the 2^-shift
// scale factor applied when producing a float (spec §4.7).
type AttrDescriptor struct {
	Components int
	Format     AttrFormat
	Shift      uint8
}

func (d AttrDescriptor) scale() float32 {
	if d.Format == FormatF32 {
		return 1
	}
	s := float32(1)
	for i := uint8(0); i < d.Shift; i++ {
		s /= 2
	}
	return s
}

// VAT is one of the eight vertex-attribute-table entries: for every
// attribute, its format/kind/shift (spec §4.7's "3×32-bit words").
// Real hardware packs this information across three 32-bit registers;
// this port stores the already-unpacked per-attribute descriptors
// directly, since nothing downstream needs the raw bit layout.
type VAT struct {
	Descriptors [attrCount]AttrDescriptor
}

// DefaultVAT returns a VAT with a reasonable default shape (float
// position/normal/texcoord, u8 color) so a guest that never configures
// CP registers still produces sane vertices.
func DefaultVAT() VAT {
	var v VAT
	v.Descriptors[AttrPosition] = AttrDescriptor{Components: 3, Format: FormatF32}
	v.Descriptors[AttrNormal] = AttrDescriptor{Components: 3, Format: FormatF32}
	v.Descriptors[AttrColor0] = AttrDescriptor{Components: 4, Format: FormatU8}
	v.Descriptors[AttrColor1] = AttrDescriptor{Components: 4, Format: FormatU8}
	for t := AttrTex0; t <= AttrTex7; t++ {
		v.Descriptors[t] = AttrDescriptor{Components: 2, Format: FormatF32}
	}
	return v
}

// ArrayDescriptor names where an indexed attribute's backing array
// lives in main RAM (spec §4.7): base physical address and stride.
type ArrayDescriptor struct {
	Base   gekko.Address
	Stride uint32
}

// VCD is the active vertex descriptor: per attribute, how its value is
// supplied this draw call (spec §4.7).
type VCD struct {
	Presence [attrCount]Presence
}

// RAM is the narrow read interface vertex assembly needs from main
// memory for indexed attribute lookups and display-list inlining.
type RAM interface {
	Read8(addr gekko.Address) uint8
	Read16(addr gekko.Address) uint16
	Read32(addr gekko.Address) uint32
}

func readComponent(ram RAM, addr gekko.Address, d AttrDescriptor) float32 {
	switch d.Format {
	case FormatU8:
		return float32(ram.Read8(addr)) * d.scale()
	case FormatS8:
		return float32(int8(ram.Read8(addr))) * d.scale()
	case FormatU16:
		return float32(ram.Read16(addr)) * d.scale()
	case FormatS16:
		return float32(int16(ram.Read16(addr))) * d.scale()
	default:
		return math.Float32frombits(ram.Read32(addr))
	}
}
