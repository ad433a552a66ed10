package gx

import (
	"math"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// cmdReader walks the FIFO command stream, matching spec §4.7's "byte
// order: command stream is big-endian".
type cmdReader struct {
	data []byte
	pos  int
}

func (r *cmdReader) u8() uint8 {
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *cmdReader) u16() uint16 {
	v := uint16(r.data[r.pos])<<8 | uint16(r.data[r.pos+1])
	r.pos += 2
	return v
}

func (r *cmdReader) u32() uint32 {
	v := uint32(r.data[r.pos])<<24 | uint32(r.data[r.pos+1])<<16 | uint32(r.data[r.pos+2])<<8 | uint32(r.data[r.pos+3])
	r.pos += 4
	return v
}

func (r *cmdReader) remaining() int { return len(r.data) - r.pos }

// assembleVertex reads one vertex from the command stream per the
// active VCD/VAT, walking attributes in fixed ascending Attr order
// (spec §4.7: "the parser walks attributes in fixed order").
func (p *Processor) assembleVertex(r *cmdReader, vat VAT, vcd VCD) Vertex {
	var v Vertex
	for a := Attr(0); a < attrCount; a++ {
		presence := vcd.Presence[a]
		if presence == PresenceNone {
			continue
		}
		if a == AttrPosMtxIdx || (a >= AttrTex0MtxIdx && a <= AttrTex2MtxIdx) {
			r.u8() // matrix index attributes are always a raw u8 index; consumed, not modeled further
			continue
		}
		d := vat.Descriptors[a]

		comps := max(d.Components, 1)
		var values [4]float32
		switch presence {
		case PresenceDirect:
			for i := 0; i < comps; i++ {
				values[i] = readDirect(r, d)
			}
		case PresenceIndex8, PresenceIndex16:
			var idx uint32
			if presence == PresenceIndex8 {
				idx = uint32(r.u8())
			} else {
				idx = uint32(r.u16())
			}
			arr := p.Arrays[a]
			base := arr.Base + gekko.Address(arrayElementOffset(arr, idx, d, comps))
			for i := 0; i < comps; i++ {
				off := gekko.Address(i * d.Format.byteSize())
				values[i] = readComponent(p.ram, base+off, d)
			}
		}
		applyAttr(&v, a, values, comps)
	}
	return v
}

func arrayElementOffset(arr ArrayDescriptor, idx uint32, d AttrDescriptor, comps int) uint32 {
	stride := arr.Stride
	if stride == 0 {
		stride = uint32(d.Format.byteSize() * comps)
	}
	return idx * stride
}

func readDirect(r *cmdReader, d AttrDescriptor) float32 {
	switch d.Format {
	case FormatU8:
		return float32(r.u8()) * d.scale()
	case FormatS8:
		return float32(int8(r.u8())) * d.scale()
	case FormatU16:
		return float32(r.u16()) * d.scale()
	case FormatS16:
		return float32(int16(r.u16())) * d.scale()
	default:
		return math.Float32frombits(r.u32())
	}
}

func applyAttr(v *Vertex, a Attr, values [4]float32, comps int) {
	switch a {
	case AttrPosition:
		copy(v.Position[:], values[:min(3, comps)])
	case AttrNormal:
		copy(v.Normal[:], values[:min(3, comps)])
		v.HasNormal = true
	case AttrColor0, AttrColor1:
		idx := 0
		if a == AttrColor1 {
			idx = 1
		}
		for i := 0; i < min(4, comps); i++ {
			v.Color[idx][i] = uint8(values[i])
		}
		v.HasColor[idx] = true
	default:
		if a >= AttrTex0 && a <= AttrTex7 {
			t := int(a - AttrTex0)
			copy(v.TexCoord[t][:], values[:min(2, comps)])
			v.HasTex[t] = true
		}
	}
}
