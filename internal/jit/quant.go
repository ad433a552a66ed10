package jit

import (
	"math"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// dequantTable precomputes the 64 scale factors a GQR's 6-bit scale
// field selects (spec §4.4.6), indexed directly by the raw field value.
// The field is interpreted as a signed 6-bit exponent (-32..31); values
// 0..31 multiply on store / divide on load, values 32..63 (negative
// exponents) do the opposite.
var dequantTable [64]float64

func init() {
	for i := range dequantTable {
		exp := int(int8(i<<2)) >> 2 // sign-extend the low 6 bits
		dequantTable[i] = math.Ldexp(1, exp)
	}
}

// dequantFactor returns 2^scale for a 6-bit signed GQR scale field.
func dequantFactor(scale uint8) float64 { return dequantTable[scale&0x3F] }

// elementSize returns the byte width of one quantized element.
func elementSize(t gekko.QuantizedType) int {
	switch t {
	case gekko.QTypeFloat32:
		return 4
	case gekko.QTypeUint8, gekko.QTypeInt8:
		return 1
	case gekko.QTypeUint16, gekko.QTypeInt16:
		return 2
	default:
		return 4
	}
}

// decodeElement converts one raw big-endian element into a float
// lane, applying the dequantization factor for non-float types.
func decodeElement(raw []byte, t gekko.QuantizedType, scale uint8) float64 {
	switch t {
	case gekko.QTypeFloat32:
		bits := uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
		return float64(math.Float32frombits(bits))
	case gekko.QTypeUint8:
		return float64(raw[0]) / dequantFactor(scale)
	case gekko.QTypeInt8:
		return float64(int8(raw[0])) / dequantFactor(scale)
	case gekko.QTypeUint16:
		v := uint16(raw[0])<<8 | uint16(raw[1])
		return float64(v) / dequantFactor(scale)
	case gekko.QTypeInt16:
		v := int16(uint16(raw[0])<<8 | uint16(raw[1]))
		return float64(v) / dequantFactor(scale)
	default:
		return 0
	}
}

// encodeElement converts one float lane into its raw big-endian
// quantized form, saturating before truncation for integer types.
func encodeElement(value float64, t gekko.QuantizedType, scale uint8) []byte {
	switch t {
	case gekko.QTypeFloat32:
		bits := math.Float32bits(float32(value))
		return []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
	case gekko.QTypeUint8:
		v := saturate(value*dequantFactor(scale), 0, 255)
		return []byte{byte(uint8(v))}
	case gekko.QTypeInt8:
		v := saturate(value*dequantFactor(scale), -128, 127)
		return []byte{byte(int8(v))}
	case gekko.QTypeUint16:
		v := uint16(saturate(value*dequantFactor(scale), 0, 65535))
		return []byte{byte(v >> 8), byte(v)}
	case gekko.QTypeInt16:
		v := int16(saturate(value*dequantFactor(scale), -32768, 32767))
		return []byte{byte(uint16(v) >> 8), byte(uint16(v))}
	default:
		return nil
	}
}

func saturate(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadQuantized implements psq_l/psq_lx's memory-side conversion (spec
// §4.4.6): reads one or two elements starting at addr per gqr.Load,
// the second element defaulting to 1.0 when w is set.
func LoadQuantized(read func(gekko.Address) (uint8, bool), addr gekko.Address, gqr gekko.GQRField, w bool) (gekko.Paired, bool, uint32) {
	size := elementSize(gqr.Type)
	readN := func(off uint32, n int) ([]byte, bool) {
		buf := make([]byte, n)
		for i := 0; i < n; i++ {
			b, ok := read(addr + gekko.Address(off) + gekko.Address(i))
			if !ok {
				return nil, false
			}
			buf[i] = b
		}
		return buf, true
	}

	raw0, ok := readN(0, size)
	if !ok {
		return gekko.Paired{}, false, 0
	}
	ps0 := decodeElement(raw0, gqr.Type, gqr.Scale)

	if w {
		return gekko.Paired{PS0: ps0, PS1: 1.0}, true, uint32(size)
	}
	raw1, ok := readN(uint32(size), size)
	if !ok {
		return gekko.Paired{}, false, 0
	}
	ps1 := decodeElement(raw1, gqr.Type, gqr.Scale)
	return gekko.Paired{PS0: ps0, PS1: ps1}, true, uint32(size) * 2
}

// StoreQuantized implements psq_st/psq_stx's memory-side conversion.
func StoreQuantized(write func(gekko.Address, uint8) bool, addr gekko.Address, gqr gekko.GQRField, p gekko.Paired, w bool) (bool, uint32) {
	size := elementSize(gqr.Type)
	writeN := func(off uint32, raw []byte) bool {
		for i, b := range raw {
			if !write(addr+gekko.Address(off)+gekko.Address(i), b) {
				return false
			}
		}
		return true
	}

	if !writeN(0, encodeElement(p.PS0, gqr.Type, gqr.Scale)) {
		return false, 0
	}
	if w {
		return true, uint32(size)
	}
	if !writeN(uint32(size), encodeElement(p.PS1, gqr.Type, gqr.Scale)) {
		return false, 0
	}
	return true, uint32(size) * 2
}
