package gekko

// Ins wraps a raw 32-bit big-endian instruction word and exposes the
// field accessors every PowerPC instruction form needs. It never
// interprets the opcode itself — that dispatch lives in package jit's
// compiler — it only slices bits.
type Ins uint32

func bits(v uint32, hi, lo uint) uint32 {
	n := hi - lo + 1
	mask := uint32(1)<<n - 1
	return (v >> lo) & mask
}

// Opcode returns the primary 6-bit opcode field (bits 0..5).
func (i Ins) Opcode() uint32 { return bits(uint32(i), 31, 26) }

// Ext returns the extended opcode field (bits 21..30), used by most
// opcode-31/opcode-63 forms.
func (i Ins) Ext() uint32 { return bits(uint32(i), 10, 1) }

// ExtLong returns the 10-bit extended opcode used by XO-form and X-form
// instructions (bits 21..30, inclusive, matching PowerPC's usual layout).
func (i Ins) ExtLong() uint32 { return bits(uint32(i), 10, 1) }

// RD returns the 5-bit rD field (bits 6..10).
func (i Ins) RD() uint32 { return bits(uint32(i), 25, 21) }

// RS returns the 5-bit rS field (same bit position as rD).
func (i Ins) RS() uint32 { return i.RD() }

// RA returns the 5-bit rA field (bits 11..15).
func (i Ins) RA() uint32 { return bits(uint32(i), 20, 16) }

// RB returns the 5-bit rB field (bits 16..20).
func (i Ins) RB() uint32 { return bits(uint32(i), 15, 11) }

// FD, FA, FB, FC mirror RD/RA/RB/RC but are named for floating-point forms
// for readability at call sites; they occupy the same bit positions.
func (i Ins) FD() uint32 { return i.RD() }
func (i Ins) FA() uint32 { return i.RA() }
func (i Ins) FB() uint32 { return i.RB() }
func (i Ins) FC() uint32 { return bits(uint32(i), 10, 6) }

// SIMM returns the 16-bit immediate field sign-extended to 32 bits.
func (i Ins) SIMM() int32 { return int32(int16(uint16(i))) }

// UIMM returns the 16-bit immediate field zero-extended to 32 bits.
func (i Ins) UIMM() uint32 { return uint32(i) & 0xFFFF }

// Offset is an alias of SIMM for D-form load/store instructions.
func (i Ins) Offset() int32 { return i.SIMM() }

// SH returns the 5-bit shift amount field used by rotate/shift forms.
func (i Ins) SH() uint32 { return bits(uint32(i), 15, 11) }

// MB returns the 5-bit mask-begin field.
func (i Ins) MB() uint32 { return bits(uint32(i), 10, 6) }

// ME returns the 5-bit mask-end field.
func (i Ins) ME() uint32 { return bits(uint32(i), 5, 1) }

// SPRNum returns the combined 10-bit SPR field as encoded (low 5 bits,
// high 5 bits swapped per the PowerPC encoding quirk) in a single value
// ready to feed SPRFromField.
func (i Ins) SPRNum() uint32 {
	raw := bits(uint32(i), 20, 11)
	return ((raw & 0x1F) << 5) | (raw >> 5)
}

// LI returns the 24-bit branch target field (bits 6..29) sign-extended,
// still shifted left two bits (word-aligned).
func (i Ins) LI() int32 {
	raw := bits(uint32(i), 25, 2)
	v := int32(raw << 8) >> 8 // sign-extend 24 bits
	return v << 2
}

// BD returns the 14-bit conditional-branch displacement field, sign
// extended and word-aligned.
func (i Ins) BD() int32 {
	raw := bits(uint32(i), 15, 2)
	v := int32(raw<<18) >> 18
	return v << 2
}

// BO returns the 5-bit branch-options field.
func (i Ins) BO() uint32 { return bits(uint32(i), 25, 21) }

// BI returns the 5-bit condition-bit-index field for conditional
// branches.
func (i Ins) BI() uint32 { return bits(uint32(i), 20, 16) }

// AA reports whether the branch target is absolute rather than relative.
func (i Ins) AA() bool { return bits(uint32(i), 1, 1) != 0 }

// LK reports whether the branch updates the link register.
func (i Ins) LK() bool { return bits(uint32(i), 0, 0) != 0 }

// Rc reports whether an arithmetic/logical instruction updates CR0.
func (i Ins) Rc() bool { return bits(uint32(i), 0, 0) != 0 }

// OE reports whether an XO-form arithmetic instruction updates XER
// overflow.
func (i Ins) OE() bool { return bits(uint32(i), 10, 10) != 0 }

// CRFD returns the 3-bit destination condition-register field index.
func (i Ins) CRFD() uint32 { return bits(uint32(i), 25, 23) }

// CRFS returns the 3-bit source condition-register field index.
func (i Ins) CRFS() uint32 { return bits(uint32(i), 20, 18) }

// GQRIndex returns the 3-bit GQR selector used by psq_l/psq_st forms.
func (i Ins) GQRIndex() uint32 { return bits(uint32(i), 14, 12) }

// PSW reports the "w" flag of a paired-single quantized transfer: when
// set, only one element (not two) is transferred.
func (i Ins) PSW() bool { return bits(uint32(i), 15, 15) != 0 }

// PSOffset returns the 12-bit displacement used by paired-single
// quantized load/store forms. Unlike SIMM/Offset this field is not
// sign-extended per the PowerPC manual's psq_l/psq_st definition.
func (i Ins) PSOffset() int32 {
	return int32(bits(uint32(i), 11, 0))
}

// Decode splits a raw big-endian instruction word into the two values
// most compile-time dispatch needs: the primary opcode and, for
// extended-opcode families, the secondary opcode.
func Decode(word uint32) (ins Ins, primary, ext uint32) {
	ins = Ins(word)
	return ins, ins.Opcode(), ins.Ext()
}
