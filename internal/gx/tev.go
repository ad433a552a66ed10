package gx

// TevCombineOp selects the shape of one color or alpha stage operation
// (spec §3's "affine combination ... or a comparative form").
type TevCombineOp int

const (
	TevOpAffine TevCombineOp = iota
	TevOpCompare
)

// TevInput names where a stage's A/B/C/D operand is drawn from (spec
// §3: "four per-stage registers {R0..R3}, last texture sample, last
// rasterized color channel, a constant selector, and fixed constants").
type TevInput int

const (
	TevInputR0 TevInput = iota
	TevInputR1
	TevInputR2
	TevInputR3
	TevInputTexture
	TevInputRasterColor
	TevInputConstant
	TevInputZero
	TevInputOne
	TevInputHalf
)

// TevCompareTarget selects the comparison function for a comparative
// stage (spec §3's "(target(A) op target(B)) ? C : D").
type TevCompareTarget int

const (
	TevCompareR8 TevCompareTarget = iota
	TevCompareGR16
	TevCompareBGR24
	TevCompareRGB8
)

// TevStageOp is one color or alpha half of a TEV stage.
type TevStageOp struct {
	Kind   TevCombineOp
	A, B, C, D TevInput
	Sign   int8 // +1 or -1 for affine
	Bias   float32
	Scale  float32
	Clamp  bool
	Compare TevCompareTarget
	OutReg TevInput // one of R0..R3
}

// TevStage pairs one color and one alpha operation (spec §3).
type TevStage struct {
	Color TevStageOp
	Alpha TevStageOp
}

// TevConfig is the processor's live TEV state: the active stage count
// and every configured stage (spec §4.7: "active stage count (1..16)
// and per-stage operations form a specialization key").
type TevConfig struct {
	StageCount int
	Stages     [16]TevStage
}

// TevSpecialization is the representation the renderer keys its
// pipeline cache on: the active stages, sliced to StageCount. Register
// choices are kept as configured, so two configurations that perform
// the same operations through different R0..R3 registers produce
// different specializations; identical configurations always produce
// identical ones.
type TevSpecialization struct {
	Stages []TevStage
}

// Canonical returns the specialization key for the processor's current
// TEV configuration.
func (c TevConfig) Canonical() TevSpecialization {
	n := c.StageCount
	if n > len(c.Stages) {
		n = len(c.Stages)
	}
	out := make([]TevStage, n)
	copy(out, c.Stages[:n])
	return TevSpecialization{Stages: out}
}
