package renderer

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gx"
)

func TestSpecializationKeyDeterministic(t *testing.T) {
	spec := gx.TevConfig{
		StageCount: 2,
		Stages: [16]gx.TevStage{
			{Color: gx.TevStageOp{Kind: gx.TevOpAffine, A: gx.TevInputTexture, OutReg: gx.TevInputR0}},
			{Color: gx.TevStageOp{Kind: gx.TevOpCompare, A: gx.TevInputRasterColor, OutReg: gx.TevInputR1}},
		},
	}.Canonical()

	k1 := specializationKey(spec)
	k2 := specializationKey(spec)
	if k1 != k2 {
		t.Fatalf("specializationKey is not deterministic: %q vs %q", k1, k2)
	}
}

func TestSpecializationKeyDiffersOnDifferentStages(t *testing.T) {
	a := gx.TevConfig{StageCount: 1, Stages: [16]gx.TevStage{{Color: gx.TevStageOp{Kind: gx.TevOpAffine}}}}.Canonical()
	b := gx.TevConfig{StageCount: 1, Stages: [16]gx.TevStage{{Color: gx.TevStageOp{Kind: gx.TevOpCompare}}}}.Canonical()
	if specializationKey(a) == specializationKey(b) {
		t.Fatalf("expected different specializations to produce different keys")
	}
}

func TestSpecializationKeyDiffersOnStageCount(t *testing.T) {
	one := gx.TevConfig{StageCount: 1, Stages: [16]gx.TevStage{{}}}.Canonical()
	two := gx.TevConfig{StageCount: 2, Stages: [16]gx.TevStage{{}, {}}}.Canonical()
	if specializationKey(one) == specializationKey(two) {
		t.Fatalf("expected stage count to affect the key")
	}
}
