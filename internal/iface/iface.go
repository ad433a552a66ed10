package iface

import "github.com/hemisphere-go/hemisphere/internal/sched"

// Units bundles every interface unit sharing one PI aggregator and
// scheduler, the shape internal/system wires up once at boot.
type Units struct {
	PI  *PI
	VI  *VI
	SI  *SI
	DI  *DI
	AI  *AI
	EXI [2]*EXI
}

// New constructs every interface unit against a common scheduler, with
// PI as the shared interrupt sink (spec §4.8).
func New(sc *sched.Scheduler) *Units {
	pi := NewPI()
	return &Units{
		PI: pi,
		VI: NewVI(sc, pi),
		SI: NewSI(sc, pi),
		DI: NewDI(sc, pi),
		AI: NewAI(pi),
		EXI: [2]*EXI{
			NewEXI(sc, pi),
			NewEXI(sc, pi),
		},
	}
}
