package iface

import "github.com/hemisphere-go/hemisphere/internal/sched"

// Frequency is the guest CPU's fixed clock rate, used to convert video
// sample/halfline/field periods into scheduler cycles (original_source
// video.rs's common::arch::FREQUENCY).
const Frequency = 486_000_000

// VideoFormat selects the scanout timing family (spec §4.8: "the
// current video format").
type VideoFormat int

const (
	FormatNTSC VideoFormat = iota
	FormatPal50
	FormatPal60
	FormatDebug
)

// DisplayInterrupt is one of VI's four configurable scanline-matched
// interrupts (spec §4.8: "up to four configurable display interrupts").
type DisplayInterrupt struct {
	HorizontalCount uint16
	VerticalCount   uint16
	Enable          bool
	Status          bool
}

// FieldTiming is one field's pre/post blanking interval, in halflines.
type FieldTiming struct {
	PreBlanking  uint16
	PostBlanking uint16
}

// VI models the video interface's timing and interrupt registers
// (spec §4.8, ported from original_source/hemisphere/src/system/video.go).
type VI struct {
	Enable       bool
	Progressive  bool
	Format       VideoFormat
	EqualizationPulse   uint8
	ActiveVideoLines    uint16
	HalflineWidth       uint16
	SyncStartToBlankEnd uint16
	HalflineToBlankStart uint16

	OddField, EvenField FieldTiming

	VerticalCount   uint16
	HorizontalCount uint16
	Interrupts      [4]DisplayInterrupt

	XFBStrideBy16 uint8
	XFBWidthBy16  uint8
	DoubleClock   bool

	sched *sched.Scheduler
	pi    *PI
}

// NewVI returns a VI wired to sched for its periodic vertical-count
// event and to pi for raising the video interrupt source.
func NewVI(sc *sched.Scheduler, pi *PI) *VI {
	return &VI{sched: sc, pi: pi}
}

func (v *VI) videoClock() uint32 {
	if v.DoubleClock {
		return 54_000_000
	}
	return 27_000_000
}

// CyclesPerSample is how many CPU cycles one video sample (~pixel)
// takes at the current clock.
func (v *VI) CyclesPerSample() uint32 {
	return 2 * Frequency / v.videoClock()
}

// CyclesPerHalfline is how many CPU cycles one halfline takes.
func (v *VI) CyclesPerHalfline() uint32 {
	return v.CyclesPerSample() * uint32(v.HalflineWidth)
}

func (v *VI) halflinesPerField(f FieldTiming) uint32 {
	return 3*uint32(v.EqualizationPulse) + uint32(f.PreBlanking) +
		2*uint32(v.ActiveVideoLines) + uint32(f.PostBlanking)
}

// HalflinesPerFrame is the total halfline count of a frame, counting
// both fields unless progressive scan is enabled.
func (v *VI) HalflinesPerFrame() uint32 {
	total := v.halflinesPerField(v.EvenField)
	if !v.Progressive {
		total += v.halflinesPerField(v.OddField)
	}
	return total
}

// SetEnable updates VI's enable bit and (re)schedules or cancels the
// vertical-count tick accordingly (spec §4.8: "on enable, schedule a
// vertical-count event whose period equals the cycles-per-halfline
// derived from sample-clock, horizontal timing, and the current video
// format").
func (v *VI) SetEnable(enable bool) {
	v.Enable = enable
	v.HorizontalCount = 1
	v.VerticalCount = 1
	if v.sched != nil {
		v.sched.Cancel(v.tick)
	}
	if enable && v.sched != nil {
		v.scheduleTick()
	}
}

func (v *VI) scheduleTick() {
	period := int64(v.CyclesPerHalfline())
	if period <= 0 {
		period = 1
	}
	v.sched.Schedule(period, v.tick, 0)
}

// tick advances the virtual scanline by one halfline, checks the four
// display interrupts, and reschedules itself (spec §4.8).
func (v *VI) tick(int) {
	v.VerticalCount++
	frame := v.HalflinesPerFrame()
	if frame > 0 && uint32(v.VerticalCount) > frame {
		v.VerticalCount = 1
	}
	v.checkDisplayInterrupts()
	if v.Enable {
		v.scheduleTick()
	}
}

func (v *VI) checkDisplayInterrupts() bool {
	raised := false
	for i := range v.Interrupts {
		in := &v.Interrupts[i]
		if in.Enable && in.VerticalCount == v.VerticalCount {
			in.Status = true
			raised = true
		}
	}
	if raised && v.pi != nil {
		v.pi.SetCause(SourceVideo, true)
	}
	return raised
}

// AckInterrupt clears one display interrupt's status bit (a guest
// write-to-clear). If no interrupt remains asserted, the PI video
// cause is cleared too.
func (v *VI) AckInterrupt(index int) {
	v.Interrupts[index].Status = false
	for i := range v.Interrupts {
		if v.Interrupts[i].Status {
			return
		}
	}
	if v.pi != nil {
		v.pi.SetCause(SourceVideo, false)
	}
}

// XFBWidth returns the external-framebuffer scanout width in texels,
// falling back to the horizontal-timing-derived width when the width
// register is unset.
func (v *VI) XFBWidth() uint16 {
	width := uint16(v.XFBWidthBy16) * 16
	if width != 0 {
		return width
	}
	return v.HalflineWidth + v.HalflineToBlankStart - v.SyncStartToBlankEnd
}

// XFBHeight returns the external-framebuffer scanout height in lines.
func (v *VI) XFBHeight() uint16 {
	if v.Progressive {
		return v.ActiveVideoLines
	}
	return 2 * v.ActiveVideoLines
}
