package iface

import "github.com/hemisphere-go/hemisphere/internal/sched"

// DI, AI, and EXI are modeled only to the granularity the JIT's
// software collaborators need (spec §4.8: "Disk, Audio, External:
// command registers whose effects are modeled only to the granularity
// required by the JIT's software collaborators") — enough that a guest
// can issue a command, see it complete after a scheduled delay, and
// observe/acknowledge the resulting interrupt, without modeling real
// disk or audio data transfer.

// DI models the disk interface's command/status registers.
type DI struct {
	Status        uint32
	Cover         uint32
	CommandBuf    [3]uint32
	Length        uint32
	TransferAddr  uint32
	Busy          bool

	sched *sched.Scheduler
	pi    *PI
}

// NewDI returns a DI wired to sched and pi for command completion.
func NewDI(sc *sched.Scheduler, pi *PI) *DI { return &DI{sched: sc, pi: pi} }

// Execute begins a disk command; the completion interrupt fires after
// delay cycles, mirroring the latency-by-schedule pattern si.rs and
// dspi.rs both use for deferred hardware effects.
func (d *DI) Execute(delay int64) {
	if d.Busy {
		return
	}
	d.Busy = true
	if d.sched != nil {
		d.sched.Schedule(delay, d.complete, 0)
	} else {
		d.complete(0)
	}
}

func (d *DI) complete(int) {
	d.Busy = false
	d.Status |= 1
	if d.pi != nil {
		d.pi.SetCause(SourceDI, true)
	}
}

// Ack clears DI's completion status and the aggregated interrupt
// cause.
func (d *DI) Ack() {
	d.Status &^= 1
	if d.pi != nil {
		d.pi.SetCause(SourceDI, false)
	}
}

// AI models the audio interface's streaming sample-rate and DMA
// control registers (ported alongside dspi.rs's DSP/AI interrupt
// bits; audio data transfer itself is out of scope per spec.md's
// Non-goals).
type AI struct {
	SampleRate32kHz bool
	PlayEnable      bool
	DMARunning      bool
	SampleCounter   uint32
	InterruptMask   bool
	Interrupt       bool

	pi *PI
}

// NewAI returns an AI wired to pi for its interrupt cause.
func NewAI(pi *PI) *AI { return &AI{pi: pi} }

// SetInterrupt raises or acknowledges the AI streaming interrupt.
func (a *AI) SetInterrupt(active bool) {
	a.Interrupt = active
	if a.pi != nil {
		a.pi.SetCause(SourceAI, active && a.InterruptMask)
	}
}

// EXIDevice identifies what, if anything, is attached to an EXI
// channel (memory card, etc.) — only enough to let a guest probe
// channel presence, per spec §4.8's granularity note.
type EXIDevice int

const (
	EXINone EXIDevice = iota
	EXIMemoryCard
)

// EXI models one expansion-interface channel's control/status and
// immediate-data registers.
type EXI struct {
	Device       EXIDevice
	CSLine       bool
	TransferBusy bool
	ImmediateData uint32

	sched *sched.Scheduler
	pi    *PI
}

// NewEXI returns an EXI channel wired to sched and pi.
func NewEXI(sc *sched.Scheduler, pi *PI) *EXI { return &EXI{sched: sc, pi: pi} }

// Transfer begins an immediate-mode EXI transfer, completing after
// delay cycles.
func (e *EXI) Transfer(delay int64) {
	e.TransferBusy = true
	if e.sched != nil {
		e.sched.Schedule(delay, e.complete, 0)
	} else {
		e.complete(0)
	}
}

func (e *EXI) complete(int) {
	e.TransferBusy = false
	if e.pi != nil {
		e.pi.SetCause(SourceEXI, true)
	}
}

// Ack clears EXI's aggregated interrupt cause.
func (e *EXI) Ack() {
	if e.pi != nil {
		e.pi.SetCause(SourceEXI, false)
	}
}
