// Package system wires the guest CPU, memory, JIT, DSP, graphics
// processor, and interface units into the single live machine the rest
// of the emulator drives one frame at a time — the Go counterpart of
// original_source/hemisphere/src/system.rs's System struct.
package system

import (
	"fmt"
	"log"
	"os"

	"github.com/hemisphere-go/hemisphere/internal/dsp"
	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/gx"
	"github.com/hemisphere-go/hemisphere/internal/iface"
	"github.com/hemisphere-go/hemisphere/internal/jit"
	"github.com/hemisphere-go/hemisphere/internal/mem"
	"github.com/hemisphere-go/hemisphere/internal/sched"
)

// dspClockDivisor approximates the DSP's clock as a fixed fraction of
// the CPU's (roughly 81 MHz against a 486 MHz CPU clock); RunFrame steps
// the DSP this many times less often than it accounts CPU cycles. It is
// a deliberate approximation, not a measured ratio.
const dspClockDivisor = 6

// System is the live machine: every component New wires together, plus
// the guest-visible MMIO state (internal/system/mmio.go) and the
// jit.Hooks bridge (internal/system/hooks.go) that let compiled blocks
// reach all of it. RunFrame owns the only live mutable reference; JIT
// hooks mutate it synchronously from inside Execute.
type System struct {
	Regs  *gekko.Regs
	Mem   *mem.Memory
	Sched *sched.Scheduler
	JIT   *jit.JIT
	DSP   *dsp.Interpreter
	GX    *gx.Processor
	IO    *iface.Units

	Actions chan gx.Action

	gxFifoBase uint32

	logger *log.Logger
}

// Config holds the construction-time parameters New consumes, populated
// by functional Options rather than exported fields, so new knobs don't
// break callers (the same shape legacy/coprocessor_manager.go uses for
// its own options).
type Config struct {
	frequency      uint64
	iplPath        string
	logger         *log.Logger
	instrsPerBlock int
	actionBuffer   int
}

func defaultConfig() Config {
	return Config{
		frequency:      gekko.Frequency,
		logger:         log.Default(),
		instrsPerBlock: 64,
		actionBuffer:   256,
	}
}

// Option mutates a Config during New.
type Option func(*Config)

// WithFrequency overrides the CPU clock used to convert wall-clock
// timing into cycle budgets (spec's FREQUENCY configuration item).
func WithFrequency(hz uint64) Option {
	return func(c *Config) { c.frequency = hz }
}

// WithIPL points New at an on-disk IPL image to load into the boot ROM
// window; without it the system comes up with a zeroed IPL region.
func WithIPL(path string) Option {
	return func(c *Config) { c.iplPath = path }
}

// WithLogger overrides the default stderr logger every component shares.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithInstrsPerBlock overrides the JIT's block-length cap.
func WithInstrsPerBlock(n int) Option {
	return func(c *Config) { c.instrsPerBlock = n }
}

// WithActionBuffer sizes the channel gx.Processor publishes draw/display
// actions to.
func WithActionBuffer(n int) Option {
	return func(c *Config) { c.actionBuffer = n }
}

// New builds a fully wired System: memory, registers, scheduler, both
// cores, the graphics processor, and every interface unit, in that
// order so each later component can be constructed against the earlier
// ones. The IPL image, if named by WithIPL, is read here; any other
// host-side failure to construct the machine is returned wrapped rather
// than panicking.
func New(opts ...Option) (*System, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var iplImage []byte
	if cfg.iplPath != "" {
		img, err := os.ReadFile(cfg.iplPath)
		if err != nil {
			return nil, fmt.Errorf("system: reading IPL image %q: %w", cfg.iplPath, err)
		}
		iplImage = img
	}

	s := &System{
		Regs:    &gekko.Regs{},
		Mem:     mem.New(iplImage, cfg.logger),
		Sched:   sched.New(),
		DSP:     dsp.New(),
		Actions: make(chan gx.Action, cfg.actionBuffer),
		logger:  cfg.logger,
	}
	s.IO = iface.New(s.Sched)
	s.GX = gx.New(s.Mem, s.Actions, cfg.logger)
	s.IO.PI.OnChange = func(bool) { s.checkExternalInterrupt() }

	s.JIT = jit.New(s.buildHooks(), jit.Config{InstrsPerBlock: cfg.instrsPerBlock})

	s.DSP.Reset(false)
	dsp.BootMicrocodeDMA(dspRAM{s.Mem}, &s.DSP.Mem)

	return s, nil
}

// checkExternalInterrupt re-evaluates PI's aggregate pending line against
// the current MSR and raises the external-interrupt exception if both
// are asserted, reporting whether it did. JIT hooks call this any time a
// state change could unmask or mask a pending cause (msrChanged) rather
// than waiting for PI.OnChange, which only fires on PI's own edges.
func (s *System) checkExternalInterrupt() bool {
	if s.IO.PI.Pending() && s.Regs.MSR.ExternalInterrupts {
		s.Regs.Raise(gekko.ExceptionExternalInterrupt)
		return true
	}
	return false
}

// RunFrame advances the machine by up to cyclesBudget CPU cycles,
// stepping the DSP and scheduler in step with it, and returns the JIT's
// own accounting of what happened (spec §5's single-threaded frame
// driver: JIT execution, scheduled-event dispatch, and DSP stepping all
// happen on this one call stack, in this order, every frame).
func (s *System) RunFrame(cyclesBudget jit.Cycles, breakpoints []gekko.Address) jit.ExecuteResult {
	instrBudget := int(cyclesBudget)
	if instrBudget <= 0 {
		instrBudget = 1
	}
	result := s.JIT.Execute(cyclesBudget, instrBudget, breakpoints)

	s.Sched.Advance(int64(result.Cycles))
	s.Sched.RunReady()

	s.stepDSP(int64(result.Cycles))

	return result
}

// stepDSP runs the DSP interpreter roughly in proportion to the CPU
// cycles RunFrame just spent, and services any outstanding RAM<->DSP DMA
// before stepping, matching the order original_source's Dsp::step uses
// (DMA completes instantaneously at the start of the slice that notices
// it, rather than spreading across steps).
func (s *System) stepDSP(cpuCycles int64) {
	if s.DSP.DMA.Ongoing {
		if s.DSP.DMA.RunDMA(dspRAM{s.Mem}, &s.DSP.Mem) {
			s.IO.PI.SetCause(iface.SourceDSP, true)
		}
	}
	steps := cpuCycles / dspClockDivisor
	for i := int64(0); i < steps; i++ {
		if s.DSP.Halted() {
			break
		}
		s.DSP.Step()
	}
}
