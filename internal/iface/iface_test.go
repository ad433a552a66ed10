package iface

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/sched"
)

func TestPIAggregatesMaskedSources(t *testing.T) {
	var lastPending bool
	changes := 0
	pi := NewPI()
	pi.OnChange = func(p bool) { lastPending = p; changes++ }

	pi.SetMask(SourceVideo, false)
	pi.SetCause(SourceVideo, true)
	if pi.Pending() {
		t.Fatal("masked source should not assert pending")
	}

	pi.SetMask(SourceVideo, true)
	if !pi.Pending() || !lastPending {
		t.Fatal("unmasking an already-raised cause should assert pending")
	}
	if changes != 1 {
		t.Fatalf("OnChange fired %d times, want 1 (masked SetCause must not transition)", changes)
	}

	pi.SetCause(SourceVideo, false)
	if pi.Pending() {
		t.Fatal("clearing the only cause should drop pending")
	}
}

func TestVIRaisesDisplayInterruptAtMatchingScanline(t *testing.T) {
	sc := sched.New()
	pi := NewPI()
	vi := NewVI(sc, pi)
	vi.HalflineWidth = 10
	vi.ActiveVideoLines = 4
	vi.EvenField.PreBlanking = 1
	vi.EvenField.PostBlanking = 1
	vi.Interrupts[0] = DisplayInterrupt{VerticalCount: 2, Enable: true}

	vi.SetEnable(true)

	for i := 0; i < 5 && !pi.Pending(); i++ {
		h, _, ok := sc.PopReady()
		if !ok {
			sc.Advance(int64(vi.CyclesPerHalfline()))
			continue
		}
		h(0)
	}

	if !pi.Pending() {
		t.Fatal("PI should be pending once VI's vertical count reaches the configured interrupt")
	}
	if !vi.Interrupts[0].Status {
		t.Fatal("display interrupt 0 status bit should be set")
	}

	vi.AckInterrupt(0)
	if pi.Pending() {
		t.Fatal("acking the only asserted display interrupt should clear PI's video cause")
	}
}

func TestSIPollProducesInputReadySnapshot(t *testing.T) {
	sc := sched.New()
	pi := NewPI()
	si := NewSI(sc, pi)
	si.Poll.PortEnable[0] = true
	si.Controllers[0] = func() (ControllerState, bool) {
		return ControllerState{A: true, AnalogX: 0x80, AnalogY: 0x7F}, true
	}

	si.PollChannel(0)

	if !si.Status[0].InputReady {
		t.Fatal("polling an enabled channel with a connected controller should set input-ready")
	}
	if si.ChannelInputHigh[0]&(1<<24) == 0 {
		t.Fatal("button A bit should be set in the high input word")
	}
}

func TestSITransferCompletesAfterScheduledDelay(t *testing.T) {
	sc := sched.New()
	pi := NewPI()
	si := NewSI(sc, pi)
	si.Buffer[0] = 0x00 // Info command

	si.WriteCommControl(CommControl{TransferStart: true, TransferInterruptMask: true})
	if si.Comm.TransferInterrupt {
		t.Fatal("transfer should not complete synchronously")
	}

	h, _, ok := sc.PopReady()
	if ok {
		t.Fatal("transfer-complete event should not be ready before its 200-cycle delay elapses")
	}
	sc.Advance(200)
	h, _, ok = sc.PopReady()
	if !ok {
		t.Fatal("transfer-complete event should be ready after 200 cycles")
	}
	h(0)

	if !si.Comm.TransferInterrupt {
		t.Fatal("transfer interrupt should be set once the command completes")
	}
	if !pi.Pending() {
		t.Fatal("PI should reflect the unmasked transfer interrupt")
	}
}

func TestDIExecuteSchedulesCompletion(t *testing.T) {
	sc := sched.New()
	pi := NewPI()
	di := NewDI(sc, pi)

	di.Execute(50)
	if !di.Busy {
		t.Fatal("DI should be busy immediately after Execute")
	}
	sc.Advance(50)
	h, _, ok := sc.PopReady()
	if !ok {
		t.Fatal("DI completion event should be ready after 50 cycles")
	}
	h(0)
	if di.Busy {
		t.Fatal("DI should no longer be busy after completion")
	}
	if !pi.Pending() {
		t.Fatal("PI should reflect DI's completion interrupt")
	}
	di.Ack()
	if pi.Pending() {
		t.Fatal("acking DI should clear PI's cause")
	}
}
