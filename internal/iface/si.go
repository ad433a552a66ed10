package iface

import "github.com/hemisphere-go/hemisphere/internal/sched"

// siCommand names a serial-interface protocol command (si.rs's
// Command enum).
type siCommand uint8

const (
	siInfo       siCommand = 0x00
	siPoll       siCommand = 0x40
	siGetOrigin  siCommand = 0x41
	siCalibrate  siCommand = 0x42
)

// ControllerState is a snapshot of one pad's buttons and analog axes,
// supplied by the host input layer (si.rs's StandardController, read
// from outside the core rather than modeled bit-for-bit here).
type ControllerState struct {
	AnalogX, AnalogY             uint8
	SubX, SubY                   uint8
	TriggerLeft, TriggerRight    uint8
	Left, Right, Down, Up        bool
	Z, L, R                      bool
	A, B, X, Y, Start            bool
}

// ChannelStatus is one SI channel's per-transfer status flags.
type ChannelStatus struct {
	Underrun, Overrun, Collision, NoResponse bool
	OutputNotCopied, InputReady              bool
}

// Poll is SI's device-polling configuration register (si.rs's Poll).
type Poll struct {
	CopyMode    [4]bool
	PortEnable  [4]bool
	PollPerFrame uint8
	XLines      uint16
}

// CommControl is SI's transfer-control register (si.rs's CommControl).
type CommControl struct {
	TransferStart       bool
	Channel             int
	EnableCallback      bool
	EnableCommand       bool
	InputLength         uint8
	OutputLength         uint8
	EnableChannel       bool
	ChannelNumber       int
	ReadInterruptMask    bool
	ReadInterrupt        bool
	CommunicationError   bool
	TransferInterruptMask bool
	TransferInterrupt    bool
}

// SI models the serial interface's controller-polling protocol (spec
// §4.8: "per-port last-poll snapshot buffers; poll commands produce a
// synthetic controller frame and set the port's input-ready flag"),
// ported from original_source/crates/lazuli/src/system/si.rs.
type SI struct {
	ChannelOutputData  [4]uint32
	ChannelOutputDirty [4]bool
	ChannelInputLow    [4]uint32
	ChannelInputHigh   [4]uint32
	Status             [4]ChannelStatus
	Poll               Poll
	Comm               CommControl
	Buffer             [128]byte

	Controllers [4]func() (ControllerState, bool)

	sched *sched.Scheduler
	pi    *PI
}

// NewSI returns an SI wired to sched (for the deferred transfer
// completion event) and pi (for the read/transfer interrupt causes).
func NewSI(sc *sched.Scheduler, pi *PI) *SI {
	return &SI{sched: sc, pi: pi}
}

// PollChannel samples the given channel's controller, if present and
// enabled, into its input snapshot buffer (spec §4.8's "synthetic
// controller frame").
func (s *SI) PollChannel(channel int) {
	if !s.Poll.PortEnable[channel] {
		return
	}
	source := s.Controllers[channel]
	if source == nil {
		return
	}
	c, ok := source()
	if !ok {
		return
	}

	var lo, hi uint32
	hi |= uint32(c.AnalogY)
	hi |= uint32(c.AnalogX) << 8
	setBit := func(reg *uint32, bit uint, v bool) {
		if v {
			*reg |= 1 << bit
		}
	}
	setBit(&hi, 16, c.Left)
	setBit(&hi, 17, c.Right)
	setBit(&hi, 18, c.Down)
	setBit(&hi, 19, c.Up)
	setBit(&hi, 20, c.Z)
	setBit(&hi, 21, c.R)
	setBit(&hi, 22, c.L)
	setBit(&hi, 24, c.A)
	setBit(&hi, 25, c.B)
	setBit(&hi, 26, c.X)
	setBit(&hi, 27, c.Y)
	setBit(&hi, 28, c.Start)

	lo |= uint32(c.TriggerRight) << 24
	lo |= uint32(c.TriggerLeft) << 16
	lo |= uint32(c.SubY) << 8
	lo |= uint32(c.SubX)

	s.ChannelInputLow[channel] = lo
	s.ChannelInputHigh[channel] = hi
	s.Status[channel].InputReady = true
	s.Comm.ReadInterrupt = true
	if s.pi != nil {
		s.pi.SetCause(SourceSI, s.Comm.ReadInterrupt && s.Comm.ReadInterruptMask)
	}
}

// processCommand interprets the first byte of Buffer as a siCommand
// and fills in the reply the guest expects (spec §4.8).
func (s *SI) processCommand(channel int) {
	if len(s.Buffer) == 0 {
		return
	}
	switch siCommand(s.Buffer[0]) {
	case siInfo:
		copy(s.Buffer[:3], []byte{0x09, 0x00, 0x00})
	case siPoll:
		s.PollChannel(channel)
	case siGetOrigin, siCalibrate:
		copy(s.Buffer[:10], []byte{0x00, 0x00, 0x80, 0x80, 0x80, 0x80, 0x00, 0x00, 0x00, 0x00})
	}
}

// WriteCommControl applies a CommControl write and, if it starts a
// transfer, schedules the transfer-complete event 200 cycles out (the
// fixed SI transfer latency used by si.rs's write_comm_control).
func (s *SI) WriteCommControl(value CommControl) {
	s.Comm.TransferStart = value.TransferStart
	s.Comm.Channel = value.Channel
	s.Comm.EnableCallback = value.EnableCallback
	s.Comm.EnableCommand = value.EnableCommand
	s.Comm.InputLength = value.InputLength
	s.Comm.OutputLength = value.OutputLength
	s.Comm.EnableChannel = value.EnableChannel
	s.Comm.ChannelNumber = value.ChannelNumber
	s.Comm.ReadInterruptMask = value.ReadInterruptMask
	s.Comm.ReadInterrupt = s.Comm.ReadInterrupt && !value.ReadInterrupt
	s.Comm.TransferInterruptMask = value.TransferInterruptMask
	s.Comm.TransferInterrupt = s.Comm.TransferInterrupt && !value.TransferInterrupt

	if value.TransferStart && s.sched != nil {
		s.sched.Schedule(200, s.completeTransfer, 0)
	} else if value.TransferStart {
		s.completeTransfer(0)
	}
}

func (s *SI) completeTransfer(int) {
	s.processCommand(s.Comm.Channel)
	s.Comm.TransferStart = false
	s.Comm.TransferInterrupt = true
	if s.pi != nil {
		any := (s.Comm.ReadInterrupt && s.Comm.ReadInterruptMask) ||
			(s.Comm.TransferInterrupt && s.Comm.TransferInterruptMask)
		s.pi.SetCause(SourceSI, any)
	}
}

// WriteStatus applies a copy-buffers write: for every channel whose
// output is dirty, stages its 3-byte command into Buffer and processes
// it immediately (si.rs's write_status).
func (s *SI) WriteStatus(copyBuffers bool) {
	if !copyBuffers {
		return
	}
	for ch := 0; ch < 4; ch++ {
		if !s.ChannelOutputDirty[ch] {
			continue
		}
		s.ChannelOutputDirty[ch] = false
		v := s.ChannelOutputData[ch]
		s.Buffer[0] = byte(v >> 16)
		s.Buffer[1] = byte(v >> 8)
		s.Buffer[2] = byte(v)
		s.processCommand(ch)
	}
}
