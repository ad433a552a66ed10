package system

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// Guest-visible hardware register addresses. Real GameCube hardware
// spreads PI/VI/DSP/etc. across 0xCC00_0000..0xCC00_6FFF and exposes the
// GX command FIFO as a write-gather pipe at 0xCC00_8000; these are
// reconstructed at the same level of confidence as internal/gx/regs.go's
// CP/BP layout (well-known addresses, not pack-sourced byte-for-byte).
//
// Only word-sized (32-bit) accesses are decoded here — the guest code
// this core targets addresses hardware registers with stwx/lwz, never
// byte or halfword MMIO accesses, so 8/16-bit hooks fall through to
// mem.Memory's normal region dispatch (reading zero, discarding writes)
// rather than duplicating this table at three widths.
const (
	regPICause = 0xCC00_3000
	regPIMask  = 0xCC00_3004

	regGXFifoBase   = 0xCC00_8000
	regGXFifoLength = 0xCC00_8004

	// regDSPMailboxOut is the CPU-facing view of the CPU->DSP mailbox:
	// the guest writes a command's low half here to hand it to the DSP
	// and polls the high half's ready bit to learn when the DSP has
	// consumed it. internal/jit.MailboxStatusAddr names this same
	// literal address for its GetMailboxStatusFunc short-circuit; the
	// two aren't wired by import (system already depends on jit) but
	// must agree on the address.
	regDSPMailboxOut = 0xCC00_5000
)

// mmioRead8/16 never intercept; see the comment on the register constants above.
func (s *System) mmioRead8(gekko.Address) (uint8, bool)   { return 0, false }
func (s *System) mmioRead16(gekko.Address) (uint16, bool) { return 0, false }

func (s *System) mmioRead32(addr gekko.Address) (uint32, bool) {
	switch uint32(addr) {
	case regPICause:
		return s.IO.PI.CauseBits(), true
	case regPIMask:
		return s.IO.PI.MaskBits(), true
	case regDSPMailboxOut:
		return uint32(s.DSP.FromCPU.High)<<16 | uint32(s.DSP.FromCPU.Low), true
	}
	return 0, false
}

// mmioWrite8/16 never intercept; see the comment on the register constants above.
func (s *System) mmioWrite8(gekko.Address, uint8) bool   { return false }
func (s *System) mmioWrite16(gekko.Address, uint16) bool { return false }

func (s *System) mmioWrite32(addr gekko.Address, v uint32) bool {
	switch uint32(addr) {
	case regPICause:
		// Real PI_INTSR causes are hardware-driven status bits, not
		// directly settable by the guest (aside from the reset-switch
		// bit this model doesn't implement); a write here is a no-op
		// rather than silently falling through to RAM.
		return true
	case regPIMask:
		s.IO.PI.SetMaskBits(v)
		return true
	case regGXFifoBase:
		s.gxFifoBase = v
		return true
	case regGXFifoLength:
		s.flushGXFifo(v)
		return true
	case regDSPMailboxOut:
		s.DSP.FromCPU.WriteLow(uint16(v))
		return true
	}
	return false
}

// flushGXFifo reads a just-completed command buffer out of main RAM and
// hands it to the graphics command processor in one shot. This models
// the CPU's FIFO submission as "write base, then write length to
// trigger," rather than the real write-gather pipe's byte-at-a-time
// streaming — gx.Processor.Push expects whole, well-formed command
// sequences (see internal/gx's tests), and this is the simplest register
// contract that guarantees that precondition without teaching Processor
// to suspend mid-command.
func (s *System) flushGXFifo(length uint32) {
	if length == 0 {
		return
	}
	ram := s.Mem.RAM()
	base := int(s.gxFifoBase)
	if base < 0 || base >= len(ram) {
		return
	}
	end := base + int(length)
	if end > len(ram) {
		end = len(ram)
	}
	buf := make([]byte, end-base)
	copy(buf, ram[base:end])
	s.GX.Push(buf)
}
