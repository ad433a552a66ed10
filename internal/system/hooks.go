package system

import (
	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/jit"
)

// buildHooks wires a jit.Hooks table to this System, the Go equivalent
// of original_source/cores/src/cpu/jit.rs's sysv64 hook shims: every
// field here is a closure over s rather than an extern function pointer,
// since compiled blocks are already ordinary closures running in this
// process (internal/jit's own package doc explains the substitution).
func (s *System) buildHooks() *jit.Hooks {
	return &jit.Hooks{
		GetRegisters: func() *gekko.Regs { return s.Regs },
		GetFastmem:   s.Mem.FastmemPtr,

		ReadI8:  s.readI8,
		ReadI16: s.readI16,
		ReadI32: s.readI32,
		ReadI64: s.readI64,

		WriteI8:  s.writeI8,
		WriteI16: s.writeI16,
		WriteI32: s.writeI32,
		WriteI64: s.writeI64,

		ReadQuantized:  s.readQuantized,
		WriteQuantized: s.writeQuantized,

		InvalidateICache: s.invalidateICache,
		CacheDMA:         s.cacheDMA,

		MSRChanged:  s.msrChanged,
		IBATChanged: s.ibatChanged,
		DBATChanged: s.dbatChanged,

		TBRead:     s.tbRead,
		TBChanged:  s.tbChanged,
		DECRead:    s.decRead,
		DECChanged: s.decChanged,
	}
}

// translateData resolves a guest data address to a physical one,
// following original_source's System::translate_data_addr: a
// pass-through when data address translation is off, a BAT lookup (which
// can fail) when it's on. Every read/write hook below goes through this
// single choke point; it is also where guest-visible MMIO intercepts its
// writes before they would otherwise reach mem.Memory (see mmio.go).
func (s *System) translateData(addr gekko.Address) (gekko.Address, bool) {
	if !s.Regs.MSR.DataAddrTranslation {
		return addr, true
	}
	return s.Mem.Translate(gekko.BankData, addr)
}

// readI8/16/32/64 implement jit.Hooks' fallible read contract over
// mem.Memory, which never itself reports failure (out-of-region reads
// silently return zero, by mem.Memory's own design). The only source of
// a hook-level false is translateData's BAT miss, which is exactly the
// condition compile.go's memOp turns into a DSI exception — a guest BAT
// miss faults, but a physical address with no backing region does not
// (it reads as zero / discards the write), matching real GameCube open-
// bus-ish behavior for the unmapped stretches of physical space.
func (s *System) readI8(addr gekko.Address) (uint8, bool) {
	phys, ok := s.translateData(addr)
	if !ok {
		return 0, false
	}
	if v, handled := s.mmioRead8(phys); handled {
		return v, true
	}
	return s.Mem.Read8(phys), true
}

func (s *System) readI16(addr gekko.Address) (uint16, bool) {
	phys, ok := s.translateData(addr)
	if !ok {
		return 0, false
	}
	if v, handled := s.mmioRead16(phys); handled {
		return v, true
	}
	return s.Mem.Read16(phys), true
}

func (s *System) readI32(addr gekko.Address) (uint32, bool) {
	phys, ok := s.translateData(addr)
	if !ok {
		return 0, false
	}
	if v, handled := s.mmioRead32(phys); handled {
		return v, true
	}
	return s.Mem.Read32(phys), true
}

func (s *System) readI64(addr gekko.Address) (uint64, bool) {
	phys, ok := s.translateData(addr)
	if !ok {
		return 0, false
	}
	return s.Mem.Read64(phys), true
}

func (s *System) writeI8(addr gekko.Address, v uint8) bool {
	phys, ok := s.translateData(addr)
	if !ok {
		return false
	}
	if s.mmioWrite8(phys, v) {
		return true
	}
	s.Mem.Write8(phys, v)
	s.JIT.InvalidateWrite(phys)
	return true
}

func (s *System) writeI16(addr gekko.Address, v uint16) bool {
	phys, ok := s.translateData(addr)
	if !ok {
		return false
	}
	if s.mmioWrite16(phys, v) {
		return true
	}
	s.Mem.Write16(phys, v)
	s.JIT.InvalidateWrite(phys)
	return true
}

func (s *System) writeI32(addr gekko.Address, v uint32) bool {
	phys, ok := s.translateData(addr)
	if !ok {
		return false
	}
	if s.mmioWrite32(phys, v) {
		return true
	}
	s.Mem.Write32(phys, v)
	s.JIT.InvalidateWrite(phys)
	return true
}

func (s *System) writeI64(addr gekko.Address, v uint64) bool {
	phys, ok := s.translateData(addr)
	if !ok {
		return false
	}
	s.Mem.Write64(phys, v)
	s.JIT.InvalidateWrite(phys)
	s.JIT.InvalidateWrite(phys + 4)
	return true
}

// readQuantized/writeQuantized adapt jit.GQR (the combined load+store
// register JIT code passes) down to the single GQRField LoadQuantized/
// StoreQuantized need, per element direction (spec §4.4.6).
func (s *System) readQuantized(addr gekko.Address, gqr gekko.GQR, w bool) (gekko.Paired, bool) {
	p, ok, _ := jit.LoadQuantized(s.readI8, addr, gqr.Load, w)
	return p, ok
}

func (s *System) writeQuantized(addr gekko.Address, gqr gekko.GQR, p gekko.Paired, w bool) bool {
	ok, _ := jit.StoreQuantized(s.writeI8, addr, gqr.Store, p, w)
	return ok
}

// invalidateICache forwards icbi-class invalidation straight to the JIT
// (spec §4.4.1's invalidate_icache).
func (s *System) invalidateICache(addr gekko.Address) { s.JIT.InvalidateICache(addr) }

// cacheDMA copies between main RAM and the locked cache in physical
// address space, one byte at a time through mem.Memory's own
// region-bounded accessors (§6's cache-DMA op; redesign flag 1 asks for
// one invalidation per 32-byte line touched in RAM; the loop below
// calls JIT.InvalidateWrite on every byte it writes to RAM, which
// covers every such line without extra bookkeeping).
func (s *System) cacheDMA(ramAddr, cacheAddr gekko.Address, length uint32, toCache bool) {
	for i := uint32(0); i < length; i++ {
		if toCache {
			s.Mem.Write8(cacheAddr+gekko.Address(i), s.Mem.Read8(ramAddr+gekko.Address(i)))
		} else {
			b := s.Mem.Read8(cacheAddr + gekko.Address(i))
			s.Mem.Write8(ramAddr+gekko.Address(i), b)
			s.JIT.InvalidateWrite(ramAddr + gekko.Address(i))
		}
	}
}

// msrChanged mirrors jit.rs's msr_changed hook, which re-evaluates
// pending interrupts immediately rather than waiting for the next block
// boundary (flipping ExternalInterrupts can unmask an already-pending
// PI cause).
func (s *System) msrChanged(gekko.MSR) { s.checkExternalInterrupt() }

// ibatChanged and dbatChanged mirror jit.rs's ibat_changed/dbat_changed:
// rebuild the affected translation/fastmem LUT and, for instruction
// BATs, drop every compiled block (a changed mapping can make currently
// cached code mean something else; data BAT changes only affect the
// fastmem LUT, which RebuildBATLUT already rebuilt in place).
func (s *System) ibatChanged(bats [4]gekko.Bat) {
	s.Mem.RebuildBATLUT(gekko.BankInstr, bats)
	s.JIT.InvalidateAll()
}

func (s *System) dbatChanged(bats [4]gekko.Bat) {
	s.Mem.RebuildBATLUT(gekko.BankData, bats)
}

func (s *System) tbRead() uint64     { return s.Regs.TB }
func (s *System) tbChanged(v uint64) { s.Regs.TB = v }
func (s *System) decRead() uint32    { return s.Regs.DEC }

// decChanged mirrors jit.rs's dec_changed: cancel whatever overflow
// event the previous decrementer value scheduled and schedule a fresh
// one against the new value, so writing DEC always restarts the
// countdown from the written value regardless of how much of the
// previous countdown had already elapsed.
func (s *System) decChanged(v uint32) {
	s.Regs.DEC = v
	s.Sched.Cancel(s.decrementerOverflow)
	s.Sched.Schedule(int64(v), s.decrementerOverflow, 0)
}

func (s *System) decrementerOverflow(int) {
	s.Regs.Raise(gekko.ExceptionDecrementer)
}
