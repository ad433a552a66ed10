package system

import (
	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/mem"
)

// dspRAM adapts mem.Memory's gekko.Address-typed accessors to dsp.RAM's
// plain uint32 addressing, so dsp.DMA.RunDMA and dsp.BootMicrocodeDMA can
// read/write main memory without internal/dsp importing internal/mem or
// internal/gekko (it is deliberately address-type-agnostic, per its own
// package boundary).
type dspRAM struct{ mem *mem.Memory }

func (r dspRAM) Read16(addr uint32) uint16 { return r.mem.Read16(gekko.Address(addr)) }
func (r dspRAM) Write16(addr uint32, v uint16) { r.mem.Write16(gekko.Address(addr), v) }
