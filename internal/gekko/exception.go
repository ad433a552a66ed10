package gekko

// Exception identifies a guest exception vector. The values are dense
// indices; Vector() looks up the PowerPC 603/750-family vector offset
// for each one in vectorOffsets.
type Exception uint32

const (
	ExceptionReset Exception = iota
	ExceptionMachineCheck
	ExceptionDSI
	ExceptionISI
	ExceptionExternalInterrupt
	ExceptionAlignment
	ExceptionProgram
	ExceptionFPUnavailable
	ExceptionDecrementer
	ExceptionSystemCall
	ExceptionTrace
	ExceptionPerformanceMonitor
	ExceptionIABR
	ExceptionThermal
)

var vectorOffsets = map[Exception]uint32{
	ExceptionReset:              0x0100,
	ExceptionMachineCheck:       0x0200,
	ExceptionDSI:                0x0300,
	ExceptionISI:                0x0400,
	ExceptionExternalInterrupt:  0x0500,
	ExceptionAlignment:          0x0600,
	ExceptionProgram:            0x0700,
	ExceptionFPUnavailable:      0x0800,
	ExceptionDecrementer:        0x0900,
	ExceptionSystemCall:         0x0C00,
	ExceptionTrace:              0x0D00,
	ExceptionPerformanceMonitor: 0x0F00,
	ExceptionIABR:               0x1300,
	ExceptionThermal:            0x1700,
}

// Vector returns the guest address execution resumes at for this
// exception, honoring the exception-prefix MSR bit (vectors live at
// 0xFFFnnnnn rather than 0x000nnnnn when set).
func (e Exception) Vector(prefix bool) Address {
	off := vectorOffsets[e]
	if prefix {
		return Address(0xFFF0_0000 | off)
	}
	return Address(off)
}

// Raise performs the standard PowerPC exception entry sequence: save PC
// and MSR to SRR0/SRR1, clear translation and external-interrupt-enable,
// and jump to the vector. Callers (JIT hooks) are expected to have
// already set DAR/DSISR for faults that need them.
func (r *Regs) Raise(e Exception) {
	r.SRR0 = r.PC
	r.SRR1 = packMSR(r.MSR)
	r.MSR.DataAddrTranslation = false
	r.MSR.InstrAddrTranslation = false
	r.MSR.ExternalInterrupts = false
	r.MSR.RecoverableException = false
	r.PC = uint32(e.Vector(r.MSR.ExceptionPrefix))
}

func packMSR(m MSR) uint32 {
	var v uint32
	set := func(bit uint, cond bool) {
		if cond {
			v |= 1 << (31 - bit)
		}
	}
	set(0, m.LittleEndian)
	set(1, m.RecoverableException)
	set(4, m.DataAddrTranslation)
	set(5, m.InstrAddrTranslation)
	set(6, m.ExceptionPrefix)
	set(8, m.FloatExceptionMode1)
	set(11, m.FloatExceptionMode0)
	set(12, m.MachineCheck)
	set(13, m.FloatAvailable)
	set(14, m.UserMode)
	set(15, m.ExternalInterrupts)
	set(16, m.ExceptionLittleEndian)
	return v
}

// UnpackMSR reverses packMSR, used when restoring MSR from SRR1 (rfi).
func UnpackMSR(v uint32) MSR {
	get := func(bit uint) bool { return v&(1<<(31-bit)) != 0 }
	return MSR{
		LittleEndian:          get(0),
		RecoverableException:  get(1),
		DataAddrTranslation:   get(4),
		InstrAddrTranslation:  get(5),
		ExceptionPrefix:       get(6),
		FloatExceptionMode1:   get(8),
		FloatExceptionMode0:   get(11),
		MachineCheck:          get(12),
		FloatAvailable:        get(13),
		UserMode:              get(14),
		ExternalInterrupts:    get(15),
		ExceptionLittleEndian: get(16),
	}
}

// PackMSR exposes packMSR for callers outside the package (the JIT's
// mtmsr/mfmsr emission and the debugger).
func PackMSR(m MSR) uint32 { return packMSR(m) }
