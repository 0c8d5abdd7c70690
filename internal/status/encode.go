// internal/status/encode.go
package status

// Encode converts a Snapshot into the live part of a status block.
// Name slots are left zero; the writer owns them.
// Layout is protocol-locked. No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerBlock)

	regs[SlotHealthCode] = s.Health
	regs[SlotLeds] = LedBits(s)
	regs[SlotGreenRate] = s.GreenRate
	regs[SlotRedRate] = s.RedRate
	regs[SlotTicksHi] = uint16(s.Ticks >> 16)
	regs[SlotTicksLo] = uint16(s.Ticks)
	regs[SlotOverruns] = s.Overruns
	regs[SlotViolations] = s.Violations
	regs[SlotFaults] = s.Faults
	regs[SlotLatched] = s.Latched

	return regs
}

// LedBits packs the LED flags of s.
func LedBits(s Snapshot) uint16 {
	var v uint16
	if s.GreenOn {
		v |= LedGreenOn
	}
	if s.RedOn {
		v |= LedRedOn
	}
	if s.SlotRed {
		v |= LedSlotRed
	}
	if s.Output {
		v |= LedOutput
	}
	return v
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
