// internal/status/encode_test.go
package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{
		Health:     HealthFault,
		GreenOn:    true,
		SlotRed:    true,
		GreenRate:  0xFFFF,
		RedRate:    3,
		Ticks:      0x0001_0002,
		Overruns:   4,
		Violations: 5,
		Faults:     6,
		Latched:    LatchedOverCurrent,
	})

	require.Len(t, regs, SlotsPerBlock)
	require.Equal(t, HealthFault, regs[SlotHealthCode])
	require.Equal(t, LedGreenOn|LedSlotRed, regs[SlotLeds])
	require.Equal(t, uint16(0xFFFF), regs[SlotGreenRate])
	require.Equal(t, uint16(3), regs[SlotRedRate])
	require.Equal(t, uint16(1), regs[SlotTicksHi])
	require.Equal(t, uint16(2), regs[SlotTicksLo])
	require.Equal(t, uint16(4), regs[SlotOverruns])
	require.Equal(t, uint16(5), regs[SlotViolations])
	require.Equal(t, uint16(6), regs[SlotFaults])
	require.Equal(t, LatchedOverCurrent, regs[SlotLatched])

	for i := SlotDeviceNameStart; i <= SlotDeviceNameEnd; i++ {
		require.Zero(t, regs[i])
	}
}

func TestEncodeDeviceName(t *testing.T) {
	regs := EncodeDeviceName("2FOC-01\x01 and a long tail")
	require.Len(t, regs, SlotDeviceNameSlots)
	require.Equal(t, uint16('2')<<8|uint16('F'), regs[0])
	// control byte replaced
	require.Equal(t, uint16('1')<<8|uint16('?'), regs[3])
}

func TestSaturate(t *testing.T) {
	require.Equal(t, uint16(7), Saturate(7))
	require.Equal(t, uint16(0xFFFF), Saturate(1<<20))
}
