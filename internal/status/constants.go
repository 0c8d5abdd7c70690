// internal/status/constants.go
package status

// Housekeeping status block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerBlock is the fixed number of registers in one status block.
const SlotsPerBlock = 18

// ---- SLOT INDICES ----

// SlotHealthCode holds the controller health state.
const SlotHealthCode = 0

// SlotLeds holds the LED bit field (see Led* bits).
const SlotLeds = 1

// SlotGreenRate and SlotRedRate hold the active blink rate words.
const SlotGreenRate = 2
const SlotRedRate = 3

// SlotTicksHi and SlotTicksLo hold the housekeeping tick counter (uint32, big-endian words).
const SlotTicksHi = 4
const SlotTicksLo = 5

// SlotOverruns holds coalesced timer raises (saturating).
const SlotOverruns = 6

// SlotViolations holds handler budget violations (saturating).
const SlotViolations = 7

// SlotFaults holds the number of fault trips (saturating).
const SlotFaults = 8

// SlotLatched holds the latched fault bit field (see Latched* bits).
const SlotLatched = 9

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 10

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- LED BITS ----

const (
	LedGreenOn uint16 = 1 << 0
	LedRedOn   uint16 = 1 << 1
	LedSlotRed uint16 = 1 << 2
	LedOutput  uint16 = 1 << 3
)

// ---- LATCHED FAULT BITS ----

const (
	LatchedExternal    uint16 = 1 << 0
	LatchedOverCurrent uint16 = 1 << 1
)

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state before the first tick.
const HealthUnknown uint16 = 0

// HealthOK represents normal operation.
const HealthOK uint16 = 1

// HealthFault represents at least one latched fault.
const HealthFault uint16 = 2
