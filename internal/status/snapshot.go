// internal/status/snapshot.go
package status

// Snapshot represents exactly what the telemetry writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health uint16

	GreenOn bool
	RedOn   bool
	SlotRed bool
	Output  bool

	GreenRate uint16
	RedRate   uint16

	Ticks      uint32
	Overruns   uint16
	Violations uint16
	Faults     uint16
	Latched    uint16
}

// Saturate clamps a counter into one register.
func Saturate(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
