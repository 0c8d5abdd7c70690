// internal/priority/source.go
package priority

import (
	"fmt"
	"strings"
)

// Source identifies one interrupt source.
// Order follows the controller's natural vector order and breaks
// ties between sources at the same level.
type Source uint8

const (
	T1   Source = iota + 1 // low frequency housekeeping timer (LEDs)
	T2                     // velocity calculation timer
	T3                     // I2T while the control loop is stopped
	T4                     // CAN TX / telemetry timer
	DMA0                   // ADC triggered DMA
	DMA1                   // CAN TX DMA
	DMA2                   // CAN RX DMA
	DMA3                   // SPI DMA
	AD1                    // ADC (non-DMA mode)
	SPI1
	SPI1E // SPI error
	C1    // ECAN1 events
	C1RX  // ECAN1 RX (non-DMA mode)
	CN    // change notification: external fault pushbutton
	FLTA1 // PWM fault A: over-current

	sourceEnd
)

var sourceNames = [...]string{
	T1:    "T1",
	T2:    "T2",
	T3:    "T3",
	T4:    "T4",
	DMA0:  "DMA0",
	DMA1:  "DMA1",
	DMA2:  "DMA2",
	DMA3:  "DMA3",
	AD1:   "AD1",
	SPI1:  "SPI1",
	SPI1E: "SPI1E",
	C1:    "C1",
	C1RX:  "C1RX",
	CN:    "CN",
	FLTA1: "FLTA1",
}

// Sources returns every known source in vector order.
func Sources() []Source {
	out := make([]Source, 0, int(sourceEnd)-1)
	for s := T1; s < sourceEnd; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s >= T1 && s < sourceEnd
}

// Fault reports whether s is one of the fault sources.
func (s Source) Fault() bool {
	return s == CN || s == FLTA1
}

func (s Source) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Source(%d)", uint8(s))
	}
	return sourceNames[s]
}

// ParseSource resolves a source by name, case-insensitively.
func ParseSource(name string) (Source, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for s := T1; s < sourceEnd; s++ {
		if sourceNames[s] == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("priority: unknown interrupt source %q", name)
}
