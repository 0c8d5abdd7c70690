// internal/clock/clock.go
package clock

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Oscillator describes the primary oscillator and PLL.
//
//	Fosc = Fin * M / (N1 * N2)
//	Fcy  = Fosc / 2
type Oscillator struct {
	CrystalHz     uint32 // Fin
	PLLMultiplier uint32 // M
	PreDivider    uint32 // N1
	PostDivider   uint32 // N2
}

// Reference is the board setup: 8 MHz crystal, M=40, N1=N2=2 → 40 MIPS.
func Reference() Oscillator {
	return Oscillator{
		CrystalHz:     8_000_000,
		PLLMultiplier: 40,
		PreDivider:    2,
		PostDivider:   2,
	}
}

func (o Oscillator) Validate() error {
	if o.CrystalHz == 0 {
		return errors.New("clock: crystal frequency must be > 0")
	}
	if o.PLLMultiplier == 0 {
		return errors.New("clock: pll multiplier must be > 0")
	}
	if o.PreDivider == 0 || o.PostDivider == 0 {
		return errors.New("clock: pll dividers must be > 0")
	}
	return nil
}

// Fosc returns the oscillator output frequency in Hz.
func (o Oscillator) Fosc() float64 {
	return float64(o.CrystalHz) * float64(o.PLLMultiplier) /
		(float64(o.PreDivider) * float64(o.PostDivider))
}

// Fcy returns the instruction clock in Hz.
func (o Oscillator) Fcy() float64 {
	return o.Fosc() / 2
}

// Timer is a 16-bit period timer clocked from Fcy through a prescaler.
type Timer struct {
	Prescaler uint16
	Period    uint16
}

// ValidPrescaler reports whether p is one of 1, 8, 64, 256.
func ValidPrescaler(p uint16) bool {
	switch p {
	case 1, 8, 64, 256:
		return true
	}
	return false
}

func (t Timer) Validate() error {
	if !ValidPrescaler(t.Prescaler) {
		return fmt.Errorf("clock: invalid prescaler %d (want 1, 8, 64 or 256)", t.Prescaler)
	}
	if t.Period == 0 {
		return errors.New("clock: timer period must be > 0")
	}
	return nil
}

// Resolution is the duration of one timer count at fcy.
func (t Timer) Resolution(fcy float64) time.Duration {
	return time.Duration(math.Round(float64(t.Prescaler) * float64(time.Second) / fcy))
}

// Duration is the time between two timer interrupts at fcy.
func (t Timer) Duration(fcy float64) time.Duration {
	return time.Duration(math.Round(float64(t.Period) * float64(t.Prescaler) * float64(time.Second) / fcy))
}

// ReloadFor returns the period register value that fires every d.
func ReloadFor(d time.Duration, prescaler uint16, fcy float64) (uint16, error) {
	if !ValidPrescaler(prescaler) {
		return 0, fmt.Errorf("clock: invalid prescaler %d", prescaler)
	}
	if d <= 0 {
		return 0, errors.New("clock: period must be > 0")
	}

	counts := math.Round(d.Seconds() * fcy / float64(prescaler))
	if counts < 1 || counts > math.MaxUint16 {
		return 0, fmt.Errorf("clock: %s does not fit a 16-bit timer at prescaler %d", d, prescaler)
	}
	return uint16(counts), nil
}
