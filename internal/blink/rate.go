// internal/blink/rate.go
package blink

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrZeroPeriod is returned when a periodic rate is built with n == 0.
var ErrZeroPeriod = errors.New("blink: periodic rate requires n >= 1")

// ErrInvalidRate is returned by ParseRate for unknown text.
var ErrInvalidRate = errors.New("blink: invalid rate")

// Kind is the behavior category of a Rate.
type Kind uint8

const (
	KindOff Kind = iota
	KindStill
	KindPeriodic
)

// Register encoding at the external boundary.
// One word per channel so a write is never torn.
const (
	WordOff   uint16 = 0x0000
	WordStill uint16 = 0xFFFF

	// MaxPeriod is the largest tick count a register word can carry.
	MaxPeriod = 0xFFFE
)

// Rate governs how a channel's on/off flag evolves per tick.
// The zero value is Off.
type Rate struct {
	kind Kind
	n    uint16
}

// Still forces the channel on.
func Still() Rate { return Rate{kind: KindStill} }

// Off forces the channel off.
func Off() Rate { return Rate{kind: KindOff} }

// Periodic toggles the channel every n ticks.
func Periodic(n uint16) (Rate, error) {
	if n == 0 {
		return Rate{}, ErrZeroPeriod
	}
	if n > MaxPeriod {
		return Rate{}, fmt.Errorf("blink: period %d exceeds %d", n, MaxPeriod)
	}
	return Rate{kind: KindPeriodic, n: n}, nil
}

// MustPeriodic is Periodic for constant arguments.
func MustPeriodic(n uint16) Rate {
	r, err := Periodic(n)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rate) Kind() Kind { return r.kind }

// Ticks returns n for periodic rates and 0 otherwise.
func (r Rate) Ticks() uint16 {
	if r.kind != KindPeriodic {
		return 0
	}
	return r.n
}

// Word encodes the rate into a single register word.
func (r Rate) Word() uint16 {
	switch r.kind {
	case KindStill:
		return WordStill
	case KindPeriodic:
		return r.n
	default:
		return WordOff
	}
}

// FromWord decodes a register word. Every word is a valid rate.
func FromWord(w uint16) Rate {
	switch w {
	case WordOff:
		return Off()
	case WordStill:
		return Still()
	default:
		return Rate{kind: KindPeriodic, n: w}
	}
}

func (r Rate) String() string {
	switch r.kind {
	case KindStill:
		return "still"
	case KindPeriodic:
		return "periodic:" + strconv.Itoa(int(r.n))
	default:
		return "off"
	}
}

// ParseRate accepts "still", "off" and "periodic:<n>".
func ParseRate(s string) (Rate, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "still", "on":
		return Still(), nil
	case "off", "":
		return Off(), nil
	}

	num, ok := strings.CutPrefix(v, "periodic:")
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	n, err := strconv.ParseUint(num, 10, 16)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %q: %v", ErrInvalidRate, s, err)
	}
	return Periodic(uint16(n))
}
