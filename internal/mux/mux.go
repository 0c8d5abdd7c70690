// internal/mux/mux.go
package mux

import "github.com/tamzrod/foc-housekeeper/internal/blink"

// Slot selects which logical LED owns the shared output this tick.
type Slot uint8

const (
	Green Slot = iota
	Red
)

func (s Slot) String() string {
	if s == Red {
		return "red"
	}
	return "green"
}

// Next returns the other slot.
func (s Slot) Next() Slot {
	if s == Green {
		return Red
	}
	return Green
}

// Pin is the board-side output shared by both LEDs.
// slot tells the wiring which polarity to drive; on is the logical level.
type Pin interface {
	Drive(slot Slot, on bool) error
}

// Select returns the logical value the shared output carries in slot.
func Select(s blink.Status, slot Slot) bool {
	if slot == Green {
		return s.GreenOn
	}
	return s.RedOn
}

// Driver alternates the two logical LEDs over one Pin.
// Owned by the tick handler; not safe for concurrent use.
type Driver struct {
	pin  Pin
	slot Slot
}

// NewDriver returns a driver whose first actuation uses the green slot.
func NewDriver(pin Pin) *Driver {
	return &Driver{pin: pin, slot: Green}
}

// Slot reports the slot the next Actuate will drive.
func (d *Driver) Slot() Slot { return d.slot }

// Actuate drives the pin for the current slot and moves to the next one.
// The slot advances even if the pin fails so the alternation stays on parity.
func (d *Driver) Actuate(s blink.Status) (bool, error) {
	slot := d.slot
	on := Select(s, slot)
	d.slot = slot.Next()

	if d.pin == nil {
		return on, nil
	}
	return on, d.pin.Drive(slot, on)
}
