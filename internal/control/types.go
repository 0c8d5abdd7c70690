// internal/control/types.go
package control

import (
	"time"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// Register offsets relative to the configured rate register.
const (
	OffsetGreen   = 0
	OffsetRed     = 1
	OffsetCommand = 2

	// BlockLen is the number of holding registers read per poll.
	BlockLen = 3
)

// Discrete input offsets relative to the configured fault input.
const (
	InputExternal    = 0 // pushbutton, raises CN
	InputOverCurrent = 1 // PWM fault pin, raises FLTA1

	// InputLen is the number of discrete inputs read per poll.
	InputLen = 2
)

// inputSources maps each fault input to the source its rising edge raises.
var inputSources = [InputLen]priority.Source{
	InputExternal:    priority.CN,
	InputOverCurrent: priority.FLTA1,
}

// Command values accepted in the command register.
const (
	CmdNone       uint16 = 0
	CmdResetFault uint16 = 1
)

// PollResult is the outcome of one poll cycle.
type PollResult struct {
	At time.Time

	// Inputs holds the fault input levels; nil when no fault input is configured.
	Inputs []bool

	// HasRates is false when no rate register is configured.
	HasRates bool
	Green    blink.Rate
	Red      blink.Rate

	// Reset is true when the controller asked for a fault reset.
	Reset bool

	Err error // non-nil means the poll cycle failed
}
