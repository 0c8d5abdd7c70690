// internal/events/bus.go
package events

import (
	"time"

	"github.com/kelindar/event"
)

// Event type constants for kelindar/event.
const (
	TypeFaultTripped uint32 = iota + 1
	TypeFaultCleared
	TypeTimingViolation
)

// Event is the interface kelindar/event dispatches on.
type Event interface {
	Type() uint32
}

// FaultTripped is published when a fault source fires.
type FaultTripped struct {
	Source string
	At     time.Time
}

func (FaultTripped) Type() uint32 { return TypeFaultTripped }

// FaultCleared is published after a latched fault source is re-armed.
type FaultCleared struct {
	Source string
	At     time.Time
}

func (FaultCleared) Type() uint32 { return TypeFaultCleared }

// TimingViolation is published when a handler outlives its budget.
type TimingViolation struct {
	Source string
	Took   time.Duration
	Budget time.Duration
}

func (TimingViolation) Type() uint32 { return TypeTimingViolation }

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous:
// publishing never blocks the caller, which keeps it usable from handlers.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish sends ev to every subscriber of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case FaultTripped:
		event.Publish(b.dispatcher, e)
	case FaultCleared:
		event.Publish(b.dispatcher, e)
	case TimingViolation:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler by its parameter type and returns the
// unsubscribe function. Unknown handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FaultTripped):
		return event.Subscribe(b.dispatcher, h)
	case func(FaultCleared):
		return event.Subscribe(b.dispatcher, h)
	case func(TimingViolation):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
