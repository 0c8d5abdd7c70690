// internal/fault/latch.go
package fault

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/events"
	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/irq"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// ErrNotTripped is returned when resetting a source that has not fired.
var ErrNotTripped = errors.New("fault: source not tripped")

// Path is the response to a fault source firing.
type Path interface {
	Trip(src priority.Source)
}

// Controller is the executor surface the latch needs: re-enabling a
// latched source and storing a rate pair without a tick in between.
type Controller interface {
	Rearm(src priority.Source) error
	Critical(fn func())
}

// LED pattern shown while any fault is latched.
var (
	FaultGreen = blink.Off()
	FaultRed   = blink.Still()
)

// Latch is the default Path. It runs on the fault lane and may interleave
// with the tick handler at any point, so all shared state is single-word.
type Latch struct {
	green *housekeeping.RateCell
	red   *housekeeping.RateCell

	// desired holds the controller's rates (green<<16 | red),
	// restored once every latched source is cleared.
	desired atomic.Uint32
	tripped atomic.Uint32

	ctl Controller
	bus *events.Bus
	log *zap.Logger
}

// NewLatch returns a latch that forces the fault pattern into green and red.
func NewLatch(green, red *housekeeping.RateCell, ctl Controller, bus *events.Bus, log *zap.Logger) *Latch {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Latch{
		green: green,
		red:   red,
		ctl:   ctl,
		bus:   bus,
		log:   log,
	}
	l.desired.Store(pack(green.Load(), red.Load()))
	return l
}

// Handler adapts Trip to an interrupt handler for src.
func (l *Latch) Handler(src priority.Source) irq.Handler {
	return func() { l.Trip(src) }
}

// Trip latches src and forces the fault pattern.
func (l *Latch) Trip(src priority.Source) {
	l.tripped.Or(bit(src))
	l.force()

	if l.bus != nil {
		l.bus.Publish(events.FaultTripped{Source: src.String(), At: time.Now()})
	}
}

// Latched reports whether any fault source is latched.
func (l *Latch) Latched() bool {
	return l.tripped.Load() != 0
}

// Tripped lists the latched sources in vector order.
func (l *Latch) Tripped() []priority.Source {
	mask := l.tripped.Load()
	var out []priority.Source
	for _, s := range priority.Sources() {
		if mask&bit(s) != 0 {
			out = append(out, s)
		}
	}
	return out
}

// Apply records the controller's desired rates and, unless a fault is
// latched, publishes them to the tick handler.
func (l *Latch) Apply(green, red blink.Rate) {
	l.desired.Store(pack(green, red))
	if l.Latched() {
		if ce := l.log.Check(zap.DebugLevel, "rate change held while fault latched"); ce != nil {
			ce.Write(zap.Stringer("green", green), zap.Stringer("red", red))
		}
		return
	}

	l.ctl.Critical(func() {
		l.green.Store(green)
		l.red.Store(red)
	})

	// A trip may have landed between the check and the stores.
	if l.Latched() {
		l.force()
	}
}

// Reset re-arms src and restores the desired rates once nothing is latched.
func (l *Latch) Reset(src priority.Source) error {
	b := bit(src)
	if l.tripped.Load()&b == 0 {
		return fmt.Errorf("reset %s: %w", src, ErrNotTripped)
	}

	// src stays disarmed until Rearm, so clearing first cannot lose a trip
	old := l.tripped.And(^b)
	if err := l.ctl.Rearm(src); err != nil {
		l.tripped.Or(b)
		l.force()
		return fmt.Errorf("reset %s: %w", src, err)
	}

	if old&^b == 0 {
		g, r := unpack(l.desired.Load())
		l.ctl.Critical(func() {
			l.green.Store(g)
			l.red.Store(r)
		})
		if l.Latched() {
			l.force()
		}
	}

	if l.bus != nil {
		l.bus.Publish(events.FaultCleared{Source: src.String(), At: time.Now()})
	}
	return nil
}

// ResetAll resets every latched source.
func (l *Latch) ResetAll() error {
	var errs []error
	for _, s := range l.Tripped() {
		if err := l.Reset(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Latch) force() {
	l.green.Store(FaultGreen)
	l.red.Store(FaultRed)
}

func bit(src priority.Source) uint32 {
	return 1 << uint32(src)
}

func pack(green, red blink.Rate) uint32 {
	return uint32(green.Word())<<16 | uint32(red.Word())
}

func unpack(w uint32) (blink.Rate, blink.Rate) {
	return blink.FromWord(uint16(w >> 16)), blink.FromWord(uint16(w))
}
