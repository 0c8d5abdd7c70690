// internal/housekeeping/task.go
package housekeeping

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/mux"
)

// RateCell is the single-word boundary between the external controller
// and the tick handler. Writers store whole values; the handler reads
// the latest one at the start of a tick.
type RateCell struct {
	word atomic.Uint32
}

// Store publishes r. Safe from any goroutine, including the fault lane.
func (c *RateCell) Store(r blink.Rate) {
	c.word.Store(uint32(r.Word()))
}

// Load returns the last stored rate.
func (c *RateCell) Load() blink.Rate {
	return blink.FromWord(uint16(c.word.Load()))
}

// Snapshot is the LED state as of one completed tick.
type Snapshot struct {
	Tick    uint64
	GreenOn bool
	RedOn   bool

	// Slot driven on this tick and the value written to the pin.
	Slot   mux.Slot
	Output bool

	GreenRate blink.Rate
	RedRate   blink.Rate
}

// Observer is notified once per tick.
type Observer interface {
	Ticked(s Snapshot)
}

// Task owns the LED status, the blink counters and the mux slot.
// Tick must only be called from the housekeeping timer handler.
type Task struct {
	status blink.Status
	engine *blink.Engine
	driver *mux.Driver

	green RateCell
	red   RateCell

	tick uint64
	last atomic.Pointer[Snapshot]

	obs Observer
	log *zap.Logger
}

// New returns a task that drives pin, starting with the given rates.
func New(pin mux.Pin, green, red blink.Rate, obs Observer, log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Task{
		engine: blink.NewEngine(),
		driver: mux.NewDriver(pin),
		obs:    obs,
		log:    log,
	}
	t.green.Store(green)
	t.red.Store(red)
	t.last.Store(&Snapshot{Slot: mux.Green, GreenRate: green, RedRate: red})
	return t
}

// Green is the rate cell of the green LED.
func (t *Task) Green() *RateCell { return &t.green }

// Red is the rate cell of the red LED.
func (t *Task) Red() *RateCell { return &t.red }

// Tick advances the blink state and actuates the shared output.
func (t *Task) Tick() {
	t.status.GreenRate = t.green.Load()
	t.status.RedRate = t.red.Load()

	t.engine.Advance(&t.status)

	slot := t.driver.Slot()
	out, err := t.driver.Actuate(t.status)
	if err != nil {
		t.log.Warn("led pin drive failed",
			zap.Stringer("slot", slot),
			zap.Bool("on", out),
			zap.Error(err))
	}

	t.tick++
	snap := &Snapshot{
		Tick:      t.tick,
		GreenOn:   t.status.GreenOn,
		RedOn:     t.status.RedOn,
		Slot:      slot,
		Output:    out,
		GreenRate: t.status.GreenRate,
		RedRate:   t.status.RedRate,
	}
	t.last.Store(snap)

	if t.obs != nil {
		t.obs.Ticked(*snap)
	}
}

// Snapshot returns the state published by the last completed tick.
// Readers never observe a half-applied tick.
func (t *Task) Snapshot() Snapshot {
	return *t.last.Load()
}
