// internal/blink/engine.go
package blink

// Status is the logical state of the two status LEDs.
// On flags are written by Engine only; rates by the controller.
type Status struct {
	GreenOn bool
	RedOn   bool

	GreenRate Rate
	RedRate   Rate
}

// channel is the per-LED counter state. Channels share nothing.
type channel struct {
	counter uint32
	last    Rate
}

// Engine advances both channels once per tick.
// It is owned by a single tick handler and is not safe for concurrent use.
type Engine struct {
	green channel
	red   channel
}

// NewEngine returns an engine with both counters at zero.
func NewEngine() *Engine {
	return &Engine{}
}

// Advance applies one tick to s.
func (e *Engine) Advance(s *Status) {
	s.GreenOn = e.green.step(s.GreenRate, s.GreenOn)
	s.RedOn = e.red.step(s.RedRate, s.RedOn)
}

// step returns the channel flag after one tick at rate r.
// A rate different from the previous tick's restarts the counter.
func (c *channel) step(r Rate, on bool) bool {
	if r != c.last {
		c.counter = 0
		c.last = r
	}

	switch r.Kind() {
	case KindStill:
		return true
	case KindOff:
		return false
	}

	c.counter++
	if c.counter >= uint32(r.Ticks()) {
		c.counter = 0
		return !on
	}
	return on
}
