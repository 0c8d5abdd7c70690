// internal/irq/controller.go
package irq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

var (
	ErrSealed     = errors.New("irq: configuration sealed after start")
	ErrStarted    = errors.New("irq: controller already started")
	ErrNotFault   = errors.New("irq: rearm is only allowed for fault sources")
	ErrDisabled   = errors.New("irq: source is disabled in the priority table")
	ErrNoHandler  = errors.New("irq: no handler registered")
	ErrNotLatched = errors.New("irq: fault source is not latched")
)

// Handler runs to completion. It must return quickly and never block:
// a slow handler delays every source at its level and below.
type Handler func()

// Observer receives dispatch accounting. Implementations must be cheap.
type Observer interface {
	Dispatched(src priority.Source, took time.Duration)
	Overrun(src priority.Source)
	Ignored(src priority.Source)
	Violation(src priority.Source, took time.Duration)
}

// State is the arm state of one source.
type State struct {
	Armed bool
	Level priority.Level
}

func (s State) String() string {
	if !s.Armed {
		return "disabled"
	}
	return fmt.Sprintf("armed@%d", s.Level)
}

// Controller dispatches raised sources by static priority.
//
// Normal sources share one lane: the highest pending level runs next and
// every handler runs to completion. Fault sources run on their own lane
// that Critical never suspends, so a fault handler may execute while any
// normal handler is mid-flight. State shared with the fault path must
// therefore be single-word.
type Controller struct {
	table  priority.Table
	budget time.Duration
	obs    Observer
	log    *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	handlers map[priority.Source]Handler
	armed    map[priority.Source]bool
	latched  map[priority.Source]bool
	pending  map[priority.Source]bool
	masked   int
	running  bool // a normal handler is in flight
	started  bool
	stopped  bool

	faultKick chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithBudget sets the worst-case handler duration. Longer dispatches are
// reported as timing violations. Zero disables the check.
func WithBudget(d time.Duration) Option {
	return func(c *Controller) { c.budget = d }
}

// WithObserver attaches dispatch accounting.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.obs = o }
}

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New validates table and returns a controller with every source disabled.
func New(table priority.Table, opts ...Option) (*Controller, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		table:     table,
		obs:       nopObserver{},
		log:       zap.NewNop(),
		handlers:  make(map[priority.Source]Handler),
		armed:     make(map[priority.Source]bool),
		latched:   make(map[priority.Source]bool),
		pending:   make(map[priority.Source]bool),
		faultKick: make(chan struct{}, 1),
	}
	c.cond = sync.NewCond(&c.mu)

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Table returns the table the controller was built with.
func (c *Controller) Table() priority.Table { return c.table }

// Handle registers h for src. Registration is startup-only.
func (c *Controller) Handle(src priority.Source, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrSealed
	}
	c.handlers[src] = h
	return nil
}

// Arm moves src from Disabled to Armed at its table level.
func (c *Controller) Arm(src priority.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("arm %s: %w", src, ErrSealed)
	}
	if !c.table.Armed(src) {
		return fmt.Errorf("arm %s: %w", src, ErrDisabled)
	}
	if c.handlers[src] == nil {
		return fmt.Errorf("arm %s: %w", src, ErrNoHandler)
	}

	c.armed[src] = true
	c.log.Debug("source armed",
		zap.Stringer("source", src),
		zap.Uint8("level", uint8(c.table.Level(src))))
	return nil
}

// Rearm re-enables a latched fault source after its fault was handled.
// The pending flag is cleared first so a stale trip does not re-fire.
func (c *Controller) Rearm(src priority.Source) error {
	if !src.Fault() {
		return fmt.Errorf("rearm %s: %w", src, ErrNotFault)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.table.Armed(src) {
		return fmt.Errorf("rearm %s: %w", src, ErrDisabled)
	}
	if !c.latched[src] {
		return fmt.Errorf("rearm %s: %w", src, ErrNotLatched)
	}

	c.pending[src] = false
	c.latched[src] = false
	c.armed[src] = true
	c.log.Info("fault source re-armed", zap.Stringer("source", src))
	return nil
}

// State reports the arm state of src.
func (c *Controller) State(src priority.Source) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed[src] {
		return State{}
	}
	return State{Armed: true, Level: c.table.Level(src)}
}

// Raise flags src as pending. A source raised again before dispatch is
// coalesced and counted as an overrun; a disabled source is ignored.
func (c *Controller) Raise(src priority.Source) {
	c.mu.Lock()
	if !c.armed[src] {
		c.mu.Unlock()
		c.obs.Ignored(src)
		return
	}
	if c.pending[src] {
		c.mu.Unlock()
		c.obs.Overrun(src)
		return
	}
	c.pending[src] = true
	if !src.Fault() {
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	if src.Fault() {
		select {
		case c.faultKick <- struct{}{}:
		default:
		}
	}
}

// Critical runs fn with normal dispatch suspended. It first waits for an
// in-flight normal handler, so fn never interleaves with one.
// Fault dispatch is never suspended; keep fn short and bounded.
// Must not be called from a handler.
func (c *Controller) Critical(fn func()) {
	c.mu.Lock()
	c.masked++
	for c.running {
		c.cond.Wait()
	}
	c.mu.Unlock()

	start := time.Now()
	defer func() {
		c.mu.Lock()
		c.masked--
		if c.masked == 0 {
			c.cond.Broadcast()
		}
		c.mu.Unlock()

		if took := time.Since(start); c.budget > 0 && took > c.budget {
			c.log.Warn("critical section exceeded handler budget",
				zap.Duration("took", took),
				zap.Duration("budget", c.budget))
		}
	}()

	fn()
}

// Start seals the configuration and launches both dispatch lanes.
// Dispatch stops when ctx is done; Wait blocks until both lanes exit.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrStarted
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(3)
	go c.normalLane()
	go c.faultLane(ctx)
	go func() {
		defer c.wg.Done()
		<-ctx.Done()

		c.mu.Lock()
		c.stopped = true
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	// Faults raised during startup are dispatched immediately.
	select {
	case c.faultKick <- struct{}{}:
	default:
	}

	c.log.Info("interrupt dispatch started",
		zap.Duration("handler_budget", c.budget),
		zap.Uint8("fault_level", uint8(c.table.FaultLevel())))
	return nil
}

// Wait blocks until dispatch has stopped.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) normalLane() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		src, ok := c.nextNormalLocked()
		for !c.stopped && (c.masked > 0 || !ok) {
			c.cond.Wait()
			src, ok = c.nextNormalLocked()
		}
		if c.stopped {
			c.mu.Unlock()
			return
		}
		c.pending[src] = false
		c.running = true
		h := c.handlers[src]
		c.mu.Unlock()

		c.dispatch(src, h)

		c.mu.Lock()
		c.running = false
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}

// nextNormalLocked returns the most urgent pending non-fault source.
// Ties at one level go to the lower vector number.
func (c *Controller) nextNormalLocked() (priority.Source, bool) {
	var (
		best  priority.Source
		level priority.Level
		found bool
	)
	for _, s := range priority.Sources() {
		if s.Fault() || !c.pending[s] || !c.armed[s] {
			continue
		}
		if l := c.table.Level(s); !found || l > level {
			best, level, found = s, l, true
		}
	}
	return best, found
}

func (c *Controller) faultLane(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.faultKick:
		}

		for _, s := range priority.Sources() {
			if !s.Fault() {
				continue
			}

			c.mu.Lock()
			fire := c.pending[s] && c.armed[s]
			if fire {
				// Latch: the source stays disabled until Rearm.
				c.pending[s] = false
				c.armed[s] = false
				c.latched[s] = true
			}
			h := c.handlers[s]
			c.mu.Unlock()

			if fire {
				c.dispatch(s, h)
			}
		}
	}
}

func (c *Controller) dispatch(src priority.Source, h Handler) {
	if h == nil {
		return
	}

	start := time.Now()
	h()
	took := time.Since(start)

	c.obs.Dispatched(src, took)
	if c.budget > 0 && took > c.budget {
		c.obs.Violation(src, took)
		c.log.Warn("handler exceeded budget",
			zap.Stringer("source", src),
			zap.Duration("took", took),
			zap.Duration("budget", c.budget))
	}
}

type nopObserver struct{}

func (nopObserver) Dispatched(priority.Source, time.Duration) {}
func (nopObserver) Overrun(priority.Source)                   {}
func (nopObserver) Ignored(priority.Source)                   {}
func (nopObserver) Violation(priority.Source, time.Duration)  {}
