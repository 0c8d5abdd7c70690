// internal/timer/timer.go
package timer

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// Raiser is the part of the interrupt controller a timer needs.
type Raiser interface {
	Raise(src priority.Source)
}

// RateTimer raises one source at a fixed period.
// It only flags the source; the handler runs on the controller's lane.
type RateTimer struct {
	src    priority.Source
	period time.Duration
	ctl    Raiser
}

// New returns a timer for src. period must be > 0.
func New(src priority.Source, period time.Duration, ctl Raiser) (*RateTimer, error) {
	if period <= 0 {
		return nil, errors.New("timer: period must be > 0")
	}
	if ctl == nil {
		return nil, errors.New("timer: controller required")
	}
	return &RateTimer{src: src, period: period, ctl: ctl}, nil
}

// Period returns the tick period.
func (t *RateTimer) Period() time.Duration { return t.period }

// Run raises the source once per period until ctx is done.
// One goroutine per timer. Missed ticks are not replayed.
func (t *RateTimer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.ctl.Raise(t.src)
		}
	}
}
