// internal/fault/latch_test.go
package fault

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/events"
	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

type fakeController struct {
	rearmed  []priority.Source
	err      error
	critical int
}

func (f *fakeController) Critical(fn func()) {
	f.critical++
	fn()
}

func (f *fakeController) Rearm(src priority.Source) error {
	if f.err != nil {
		return f.err
	}
	f.rearmed = append(f.rearmed, src)
	return nil
}

func newLatch(t *testing.T, ctl Controller, bus *events.Bus) (*Latch, *housekeeping.RateCell, *housekeeping.RateCell) {
	t.Helper()
	var green, red housekeeping.RateCell
	green.Store(blink.MustPeriodic(100))
	red.Store(blink.Off())
	return NewLatch(&green, &red, ctl, bus, nil), &green, &red
}

func TestTrip_ForcesFaultPattern(t *testing.T) {
	l, green, red := newLatch(t, &fakeController{}, nil)

	l.Trip(priority.FLTA1)

	require.True(t, l.Latched())
	require.Equal(t, FaultGreen, green.Load())
	require.Equal(t, FaultRed, red.Load())
	require.Equal(t, []priority.Source{priority.FLTA1}, l.Tripped())
}

func TestApply_HeldWhileLatched(t *testing.T) {
	l, green, red := newLatch(t, &fakeController{}, nil)

	l.Trip(priority.CN)
	l.Apply(blink.Still(), blink.MustPeriodic(4))

	require.Equal(t, FaultGreen, green.Load())
	require.Equal(t, FaultRed, red.Load())

	require.NoError(t, l.Reset(priority.CN))
	require.Equal(t, blink.Still(), green.Load())
	require.Equal(t, blink.MustPeriodic(4), red.Load())
}

func TestReset_RestoresOnlyWhenAllCleared(t *testing.T) {
	ctl := &fakeController{}
	l, green, _ := newLatch(t, ctl, nil)

	l.Trip(priority.CN)
	l.Trip(priority.FLTA1)

	require.NoError(t, l.Reset(priority.CN))
	require.True(t, l.Latched())
	require.Equal(t, FaultGreen, green.Load())

	require.NoError(t, l.Reset(priority.FLTA1))
	require.False(t, l.Latched())
	require.Equal(t, blink.MustPeriodic(100), green.Load())

	require.Equal(t, []priority.Source{priority.CN, priority.FLTA1}, ctl.rearmed)
}

func TestReset_NotTripped(t *testing.T) {
	l, _, _ := newLatch(t, &fakeController{}, nil)
	require.ErrorIs(t, l.Reset(priority.CN), ErrNotTripped)
}

func TestReset_RearmFailureKeepsLatch(t *testing.T) {
	boom := errors.New("boom")
	l, _, _ := newLatch(t, &fakeController{err: boom}, nil)

	l.Trip(priority.CN)
	require.ErrorIs(t, l.Reset(priority.CN), boom)
	require.True(t, l.Latched())
}

func TestResetAll(t *testing.T) {
	l, _, _ := newLatch(t, &fakeController{}, nil)
	l.Trip(priority.CN)
	l.Trip(priority.FLTA1)

	require.NoError(t, l.ResetAll())
	require.False(t, l.Latched())
}

func TestTrip_PublishesEvents(t *testing.T) {
	bus := events.New()
	tripped := make(chan events.FaultTripped, 1)
	cleared := make(chan events.FaultCleared, 1)
	defer bus.Subscribe(func(e events.FaultTripped) { tripped <- e })()
	defer bus.Subscribe(func(e events.FaultCleared) { cleared <- e })()

	l, _, _ := newLatch(t, &fakeController{}, bus)
	l.Trip(priority.FLTA1)
	require.NoError(t, l.Reset(priority.FLTA1))

	select {
	case e := <-tripped:
		require.Equal(t, "FLTA1", e.Source)
	case <-time.After(2 * time.Second):
		t.Fatalf("trip event not delivered")
	}
	select {
	case e := <-cleared:
		require.Equal(t, "FLTA1", e.Source)
	case <-time.After(2 * time.Second):
		t.Fatalf("clear event not delivered")
	}
}

func TestTrip_LeavesLoggingToTheBus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var green, red housekeeping.RateCell
	l := NewLatch(&green, &red, &fakeController{}, events.New(), zap.New(core))

	l.Trip(priority.CN)
	require.Equal(t, 0, logs.Len())

	l.Apply(blink.Still(), blink.Still())
	require.Equal(t, 1, logs.FilterMessage("rate change held while fault latched").Len())

	require.NoError(t, l.Reset(priority.CN))
	require.Equal(t, 1, logs.Len())
}

func TestApply_StoresPairInsideCriticalSection(t *testing.T) {
	ctl := &fakeController{}
	l, green, red := newLatch(t, ctl, nil)

	l.Apply(blink.Still(), blink.MustPeriodic(4))
	require.Equal(t, 1, ctl.critical)
	require.Equal(t, blink.Still(), green.Load())
	require.Equal(t, blink.MustPeriodic(4), red.Load())

	// held while latched: no store, no critical section
	l.Trip(priority.CN)
	l.Apply(blink.Off(), blink.Off())
	require.Equal(t, 1, ctl.critical)

	require.NoError(t, l.Reset(priority.CN))
	require.Equal(t, 2, ctl.critical)
	require.Equal(t, blink.Off(), green.Load())
}
