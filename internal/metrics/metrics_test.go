package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/foc-housekeeper/internal/events"
	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

func TestRecorder_Counters(t *testing.T) {
	r := New(prometheus.NewRegistry(), time.Millisecond, nil)

	r.Overrun(priority.T1)
	r.Overrun(priority.T1)
	r.Ignored(priority.C1RX)
	r.Dropped()
	r.PollFailed()

	require.Equal(t, 2.0, testutil.ToFloat64(r.overruns.WithLabelValues("T1")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.ignored.WithLabelValues("C1RX")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.drops))
	require.Equal(t, 1.0, testutil.ToFloat64(r.pollErrors))
}

func TestRecorder_FaultDispatchCountsTrip(t *testing.T) {
	r := New(prometheus.NewRegistry(), time.Millisecond, nil)

	r.Dispatched(priority.FLTA1, 10*time.Microsecond)
	r.Dispatched(priority.T1, 10*time.Microsecond)

	require.Equal(t, 1.0, testutil.ToFloat64(r.faults.WithLabelValues("FLTA1")))
	require.Equal(t, 0.0, testutil.ToFloat64(r.faults.WithLabelValues("T1")))
	require.Equal(t, 2, testutil.CollectAndCount(r.handler))
	require.Equal(t, Totals{Faults: 1}, r.Totals())
}

func TestRecorder_TickedTracksOutput(t *testing.T) {
	r := New(prometheus.NewRegistry(), time.Millisecond, nil)

	r.Ticked(housekeeping.Snapshot{Tick: 1, Output: true})
	require.Equal(t, 1.0, testutil.ToFloat64(r.output))

	r.Ticked(housekeeping.Snapshot{Tick: 2, Output: false})
	require.Equal(t, 0.0, testutil.ToFloat64(r.output))
	require.Equal(t, 2.0, testutil.ToFloat64(r.ticks))
}

func TestRecorder_ViolationPublishes(t *testing.T) {
	bus := events.New()
	got := make(chan events.TimingViolation, 1)
	unsub := bus.Subscribe(func(ev events.TimingViolation) { got <- ev })
	defer unsub()

	r := New(prometheus.NewRegistry(), time.Millisecond, bus)
	r.Violation(priority.T1, 3*time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(r.violations.WithLabelValues("T1")))

	select {
	case ev := <-got:
		require.Equal(t, "T1", ev.Source)
		require.Equal(t, time.Millisecond, ev.Budget)
	case <-time.After(time.Second):
		t.Fatal("timing violation not published")
	}
}
