// internal/irq/controller_test.go
package irq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// ---- fake observer ----

type fakeObserver struct {
	mu         sync.Mutex
	dispatched []priority.Source
	overruns   map[priority.Source]int
	ignored    map[priority.Source]int
	violations map[priority.Source]int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		overruns:   map[priority.Source]int{},
		ignored:    map[priority.Source]int{},
		violations: map[priority.Source]int{},
	}
}

func (f *fakeObserver) Dispatched(src priority.Source, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, src)
}

func (f *fakeObserver) Overrun(src priority.Source) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overruns[src]++
}

func (f *fakeObserver) Ignored(src priority.Source) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignored[src]++
}

func (f *fakeObserver) Violation(src priority.Source, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations[src]++
}

func (f *fakeObserver) count(m map[priority.Source]int, src priority.Source) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return m[src]
}

// ---- helpers ----

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c, err := New(priority.Default(), opts...)
	require.NoError(t, err)
	return c
}

func start(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() {
		cancel()
		c.Wait()
	})
}

func signal(ch chan struct{}) Handler {
	return func() { ch <- struct{}{} }
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// ---- tests ----

func TestNew_RejectsInvalidTable(t *testing.T) {
	_, err := New(priority.New(map[priority.Source]priority.Level{
		priority.CN:    7,
		priority.FLTA1: 3,
	}))
	require.ErrorIs(t, err, priority.ErrInvalidTable)
}

func TestArm_Rules(t *testing.T) {
	c := newController(t)

	require.ErrorIs(t, c.Arm(priority.T1), ErrNoHandler)

	require.NoError(t, c.Handle(priority.C1RX, func() {}))
	require.ErrorIs(t, c.Arm(priority.C1RX), ErrDisabled)

	require.NoError(t, c.Handle(priority.T1, func() {}))
	require.NoError(t, c.Arm(priority.T1))
	require.Equal(t, State{Armed: true, Level: 1}, c.State(priority.T1))
	require.Equal(t, State{}, c.State(priority.T2))
}

func TestArm_SealedAfterStart(t *testing.T) {
	c := newController(t)
	start(t, c)

	require.ErrorIs(t, c.Handle(priority.T2, func() {}), ErrSealed)
	require.ErrorIs(t, c.Arm(priority.T2), ErrSealed)
	require.ErrorIs(t, c.Start(context.Background()), ErrStarted)
}

func TestDispatch_HighestPendingFirst(t *testing.T) {
	obs := newFakeObserver()
	c := newController(t, WithObserver(obs))

	var (
		mu    sync.Mutex
		order []priority.Source
		done  = make(chan struct{}, 4)
	)
	record := func(src priority.Source) Handler {
		return func() {
			mu.Lock()
			order = append(order, src)
			mu.Unlock()
			done <- struct{}{}
		}
	}

	for _, src := range []priority.Source{priority.T1, priority.T2, priority.DMA0, priority.T4} {
		require.NoError(t, c.Handle(src, record(src)))
		require.NoError(t, c.Arm(src))
	}

	// all pending before dispatch begins
	c.Raise(priority.T1)
	c.Raise(priority.T4)
	c.Raise(priority.DMA0)
	c.Raise(priority.T2)

	start(t, c)
	for i := 0; i < 4; i++ {
		waitFor(t, done, "dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []priority.Source{priority.DMA0, priority.T4, priority.T2, priority.T1}, order)
}

func TestCritical_FaultStillDispatched(t *testing.T) {
	c := newController(t)

	ledRan := make(chan struct{}, 1)
	faultRan := make(chan struct{}, 1)
	require.NoError(t, c.Handle(priority.T1, signal(ledRan)))
	require.NoError(t, c.Handle(priority.CN, signal(faultRan)))
	require.NoError(t, c.Arm(priority.T1))
	require.NoError(t, c.Arm(priority.CN))
	start(t, c)

	c.Critical(func() {
		c.Raise(priority.T1)
		c.Raise(priority.CN)

		waitFor(t, faultRan, "fault inside critical section")

		select {
		case <-ledRan:
			t.Fatalf("normal source dispatched inside critical section")
		case <-time.After(20 * time.Millisecond):
		}
	})

	waitFor(t, ledRan, "deferred normal dispatch")
}

func TestCritical_WaitsForInFlightHandler(t *testing.T) {
	c := newController(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var order []string

	require.NoError(t, c.Handle(priority.T1, func() {
		close(entered)
		<-release
		mu.Lock()
		order = append(order, "handler")
		mu.Unlock()
	}))
	require.NoError(t, c.Arm(priority.T1))
	start(t, c)

	c.Raise(priority.T1)
	waitFor(t, entered, "handler entry")

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	c.Critical(func() {
		mu.Lock()
		order = append(order, "critical")
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"handler", "critical"}, order)
}

func TestFault_PreemptsRunningHandler(t *testing.T) {
	c := newController(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	require.NoError(t, c.Handle(priority.T1, func() {
		close(entered)
		<-release
		close(finished)
	}))
	require.NoError(t, c.Handle(priority.FLTA1, func() { close(release) }))
	require.NoError(t, c.Arm(priority.T1))
	require.NoError(t, c.Arm(priority.FLTA1))
	start(t, c)

	c.Raise(priority.T1)
	waitFor(t, entered, "housekeeping handler")

	// T1 is blocked until the fault handler runs.
	c.Raise(priority.FLTA1)
	waitFor(t, finished, "housekeeping completion after fault")
}

func TestFault_LatchesUntilRearm(t *testing.T) {
	obs := newFakeObserver()
	c := newController(t, WithObserver(obs))

	trips := make(chan struct{}, 4)
	require.NoError(t, c.Handle(priority.CN, signal(trips)))
	require.NoError(t, c.Arm(priority.CN))
	start(t, c)

	c.Raise(priority.CN)
	waitFor(t, trips, "first trip")
	require.Eventually(t, func() bool { return !c.State(priority.CN).Armed }, time.Second, time.Millisecond)

	c.Raise(priority.CN)
	require.Equal(t, 1, obs.count(obs.ignored, priority.CN))

	require.NoError(t, c.Rearm(priority.CN))
	require.ErrorIs(t, c.Rearm(priority.CN), ErrNotLatched)

	c.Raise(priority.CN)
	waitFor(t, trips, "second trip")
}

func TestRearm_NeverArmedFaultRejected(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Handle(priority.T1, func() {}))
	require.NoError(t, c.Arm(priority.T1))
	start(t, c)

	// FLTA1 was left disabled by configuration: it is not latched, only off
	require.ErrorIs(t, c.Rearm(priority.FLTA1), ErrNotLatched)
	require.False(t, c.State(priority.FLTA1).Armed)
}

func TestRearm_NonFaultRejected(t *testing.T) {
	c := newController(t)
	require.ErrorIs(t, c.Rearm(priority.T1), ErrNotFault)
}

func TestRaise_CoalescesAsOverrun(t *testing.T) {
	obs := newFakeObserver()
	c := newController(t, WithObserver(obs))

	ran := make(chan struct{}, 4)
	require.NoError(t, c.Handle(priority.T1, signal(ran)))
	require.NoError(t, c.Arm(priority.T1))
	start(t, c)

	c.Critical(func() {
		c.Raise(priority.T1)
		c.Raise(priority.T1)
	})

	waitFor(t, ran, "coalesced dispatch")
	require.Equal(t, 1, obs.count(obs.overruns, priority.T1))

	select {
	case <-ran:
		t.Fatalf("coalesced raise dispatched twice")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDispatch_BudgetViolation(t *testing.T) {
	obs := newFakeObserver()
	c := newController(t, WithObserver(obs), WithBudget(time.Microsecond))

	done := make(chan struct{}, 1)
	require.NoError(t, c.Handle(priority.T1, func() {
		time.Sleep(2 * time.Millisecond)
		done <- struct{}{}
	}))
	require.NoError(t, c.Arm(priority.T1))
	start(t, c)

	c.Raise(priority.T1)
	waitFor(t, done, "slow handler")
	require.Eventually(t, func() bool {
		return obs.count(obs.violations, priority.T1) == 1
	}, time.Second, time.Millisecond)
}

func TestRaise_DisabledIgnored(t *testing.T) {
	obs := newFakeObserver()
	c := newController(t, WithObserver(obs))

	c.Raise(priority.T3)
	require.Equal(t, 1, obs.count(obs.ignored, priority.T3))
}
