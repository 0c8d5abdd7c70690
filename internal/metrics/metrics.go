// Package metrics exposes executor and housekeeping counters to Prometheus.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tamzrod/foc-housekeeper/internal/events"
	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

const namespace = "housekeeper"

// Recorder implements irq.Observer and housekeeping.Observer.
// All collectors live on the registry passed to New.
type Recorder struct {
	ticks      prometheus.Counter
	output     prometheus.Gauge
	handler    *prometheus.HistogramVec
	overruns   *prometheus.CounterVec
	ignored    *prometheus.CounterVec
	violations *prometheus.CounterVec
	faults     *prometheus.CounterVec
	drops      prometheus.Counter
	pollErrors prometheus.Counter

	// running totals for the status block
	nOverruns   atomic.Uint64
	nViolations atomic.Uint64
	nFaults     atomic.Uint64

	budget time.Duration
	bus    *events.Bus
}

// Totals are the counts carried in the status block.
type Totals struct {
	Overruns   uint64
	Violations uint64
	Faults     uint64
}

// New registers every collector on reg. bus may be nil.
func New(reg prometheus.Registerer, budget time.Duration, bus *events.Bus) *Recorder {
	f := promauto.With(reg)

	return &Recorder{
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leds",
			Name:      "ticks_total",
			Help:      "Housekeeping ticks executed",
		}),
		output: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leds",
			Name:      "output",
			Help:      "Level last driven on the shared LED output",
		}),
		handler: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "irq",
			Name:      "handler_seconds",
			Help:      "Handler run time per interrupt source",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"source"}),
		overruns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "irq",
			Name:      "overruns_total",
			Help:      "Raises coalesced into an already pending request",
		}, []string{"source"}),
		ignored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "irq",
			Name:      "ignored_total",
			Help:      "Raises dropped because the source was not armed",
		}, []string{"source"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "irq",
			Name:      "budget_violations_total",
			Help:      "Handlers that outlived the configured budget",
		}, []string{"source"}),
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fault",
			Name:      "trips_total",
			Help:      "Fault sources dispatched",
		}, []string{"source"}),
		drops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "dropped_total",
			Help:      "Status snapshots dropped while the writer was busy",
		}),
		pollErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "poll_errors_total",
			Help:      "Failed rate poll cycles",
		}),
		budget: budget,
		bus:    bus,
	}
}

// Dispatched implements irq.Observer.
func (r *Recorder) Dispatched(src priority.Source, took time.Duration) {
	r.handler.WithLabelValues(src.String()).Observe(took.Seconds())
	if src.Fault() {
		r.faults.WithLabelValues(src.String()).Inc()
		r.nFaults.Add(1)
	}
}

// Overrun implements irq.Observer.
func (r *Recorder) Overrun(src priority.Source) {
	r.overruns.WithLabelValues(src.String()).Inc()
	r.nOverruns.Add(1)
}

// Ignored implements irq.Observer.
func (r *Recorder) Ignored(src priority.Source) {
	r.ignored.WithLabelValues(src.String()).Inc()
}

// Violation implements irq.Observer.
func (r *Recorder) Violation(src priority.Source, took time.Duration) {
	r.violations.WithLabelValues(src.String()).Inc()
	r.nViolations.Add(1)
	if r.bus != nil {
		r.bus.Publish(events.TimingViolation{
			Source: src.String(),
			Took:   took,
			Budget: r.budget,
		})
	}
}

// Ticked implements housekeeping.Observer.
func (r *Recorder) Ticked(s housekeeping.Snapshot) {
	r.ticks.Inc()
	if s.Output {
		r.output.Set(1)
	} else {
		r.output.Set(0)
	}
}

// Dropped counts one discarded telemetry snapshot.
func (r *Recorder) Dropped() { r.drops.Inc() }

// PollFailed counts one failed control poll.
func (r *Recorder) PollFailed() { r.pollErrors.Inc() }

// Totals returns the running totals since start.
func (r *Recorder) Totals() Totals {
	return Totals{
		Overruns:   r.nOverruns.Load(),
		Violations: r.nViolations.Load(),
		Faults:     r.nFaults.Load(),
	}
}
