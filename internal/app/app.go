// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/clock"
	"github.com/tamzrod/foc-housekeeper/internal/config"
	"github.com/tamzrod/foc-housekeeper/internal/control"
	"github.com/tamzrod/foc-housekeeper/internal/events"
	"github.com/tamzrod/foc-housekeeper/internal/fault"
	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/irq"
	"github.com/tamzrod/foc-housekeeper/internal/metrics"
	"github.com/tamzrod/foc-housekeeper/internal/mux"
	"github.com/tamzrod/foc-housekeeper/internal/output"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
	"github.com/tamzrod/foc-housekeeper/internal/status"
	"github.com/tamzrod/foc-housekeeper/internal/timer"
	mb "github.com/tamzrod/foc-housekeeper/internal/transport/modbus"
)

// BusClient is the Modbus surface the housekeeper drives.
type BusClient interface {
	output.CoilWriter
	output.RegisterWriter
	control.Client
	Close() error
}

// App is one wired housekeeper: executor, tick task, fault latch,
// and the optional Modbus pin, status block and rate poller.
type App struct {
	cfg *config.Config
	log *zap.Logger

	Bus     *events.Bus
	Ctl     *irq.Controller
	Task    *housekeeping.Task
	Latch   *fault.Latch
	Metrics *metrics.Recorder

	client BusClient
	reg    *prometheus.Registry

	// background workers, started by Run
	runners []func(context.Context)
	unsubs  []func()
}

// Build dials Modbus when configured and wires every component from a
// validated, normalized config. Nothing runs until Run.
func Build(cfg *config.Config, log *zap.Logger) (*App, error) {
	var cli BusClient
	if m := cfg.Modbus; m != nil {
		c, err := mb.Dial(mb.Config{
			Endpoint: m.Endpoint,
			UnitID:   m.UnitID,
			Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
			BaudRate: m.BaudRate,
		})
		if err != nil {
			return nil, err
		}
		cli = c
	}
	return build(cfg, log, cli)
}

func build(cfg *config.Config, log *zap.Logger, cli BusClient) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		cfg:    cfg,
		log:    log,
		Bus:    events.New(),
		client: cli,
		reg:    prometheus.NewRegistry(),
	}
	a.Metrics = metrics.New(a.reg, cfg.Budget(), a.Bus)

	table, err := cfg.Table()
	if err == nil {
		a.Ctl, err = irq.New(table,
			irq.WithBudget(cfg.Budget()),
			irq.WithObserver(a.Metrics),
			irq.WithLogger(log.Named("irq")),
		)
	}
	if err == nil {
		err = a.wire()
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	cfg := a.cfg
	table := a.Ctl.Table()

	// ---- LED pin ----
	var pin mux.Pin = output.NewLogPin(a.log.Named("led"))
	if a.client != nil {
		cp, err := output.NewCoilPin(a.client, cfg.Modbus.LedCoil, a.log.Named("led"))
		if err != nil {
			return err
		}
		pin = cp
		a.runners = append(a.runners, cp.Run)
	}

	// ---- housekeeping tick (T1) ----
	green, red, err := cfg.InitialRates()
	if err != nil {
		return err
	}
	a.Task = housekeeping.New(pin, green, red, a.Metrics, a.log.Named("housekeeping"))
	a.Latch = fault.NewLatch(a.Task.Green(), a.Task.Red(), a.Ctl, a.Bus, a.log.Named("fault"))
	a.Latch.Apply(green, red)

	if err := a.attach(priority.T1, a.Task.Tick); err != nil {
		return err
	}
	if err := a.addTimer(priority.T1, cfg.TickPeriod()); err != nil {
		return err
	}

	// ---- fault sources ----
	if cfg.Faults.External {
		if err := a.attach(priority.CN, a.Latch.Handler(priority.CN)); err != nil {
			return err
		}
	}
	if cfg.Faults.OverCurrent {
		if err := a.attach(priority.FLTA1, a.Latch.Handler(priority.FLTA1)); err != nil {
			return err
		}
	}

	// ---- telemetry (T4) ----
	if a.client != nil && cfg.Modbus.StatusRegister != nil && table.Armed(priority.T4) {
		sw, err := output.NewStatusWriter(a.client, *cfg.Modbus.StatusRegister, cfg.Telemetry.DeviceName)
		if err != nil {
			return err
		}
		pub, err := output.NewPublisher(sw, a.Metrics.Dropped, a.log.Named("telemetry"))
		if err != nil {
			return err
		}
		a.runners = append(a.runners, pub.Run)

		if err := a.attach(priority.T4, func() { pub.Offer(a.Status()) }); err != nil {
			return err
		}

		// period as the hardware would run it: rounded to a whole reload
		fcy := cfg.Oscillator().Fcy()
		reload, err := clock.ReloadFor(cfg.TelemetryPeriod(), cfg.Telemetry.Prescaler, fcy)
		if err != nil {
			return err
		}
		period := clock.Timer{Prescaler: cfg.Telemetry.Prescaler, Period: reload}.Duration(fcy)
		if err := a.addTimer(priority.T4, period); err != nil {
			return err
		}
	}

	// ---- external rate controller and fault inputs ----
	if m := cfg.Modbus; a.client != nil && (m.RateRegister != nil || m.FaultInput != nil) {
		p, err := control.New(
			control.Config{
				Interval:     time.Duration(m.PollMs) * time.Millisecond,
				RateRegister: m.RateRegister,
				FaultInput:   m.FaultInput,
			},
			control.Deps{
				Client:  a.client,
				Sink:    a.Latch,
				Reset:   a.Latch,
				Raiser:  a.Ctl,
				OnError: a.Metrics.PollFailed,
			},
			a.log.Named("control"),
		)
		if err != nil {
			return err
		}
		a.runners = append(a.runners, p.Run)
	}

	// ---- event log ----
	a.unsubs = append(a.unsubs,
		a.Bus.Subscribe(func(ev events.FaultTripped) {
			a.log.Error("fault tripped", zap.String("source", ev.Source), zap.Time("at", ev.At))
		}),
		a.Bus.Subscribe(func(ev events.FaultCleared) {
			a.log.Info("fault cleared", zap.String("source", ev.Source))
		}),
		a.Bus.Subscribe(func(ev events.TimingViolation) {
			a.log.Warn("handler over budget",
				zap.String("source", ev.Source),
				zap.Duration("took", ev.Took),
				zap.Duration("budget", ev.Budget))
		}),
	)

	return nil
}

func (a *App) attach(src priority.Source, h irq.Handler) error {
	if err := a.Ctl.Handle(src, h); err != nil {
		return fmt.Errorf("attach %s: %w", src, err)
	}
	if err := a.Ctl.Arm(src); err != nil {
		return fmt.Errorf("arm %s: %w", src, err)
	}
	return nil
}

func (a *App) addTimer(src priority.Source, period time.Duration) error {
	t, err := timer.New(src, period, a.Ctl)
	if err != nil {
		return fmt.Errorf("timer %s: %w", src, err)
	}
	a.log.Debug("timer configured", zap.Stringer("source", src), zap.Duration("period", t.Period()))
	a.runners = append(a.runners, t.Run)
	return nil
}

// Status assembles the telemetry snapshot from the last completed tick.
func (a *App) Status() status.Snapshot {
	hk := a.Task.Snapshot()
	tot := a.Metrics.Totals()

	var latched uint16
	for _, src := range a.Latch.Tripped() {
		switch src {
		case priority.CN:
			latched |= status.LatchedExternal
		case priority.FLTA1:
			latched |= status.LatchedOverCurrent
		}
	}

	health := status.HealthOK
	switch {
	case latched != 0:
		health = status.HealthFault
	case hk.Tick == 0:
		health = status.HealthUnknown
	}

	return status.Snapshot{
		Health:     health,
		GreenOn:    hk.GreenOn,
		RedOn:      hk.RedOn,
		SlotRed:    hk.Slot == mux.Red,
		Output:     hk.Output,
		GreenRate:  hk.GreenRate.Word(),
		RedRate:    hk.RedRate.Word(),
		Ticks:      uint32(hk.Tick),
		Overruns:   status.Saturate(tot.Overruns),
		Violations: status.Saturate(tot.Violations),
		Faults:     status.Saturate(tot.Faults),
		Latched:    latched,
	}
}

// Run starts dispatch and every worker, then blocks until ctx is done
// and everything has stopped.
func (a *App) Run(ctx context.Context) error {
	if err := a.Ctl.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, run := range a.runners {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}

	var srvErr error
	if addr := a.cfg.Metrics.Listen; addr != "" {
		hmux := http.NewServeMux()
		hmux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: hmux, ReadHeaderTimeout: 5 * time.Second}

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.log.Info("metrics listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr = fmt.Errorf("metrics server: %w", err)
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.log.Info("housekeeper running",
		zap.Duration("tick", a.cfg.TickPeriod()),
		zap.Bool("modbus", a.client != nil))

	<-ctx.Done()
	wg.Wait()
	a.Ctl.Wait()
	return srvErr
}

// Close releases the Modbus connection and event subscriptions.
func (a *App) Close() error {
	for _, u := range a.unsubs {
		u()
	}
	a.unsubs = nil

	if a.client != nil {
		return a.client.Close()
	}
	return nil
}
