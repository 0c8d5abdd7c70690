// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/foc-housekeeper/internal/clock"
	"github.com/tamzrod/foc-housekeeper/internal/control"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
	"github.com/tamzrod/foc-housekeeper/internal/status"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are checked as the defaults Normalize will apply.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("nil config")
	}
	eff := effective(cfg)

	// ------------------------------------------------------------
	// CLOCK / TIMING
	// ------------------------------------------------------------

	osc := eff.Oscillator()
	if err := osc.Validate(); err != nil {
		return invalid("clock: %v", err)
	}

	tick := eff.TickTimer()
	if err := tick.Validate(); err != nil {
		return invalid("housekeeping.timer: %v", err)
	}

	if eff.Housekeeping.HandlerBudgetUs < 0 {
		return invalid("housekeeping.handler_budget_us must be >= 0")
	}

	// the handler must finish before the next tick is due
	if period, budget := eff.TickPeriod(), eff.Budget(); period <= budget {
		return invalid("tick period %s must exceed handler budget %s", period, budget)
	}

	if _, _, err := eff.InitialRates(); err != nil {
		return invalid("housekeeping: %v", err)
	}

	// ------------------------------------------------------------
	// TELEMETRY
	// ------------------------------------------------------------

	if eff.Telemetry.RateMs < 0 {
		return invalid("telemetry.rate_ms must be >= 0")
	}
	if _, err := clock.ReloadFor(eff.TelemetryPeriod(), eff.Telemetry.Prescaler, osc.Fcy()); err != nil {
		return invalid("telemetry: %v", err)
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(cfg.Telemetry.DeviceName); i++ {
		if cfg.Telemetry.DeviceName[i] > 0x7F {
			return invalid("telemetry.device_name must contain ASCII characters only")
		}
	}

	// ------------------------------------------------------------
	// PRIORITIES / FAULTS
	// ------------------------------------------------------------

	table, err := eff.Table()
	if err != nil {
		return invalid("priorities: %v", err)
	}
	if !table.Armed(priority.T1) {
		return invalid("priorities: housekeeping timer T1 must be enabled")
	}
	if eff.Faults.External && !table.Armed(priority.CN) {
		return invalid("faults.external requires CN to be enabled")
	}
	if eff.Faults.OverCurrent && !table.Armed(priority.FLTA1) {
		return invalid("faults.overcurrent requires FLTA1 to be enabled")
	}

	// ------------------------------------------------------------
	// MODBUS (OPT-IN)
	// ------------------------------------------------------------

	if m := eff.Modbus; m != nil {
		if err := validateModbus(m); err != nil {
			return err
		}
	}

	return nil
}

func validateModbus(m *ModbusConfig) error {
	if m.Endpoint == "" {
		return invalid("modbus.endpoint is required")
	}
	if m.TimeoutMs < 0 || m.PollMs < 0 || m.BaudRate < 0 {
		return invalid("modbus: timeout_ms, poll_ms and baud_rate must be >= 0")
	}
	if m.LedCoil == 0xFFFF {
		return invalid("modbus.led_coil needs two coils")
	}

	type span struct {
		name       string
		start, end int
	}
	var spans []span

	if m.RateRegister != nil {
		start := int(*m.RateRegister)
		spans = append(spans, span{"rate_register", start, start + control.BlockLen - 1})
	}
	if m.StatusRegister != nil {
		start := int(*m.StatusRegister)
		spans = append(spans, span{"status_register", start, start + status.SlotsPerBlock - 1})
	}

	// discrete inputs live in their own address space
	if m.FaultInput != nil && int(*m.FaultInput)+control.InputLen-1 > 0xFFFF {
		return invalid("modbus.fault_input block at %d overflows input space", *m.FaultInput)
	}

	for i, a := range spans {
		if a.end > 0xFFFF {
			return invalid("modbus.%s block %d-%d overflows register space", a.name, a.start, a.end)
		}
		for _, b := range spans[:i] {
			// overlap check (inclusive)
			if !(a.end < b.start || a.start > b.end) {
				return invalid(
					"modbus register overlap: %s range=%d-%d overlaps with %s range=%d-%d",
					a.name, a.start, a.end, b.name, b.start, b.end,
				)
			}
		}
	}

	return nil
}

// effective returns a normalized copy of cfg. cfg itself is untouched.
func effective(cfg *Config) *Config {
	eff := *cfg
	if cfg.Modbus != nil {
		m := *cfg.Modbus
		eff.Modbus = &m
	}
	Normalize(&eff)
	return &eff
}

// TickPeriod is the housekeeping timer period at the configured clock.
func (c *Config) TickPeriod() time.Duration {
	return c.TickTimer().Duration(c.Oscillator().Fcy())
}
