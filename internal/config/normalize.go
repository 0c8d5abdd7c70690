// internal/config/normalize.go
package config

import (
	"github.com/tamzrod/foc-housekeeper/internal/clock"
	"github.com/tamzrod/foc-housekeeper/internal/status"
)

// Defaults reproduce the reference board; the oscillator comes from clock.Reference.
const (
	DefaultTimerPrescaler  = 64
	DefaultTimerPeriod     = 3000
	DefaultHandlerBudgetUs = 1000
	DefaultTelemetryRateMs = 100
	DefaultTelemetryPresc  = 256
	DefaultModbusTimeoutMs = 1000
	DefaultPollMs          = 50
	DefaultLogLevel        = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	c, ref := &cfg.Clock, clock.Reference()
	if c.CrystalHz == 0 {
		c.CrystalHz = ref.CrystalHz
	}
	if c.PLLMultiplier == 0 {
		c.PLLMultiplier = ref.PLLMultiplier
	}
	if c.PreDivider == 0 {
		c.PreDivider = ref.PreDivider
	}
	if c.PostDivider == 0 {
		c.PostDivider = ref.PostDivider
	}

	h := &cfg.Housekeeping
	if h.Timer.Prescaler == 0 {
		h.Timer.Prescaler = DefaultTimerPrescaler
	}
	if h.Timer.Period == 0 {
		h.Timer.Period = DefaultTimerPeriod
	}
	if h.HandlerBudgetUs == 0 {
		h.HandlerBudgetUs = DefaultHandlerBudgetUs
	}
	if h.GreenRate == "" {
		h.GreenRate = "still"
	}
	if h.RedRate == "" {
		h.RedRate = "off"
	}

	t := &cfg.Telemetry
	if t.RateMs == 0 {
		t.RateMs = DefaultTelemetryRateMs
	}
	if t.Prescaler == 0 {
		t.Prescaler = DefaultTelemetryPresc
	}
	// device_name: ASCII already validated, truncate to the slots available
	if len(t.DeviceName) > status.DeviceNameMaxChars {
		t.DeviceName = t.DeviceName[:status.DeviceNameMaxChars]
	}

	if m := cfg.Modbus; m != nil {
		if m.TimeoutMs == 0 {
			m.TimeoutMs = DefaultModbusTimeoutMs
		}
		if m.PollMs == 0 {
			m.PollMs = DefaultPollMs
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
