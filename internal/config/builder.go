// internal/config/builder.go
package config

import (
	"fmt"
	"time"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/clock"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// Accessors below turn the YAML shape into runtime types.
// They assume a validated, normalized config.

func (c *Config) Oscillator() clock.Oscillator {
	return clock.Oscillator{
		CrystalHz:     c.Clock.CrystalHz,
		PLLMultiplier: c.Clock.PLLMultiplier,
		PreDivider:    c.Clock.PreDivider,
		PostDivider:   c.Clock.PostDivider,
	}
}

func (c *Config) TickTimer() clock.Timer {
	return clock.Timer{
		Prescaler: c.Housekeeping.Timer.Prescaler,
		Period:    c.Housekeeping.Timer.Period,
	}
}

// Budget is the longest a handler may run before it is reported.
func (c *Config) Budget() time.Duration {
	return time.Duration(c.Housekeeping.HandlerBudgetUs) * time.Microsecond
}

// TelemetryPeriod is the status publication period (Timer4 analogue).
func (c *Config) TelemetryPeriod() time.Duration {
	return time.Duration(c.Telemetry.RateMs) * time.Millisecond
}

// InitialRates parses the configured start-up blink rates.
func (c *Config) InitialRates() (green, red blink.Rate, err error) {
	if green, err = blink.ParseRate(c.Housekeeping.GreenRate); err != nil {
		return blink.Rate{}, blink.Rate{}, fmt.Errorf("green_rate: %w", err)
	}
	if red, err = blink.ParseRate(c.Housekeeping.RedRate); err != nil {
		return blink.Rate{}, blink.Rate{}, fmt.Errorf("red_rate: %w", err)
	}
	return green, red, nil
}

// Table builds the priority table. An empty map selects the reference table.
func (c *Config) Table() (priority.Table, error) {
	if len(c.Priorities) == 0 {
		return priority.Default(), nil
	}

	levels := make(map[priority.Source]priority.Level, len(c.Priorities))
	for name, lvl := range c.Priorities {
		src, err := priority.ParseSource(name)
		if err != nil {
			return priority.Table{}, err
		}
		if _, dup := levels[src]; dup {
			return priority.Table{}, fmt.Errorf("priority: source %s listed twice", src)
		}
		levels[src] = priority.Level(lvl)
	}

	t := priority.New(levels)
	if err := t.Validate(); err != nil {
		return priority.Table{}, err
	}
	return t, nil
}
