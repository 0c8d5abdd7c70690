// internal/priority/table.go
package priority

import (
	"errors"
	"fmt"
	"sort"
)

// Level is an interrupt priority. 0 disables the source; higher preempts lower.
type Level uint8

const (
	Disabled Level = 0
	MaxLevel Level = 7
)

// ErrInvalidTable is wrapped by every Validate failure.
var ErrInvalidTable = errors.New("priority: invalid table")

// Table maps interrupt sources to priority levels.
// It is built once at startup and never mutated afterwards.
// A source absent from the table is disabled, never defaulted.
type Table struct {
	levels map[Source]Level
}

// New copies levels into a Table. The caller's map is not retained.
func New(levels map[Source]Level) Table {
	m := make(map[Source]Level, len(levels))
	for s, l := range levels {
		m[s] = l
	}
	return Table{levels: m}
}

// Default returns the board's reference assignment.
//
//	7: FAULT (over-current + external)
//	6: ADC DMA, ADC
//	5: SPI (+DMA), SPI error, I2T timer
//	4: CAN TX DMA, CAN RX DMA, CAN TX timer, ECAN1
//	3: velocity timer
//	1: housekeeping timer (LEDs)
//
// Everything else, including C1RX, stays disabled.
func Default() Table {
	return New(map[Source]Level{
		CN:    7,
		FLTA1: 7,
		DMA0:  6,
		AD1:   6,
		SPI1:  5,
		SPI1E: 5,
		T3:    5,
		DMA3:  5,
		DMA1:  4,
		DMA2:  4,
		T4:    4,
		C1:    4,
		T2:    3,
		T1:    1,
		C1RX:  0,
	})
}

// Level returns the level of s, Disabled when s is not in the table.
func (t Table) Level(s Source) Level {
	return t.levels[s]
}

// Armed reports whether s has a non-zero level.
func (t Table) Armed(s Source) bool {
	return t.Level(s) > Disabled
}

// Entry is one row of the table.
type Entry struct {
	Source Source
	Level  Level
}

// Entries returns every known source with its resolved level,
// most urgent first, ties in vector order.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(sourceNames))
	for _, s := range Sources() {
		out = append(out, Entry{Source: s, Level: t.Level(s)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Level > out[j].Level
	})
	return out
}

// Disabled lists known sources that resolve to level 0.
// Omitting a source is a silent disable; this makes it visible.
func (t Table) Disabled() []Source {
	var out []Source
	for _, s := range Sources() {
		if !t.Armed(s) {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the fault invariant before anything is armed:
// fault sources sit at MaxLevel and every other source is strictly below it.
// It does not mutate the table.
func (t Table) Validate() error {
	for s, l := range t.levels {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown source %d", ErrInvalidTable, uint8(s))
		}
		if l > MaxLevel {
			return fmt.Errorf("%w: %s level %d exceeds %d", ErrInvalidTable, s, l, MaxLevel)
		}
	}

	for _, s := range Sources() {
		l := t.Level(s)
		if s.Fault() {
			if l != MaxLevel {
				return fmt.Errorf("%w: fault source %s at level %d, must be %d", ErrInvalidTable, s, l, MaxLevel)
			}
			continue
		}
		if l >= MaxLevel {
			return fmt.Errorf("%w: %s at level %d would share the fault level", ErrInvalidTable, s, l)
		}
	}

	return nil
}

// FaultLevel returns the lowest level held by a fault source.
func (t Table) FaultLevel() Level {
	lvl := MaxLevel
	for _, s := range Sources() {
		if s.Fault() && t.Level(s) < lvl {
			lvl = t.Level(s)
		}
	}
	return lvl
}
