// Package report renders operator-facing tables for the CLI.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/priority"
)

// Timing is the resolved timing shown next to the priority table.
type Timing struct {
	Fcy        float64
	Resolution time.Duration // one count of the tick timer
	Tick       time.Duration
	Budget     time.Duration
	Telemetry  time.Duration
	Reload     uint16
}

// Priorities renders the table most urgent first with the timing footer.
func Priorities(t priority.Table, tm Timing) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)
	w.AppendHeader(table.Row{"Level", "Source", "Lane", "State"})

	for _, e := range t.Entries() {
		lane := "normal"
		if e.Source.Fault() {
			lane = "fault"
		}
		state := "enabled"
		if e.Level == priority.Disabled {
			state = "disabled"
		}
		w.AppendRow(table.Row{uint8(e.Level), e.Source.String(), lane, state})
	}

	w.AppendFooter(table.Row{
		"",
		fmt.Sprintf("Fcy %.0f Hz (%s/count)", tm.Fcy, tm.Resolution),
		fmt.Sprintf("tick %s budget %s", tm.Tick, tm.Budget),
		fmt.Sprintf("telemetry %s (PR4=%d)", tm.Telemetry, tm.Reload),
	})

	out := w.Render()
	if dis := t.Disabled(); len(dis) > 0 {
		names := make([]string, len(dis))
		for i, s := range dis {
			names[i] = s.String()
		}
		out += "\ndisabled: " + strings.Join(names, ", ") + "\n"
	}
	return out
}

// Trace renders one row per simulated tick.
func Trace(snaps []housekeeping.Snapshot) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Tick", "Green", "Red", "Slot", "Output"})

	for _, s := range snaps {
		w.AppendRow(table.Row{s.Tick, onOff(s.GreenOn), onOff(s.RedOn), s.Slot.String(), onOff(s.Output)})
	}
	return w.Render()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
