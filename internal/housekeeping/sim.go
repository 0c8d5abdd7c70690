// internal/housekeeping/sim.go
package housekeeping

import "github.com/tamzrod/foc-housekeeper/internal/blink"

// Simulate runs n ticks at fixed rates with no pin attached
// and returns the snapshot published by each tick.
func Simulate(green, red blink.Rate, n int) []Snapshot {
	t := New(nil, green, red, nil, nil)

	out := make([]Snapshot, 0, max(n, 0))
	for i := 0; i < n; i++ {
		t.Tick()
		out = append(out, t.Snapshot())
	}
	return out
}
