// cmd/housekeeper/simulate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/foc-housekeeper/internal/blink"
	"github.com/tamzrod/foc-housekeeper/internal/housekeeping"
	"github.com/tamzrod/foc-housekeeper/internal/report"
)

func newSimulateCmd() *cobra.Command {
	var (
		green, red string
		ticks      int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Print the LED trace for fixed rates without dispatching",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := blink.ParseRate(green)
			if err != nil {
				return fmt.Errorf("--green: %w", err)
			}
			r, err := blink.ParseRate(red)
			if err != nil {
				return fmt.Errorf("--red: %w", err)
			}
			if ticks <= 0 {
				return fmt.Errorf("--ticks must be > 0")
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Trace(housekeeping.Simulate(g, r, ticks)))
			return nil
		},
	}

	cmd.Flags().StringVar(&green, "green", "still", "green rate: still, off or periodic:<n>")
	cmd.Flags().StringVar(&red, "red", "off", "red rate: still, off or periodic:<n>")
	cmd.Flags().IntVar(&ticks, "ticks", 8, "number of ticks to simulate")
	return cmd
}
