// cmd/housekeeper/check.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/foc-housekeeper/internal/clock"
	"github.com/tamzrod/foc-housekeeper/internal/config"
	"github.com/tamzrod/foc-housekeeper/internal/report"
)

func newCheckCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a config and print the resolved priority table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			table, err := cfg.Table()
			if err != nil {
				return err
			}

			fcy := cfg.Oscillator().Fcy()
			reload, err := clock.ReloadFor(cfg.TelemetryPeriod(), cfg.Telemetry.Prescaler, fcy)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), report.Priorities(table, report.Timing{
				Fcy:        fcy,
				Resolution: cfg.TickTimer().Resolution(fcy),
				Tick:       cfg.TickPeriod(),
				Budget:     cfg.Budget(),
				Telemetry:  cfg.TelemetryPeriod(),
				Reload:     reload,
			}))
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "housekeeper.yaml", "path to the YAML config")
	return cmd
}
