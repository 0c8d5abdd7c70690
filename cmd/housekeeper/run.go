// cmd/housekeeper/run.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/foc-housekeeper/internal/app"
	"github.com/tamzrod/foc-housekeeper/internal/config"
	"github.com/tamzrod/foc-housekeeper/internal/logging"
)

func newRunCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the executor until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := app.Build(cfg, log)
			if err != nil {
				log.Error("build failed", zap.Error(err))
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "housekeeper.yaml", "path to the YAML config")
	return cmd
}
