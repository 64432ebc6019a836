package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/medhist-api/internal/config"
	"github.com/jwalitptl/medhist-api/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "medhist-api",
		Short:         "Patient medical history API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (defaults to ./config.yaml when present)")

	load := func() (*config.Config, *logger.Logger, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		log := logger.NewLogger(&logger.Config{
			Level:  logger.ParseLevel(cfg.Log.Level),
			Format: cfg.Log.Format,
		})
		return cfg, log, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))

	// serve shuts down gracefully when this context is cancelled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		logger.NewLogger(nil).Error(err, "command failed")
		os.Exit(1)
	}
}

type loader func() (*config.Config, *logger.Logger, error)
