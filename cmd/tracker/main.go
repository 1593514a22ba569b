package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flight_delay_tracker/internal/infra/config"
	"flight_delay_tracker/internal/infra/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Flight delay prediction tracker",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runJobCmd())
	rootCmd.AddCommand(migrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and initializes the global logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	logger.Component("main").WithFields(logrus.Fields{
		"environment":    cfg.Environment,
		"storage_driver": cfg.StorageDriver,
		"admin_id":       cfg.AdminTelegramID,
	}).Info("Configuration loaded")
	return cfg, nil
}
