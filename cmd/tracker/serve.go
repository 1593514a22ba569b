package main

import (
	"context"
	"time"

	"flight_delay_tracker/internal/infra/logger"
	"flight_delay_tracker/internal/infra/metrics"
	"flight_delay_tracker/internal/infra/scheduler"
	"flight_delay_tracker/internal/infra/telegram"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the job scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			mainLogger := logger.Component("main")

			a, err := buildApplication(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			mainLogger.Info("Repositories and services initialized.")

			jobScheduler := scheduler.NewJobScheduler(a.runner, logger.Component("scheduler"), a.schedule...)
			if err := jobScheduler.Start(); err != nil {
				return err
			}

			var metricsServer *metrics.Server
			if cfg.MetricsAddr != "" {
				metricsServer = metrics.NewServer(cfg.MetricsAddr, a.registry, logger.Component("metrics"))
				metricsServer.Start()
			}

			// Register Handlers
			telegram.RegisterBotCommands(ctx, a.bot, a.predictions, logger.Component("telegram"))
			telegram.RegisterAdminHandlers(ctx, a.bot, a.admin, logger.Component("telegram_admin"))
			mainLogger.Info("Telegram handlers registered.")

			go a.bot.Start()
			mainLogger.Info("Application setup complete. Bot and scheduler are running.")

			<-ctx.Done()

			mainLogger.Info("Shutting down application...")
			a.bot.Stop()
			jobScheduler.Stop()
			if metricsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					mainLogger.WithError(err).Warn("Metrics endpoint did not shut down cleanly")
				}
			}
			mainLogger.Info("Application shut down gracefully.")
			return nil
		},
	}
}
