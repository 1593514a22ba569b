package main

import (
	"fmt"

	"flight_delay_tracker/internal/infra/config"
	"flight_delay_tracker/internal/infra/logger"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
			}
			db, err := openMigratedDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			logger.Component("main").Info("Schema is up to date.")
			return nil
		},
	}
}
