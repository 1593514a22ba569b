package main

import (
	"fmt"
	"strings"

	"flight_delay_tracker/internal/infra/telegram"

	"github.com/spf13/cobra"
)

func runJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-job [actuals|refresh|notify|expiry]",
		Short: "Run one job pass now and exit",
		Long: `Run a single pass of a periodic job outside the scheduler, e.g. to backfill
after an outage. Runs are idempotent and safe to repeat.

Examples:
  tracker run-job actuals
  tracker run-job notify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApplication(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			// The operator running the binary acts as the configured admin.
			name := strings.ToLower(args[0])
			stats, err := a.admin.RunJob(cmd.Context(), cfg.AdminTelegramID, name)
			if err != nil {
				return fmt.Errorf("job %s: %w", name, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), telegram.JobStatsText(name, stats))
			return nil
		},
	}
}
