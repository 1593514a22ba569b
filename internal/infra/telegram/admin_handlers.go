package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flight_delay_tracker/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	b.Handle("/run_job", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/run_job",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		usage := fmt.Sprintf("Usage: /run_job <%s>", strings.Join(adminService.JobNames(), "|"))
		args := c.Args()
		if len(args) != 1 {
			return c.Send(usage)
		}
		name := strings.ToLower(args[0])
		handlerLogger = handlerLogger.WithField("job", name)

		stats, err := adminService.RunJob(ctx, c.Sender().ID, name)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send("Error: you are not allowed to run this command.")
			case errors.Is(err, app.ErrUnknownJob):
				return c.Send(usage)
			default:
				logWithError.Error("Manual job run failed")
				return c.Send(fmt.Sprintf("Job %s failed: %s", name, err.Error()))
			}
		}

		handlerLogger.WithFields(stats.Fields()).Info("Manual job run completed")
		return c.Send(JobStatsText(name, stats))
	})
}

func JobStatsText(name string, s app.JobStats) string {
	return fmt.Sprintf("Job %s finished: considered=%d processed=%d saved=%d refreshed=%d cache_hits=%d notified=%d skipped=%d closed=%d errors=%d",
		name, s.Considered, s.Processed, s.Saved, s.Refreshed, s.CacheHits, s.Notified, s.Skipped, s.Closed, s.Errors)
}
