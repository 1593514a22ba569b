package app

import (
	"context"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/flight"

	"github.com/sirupsen/logrus"
)

// ExpiryJob closes requests whose flight is more than 24h in the past, whether or not
// an outcome was ever recorded.
type ExpiryJob struct {
	repos  Repositories
	logger *logrus.Entry
}

func NewExpiryJob(repos Repositories, logger *logrus.Entry) *ExpiryJob {
	return &ExpiryJob{repos: repos, logger: logger}
}

func (j *ExpiryJob) Name() string { return "expiry" }

func (j *ExpiryJob) Run(ctx context.Context, now time.Time) (JobStats, error) {
	var stats JobStats
	cutoff := now.Add(-flight.StaleAge)

	candidates, err := j.repos.Requests.ListActiveBefore(ctx, cutoff)
	if err != nil {
		return stats, fmt.Errorf("failed to list stale flight requests: %w", err)
	}
	stats.Considered = len(candidates)

	for _, req := range candidates {
		if !req.FlightDate.Before(cutoff) {
			stats.Skipped++
			continue
		}
		err := runItem(func() error {
			closed, err := CloseRequest(ctx, j.repos.Requests, req, now)
			if closed {
				stats.Closed++
			}
			return err
		})
		if err != nil {
			stats.Errors++
			j.logger.WithError(err).WithFields(requestFields(req)).Error("Failed to close stale flight request")
			continue
		}
		stats.Processed++
	}
	return stats, nil
}
