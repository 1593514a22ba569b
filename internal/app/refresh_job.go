package app

import (
	"context"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/follow"

	"github.com/sirupsen/logrus"
)

// RefreshHorizon is how far ahead T72_REFRESH follows are kept warm.
const RefreshHorizon = 72 * time.Hour

// RefreshJob pre-warms the current bucket for flights followed in T72_REFRESH mode.
type RefreshJob struct {
	repos     Repositories
	predictor BucketPredictor
	logger    *logrus.Entry
}

func NewRefreshJob(repos Repositories, predictor BucketPredictor, logger *logrus.Entry) *RefreshJob {
	return &RefreshJob{repos: repos, predictor: predictor, logger: logger}
}

func (j *RefreshJob) Name() string { return "refresh" }

func (j *RefreshJob) Run(ctx context.Context, now time.Time) (JobStats, error) {
	var stats JobStats

	follows, err := j.repos.Follows.ListByModeAndDateRange(ctx, follow.ModeT72Refresh, now, now.Add(RefreshHorizon))
	if err != nil {
		return stats, fmt.Errorf("failed to list follows for refresh: %w", err)
	}
	stats.Considered = len(follows)

	// Several users may follow the same flight; one refresh per request is enough.
	refreshed := make(map[int64]bool, len(follows))
	for _, f := range follows {
		if refreshed[f.RequestID] {
			stats.Skipped++
			continue
		}
		refreshed[f.RequestID] = true

		if err := runItem(func() error { return j.refresh(ctx, f, now, &stats) }); err != nil {
			stats.Errors++
			j.logger.WithError(err).WithFields(logrus.Fields{
				"request_id": f.RequestID,
				"user_id":    f.UserID,
			}).Error("Failed to refresh prediction")
		}
	}
	return stats, nil
}

func (j *RefreshJob) refresh(ctx context.Context, f *follow.Follow, now time.Time, stats *JobStats) error {
	req, err := j.repos.Requests.GetByID(ctx, f.RequestID)
	if err != nil {
		return fmt.Errorf("failed to get flight request %d: %w", f.RequestID, err)
	}
	stats.Processed++

	if !req.Active || req.IsExpired(now) {
		closed, err := CloseRequest(ctx, j.repos.Requests, req, now)
		if err != nil {
			return err
		}
		if closed {
			stats.Closed++
		}
		stats.Skipped++
		return nil
	}

	_, hit, err := j.predictor.CurrentPrediction(ctx, req, now)
	if err != nil {
		return err
	}
	if hit {
		stats.CacheHits++
	} else {
		stats.Refreshed++
	}
	return nil
}
