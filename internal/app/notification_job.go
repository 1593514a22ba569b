// internal/app/notification_job.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/follow"

	"github.com/sirupsen/logrus"
)

// The notification window around the T-12h mark.
const (
	NotifyWindowStart = 11 * time.Hour
	NotifyWindowEnd   = 13 * time.Hour
)

// StatusChangeSink delivers the T-12h status change notification to one user.
type StatusChangeSink interface {
	SendT12hStatusChange(ctx context.Context, userID int64, req *flight.Request, baseline, current *flight.Prediction) error
	Channel() string
}

// NotificationJob compares each follower's baseline prediction with the current one
// for flights 11–13h out and notifies each user at most once per flight.
type NotificationJob struct {
	repos       Repositories
	predictor   BucketPredictor
	sink        StatusChangeSink
	callTimeout time.Duration
	logger      *logrus.Entry
}

func NewNotificationJob(repos Repositories, predictor BucketPredictor, sink StatusChangeSink, callTimeout time.Duration, logger *logrus.Entry) *NotificationJob {
	return &NotificationJob{repos: repos, predictor: predictor, sink: sink, callTimeout: callTimeout, logger: logger}
}

func (j *NotificationJob) Name() string { return "notify" }

// pendingNotice is a follower that passed the dedup gate and has a baseline.
type pendingNotice struct {
	follow   *follow.Follow
	baseline *flight.Prediction
}

func (j *NotificationJob) Run(ctx context.Context, now time.Time) (JobStats, error) {
	var stats JobStats

	requests, err := j.repos.Requests.ListInDateRange(ctx, now.Add(NotifyWindowStart), now.Add(NotifyWindowEnd))
	if err != nil {
		return stats, fmt.Errorf("failed to list flight requests in notification window: %w", err)
	}

	for _, req := range requests {
		if err := runItem(func() error { return j.notifyFlight(ctx, req, now, &stats) }); err != nil {
			stats.Errors++
			j.logger.WithError(err).WithFields(requestFields(req)).Error("Failed to process notifications for flight")
		}
	}
	return stats, nil
}

func (j *NotificationJob) notifyFlight(ctx context.Context, req *flight.Request, now time.Time, stats *JobStats) error {
	followers, err := j.repos.Follows.ListByRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("failed to list followers: %w", err)
	}
	stats.Considered += len(followers)

	pending := make([]pendingNotice, 0, len(followers))
	for _, f := range followers {
		var notice *pendingNotice
		err := runItem(func() error {
			var err error
			notice, err = j.prepare(ctx, f)
			return err
		})
		if err != nil {
			stats.Errors++
			j.logger.WithError(err).WithFields(logrus.Fields{"request_id": req.ID, "user_id": f.UserID}).
				Error("Failed to resolve notification baseline")
			continue
		}
		if notice == nil {
			stats.Skipped++
			continue
		}
		pending = append(pending, *notice)
	}
	if len(pending) == 0 {
		return nil
	}

	// One forecast per flight, shared by every follower.
	current, hit, err := j.predictor.CurrentPrediction(ctx, req, now)
	if err != nil {
		stats.Errors += len(pending)
		j.logger.WithError(err).WithFields(requestFields(req)).WithField("followers", len(pending)).
			Error("Failed to resolve current prediction")
		return nil
	}
	if hit {
		stats.CacheHits++
	} else {
		stats.Refreshed++
	}

	for _, p := range pending {
		if err := runItem(func() error { return j.deliver(ctx, req, p, current, now, stats) }); err != nil {
			stats.Errors++
			j.logger.WithError(err).WithFields(logrus.Fields{"request_id": req.ID, "user_id": p.follow.UserID}).
				Error("Failed to deliver status change notification")
		}
	}
	return nil
}

// prepare returns nil without error when the follower has nothing to compare or was
// already notified.
func (j *NotificationJob) prepare(ctx context.Context, f *follow.Follow) (*pendingNotice, error) {
	logCtx := j.logger.WithFields(logrus.Fields{"request_id": f.RequestID, "user_id": f.UserID})

	_, err := j.repos.Notifications.FindByUserRequestType(ctx, f.UserID, f.RequestID, follow.NotificationT12H)
	if err == nil {
		logCtx.Debug("T12H notification already sent, skipping")
		return nil, nil
	}
	if !errors.Is(err, follow.ErrNotificationLogNotFound) {
		return nil, fmt.Errorf("failed to check notification log: %w", err)
	}

	snap, err := j.baselineSnapshot(ctx, f)
	if err != nil {
		if errors.Is(err, follow.ErrSnapshotNotFound) {
			logCtx.Debug("No baseline snapshot, skipping")
			return nil, nil
		}
		return nil, err
	}

	baseline, err := j.repos.Predictions.GetByID(ctx, snap.PredictionID)
	if err != nil {
		if errors.Is(err, flight.ErrPredictionNotFound) {
			logCtx.WithField("prediction_id", snap.PredictionID).Debug("Baseline prediction missing, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get baseline prediction %d: %w", snap.PredictionID, err)
	}
	return &pendingNotice{follow: f, baseline: baseline}, nil
}

// baselineSnapshot prefers the pinned snapshot and falls back to the user's earliest one.
func (j *NotificationJob) baselineSnapshot(ctx context.Context, f *follow.Follow) (*follow.UserPrediction, error) {
	if f.BaselineSnapshotID.Valid {
		snap, err := j.repos.Snapshots.GetByID(ctx, f.BaselineSnapshotID.Int64)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, follow.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("failed to get pinned baseline snapshot %d: %w", f.BaselineSnapshotID.Int64, err)
		}
	}
	snap, err := j.repos.Snapshots.FindEarliestByUserAndRequest(ctx, f.UserID, f.RequestID)
	if err != nil && !errors.Is(err, follow.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to get earliest snapshot: %w", err)
	}
	return snap, err
}

func (j *NotificationJob) deliver(ctx context.Context, req *flight.Request, p pendingNotice, current *flight.Prediction, now time.Time, stats *JobStats) error {
	stats.Processed++
	logCtx := j.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"user_id":    p.follow.UserID,
		"baseline":   p.baseline.Status,
		"current":    current.Status,
	})

	if !IsRelevantChange(p.baseline.Status, current.Status) {
		stats.Skipped++
		logCtx.Debug("Status change is not relevant, no notification")
		return nil
	}

	sendCtx := ctx
	if j.callTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, j.callTimeout)
		defer cancel()
	}
	if err := j.sink.SendT12hStatusChange(sendCtx, p.follow.UserID, req, p.baseline, current); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	inserted, err := j.repos.Notifications.CreateIfAbsent(ctx, &follow.NotificationLog{
		UserID:    p.follow.UserID,
		RequestID: req.ID,
		Type:      follow.NotificationT12H,
		Channel:   j.sink.Channel(),
		Status:    current.Status,
		Message:   StatusChangeMessage(p.baseline.Status, current.Status),
		SentAt:    now,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to write notification log: %w", err)
	}
	if !inserted {
		logCtx.Warn("Notification log already written by a concurrent run")
	}
	stats.Notified++
	logCtx.Info("Sent T12H status change notification")
	return nil
}

// IsRelevantChange reports whether a baseline→current transition is notified. Only
// changes between ON_TIME and DELAYED qualify; cancellations are not notified.
func IsRelevantChange(baseline, current flight.Status) bool {
	return isOnTimeOrDelayed(baseline) && isOnTimeOrDelayed(current) && baseline != current
}

func isOnTimeOrDelayed(s flight.Status) bool {
	return s == flight.StatusOnTime || s == flight.StatusDelayed
}

func StatusChangeMessage(from, to flight.Status) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
