// internal/app/app.go
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

// Application-level errors.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")
	ErrUnknownJob         = errors.New("unknown job")
)

// Repositories groups the persistence collaborators shared by the service and the jobs.
type Repositories struct {
	Requests      flight.RequestRepository
	Predictions   flight.PredictionRepository
	Actuals       flight.ActualRepository
	Snapshots     follow.SnapshotRepository
	Follows       follow.FollowRepository
	Notifications follow.NotificationLogRepository
}

// Metrics receives observability side effects. None of them affect control flow.
type Metrics interface {
	CacheLookup(hit bool)
	JobFinished(job string, stats JobStats, elapsed time.Duration, err error)
}

type NopMetrics struct{}

func (NopMetrics) CacheLookup(bool) {}
func (NopMetrics) JobFinished(string, JobStats, time.Duration, error) {}

// BucketPredictor resolves the current-bucket prediction for a request, calling the
// forecasting model only on a cache miss. The bool is true on a cache hit.
type BucketPredictor interface {
	CurrentPrediction(ctx context.Context, req *flight.Request, now time.Time) (*flight.Prediction, bool, error)
}

// CloseRequest marks req closed at now and persists it. Already-closed requests are
// left untouched and false is returned.
func CloseRequest(ctx context.Context, repo flight.RequestRepository, req *flight.Request, now time.Time) (bool, error) {
	if !req.Close(now) {
		return false, nil
	}
	if err := repo.Update(ctx, req); err != nil {
		return false, fmt.Errorf("failed to close flight request %d: %w", req.ID, err)
	}
	return true, nil
}

func requestFields(req *flight.Request) logrus.Fields {
	return logrus.Fields{
		"request_id":  req.ID,
		"carrier":     req.Carrier,
		"route":       req.Origin + "-" + req.Dest,
		"flight_date": req.FlightDate.Format(time.RFC3339),
	}
}
