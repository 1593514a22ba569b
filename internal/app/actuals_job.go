// internal/app/actuals_job.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/actuals"
	"flight_delay_tracker/internal/domain/flight"

	"github.com/sirupsen/logrus"
)

// ActualsJob records observed outcomes for flights at least 12h in the past and
// closes their requests.
type ActualsJob struct {
	repos       Repositories
	provider    actuals.Client
	callTimeout time.Duration
	logger      *logrus.Entry
}

func NewActualsJob(repos Repositories, provider actuals.Client, callTimeout time.Duration, logger *logrus.Entry) *ActualsJob {
	return &ActualsJob{repos: repos, provider: provider, callTimeout: callTimeout, logger: logger}
}

func (j *ActualsJob) Name() string { return "actuals" }

func (j *ActualsJob) Run(ctx context.Context, now time.Time) (JobStats, error) {
	var stats JobStats

	candidates, err := j.repos.Requests.ListActiveBefore(ctx, now.Add(-flight.ExpiryAge))
	if err != nil {
		return stats, fmt.Errorf("failed to list active flight requests: %w", err)
	}
	stats.Considered = len(candidates)

	for _, req := range candidates {
		if err := runItem(func() error { return j.reconcile(ctx, req, now, &stats) }); err != nil {
			stats.Errors++
			logCtx := j.logger.WithError(err)
			if req != nil {
				logCtx = logCtx.WithFields(requestFields(req))
			}
			logCtx.Error("Failed to reconcile flight actuals")
		}
	}
	return stats, nil
}

func (j *ActualsJob) reconcile(ctx context.Context, req *flight.Request, now time.Time, stats *JobStats) error {
	if req == nil || req.FlightDate.IsZero() {
		return errors.New("malformed flight request row")
	}
	logCtx := j.logger.WithFields(requestFields(req))

	if !req.IsExpired(now) {
		stats.Skipped++
		logCtx.Debug("Flight is not yet 12h past departure, skipping")
		return nil
	}
	stats.Processed++

	outcome, err := j.lookup(ctx, req)
	if err != nil && !errors.Is(err, actuals.ErrOutcomeNotFound) {
		return err
	}

	if outcome != nil {
		status, ok := flight.ParseStatus(outcome.Status)
		if ok && status.Persistable() {
			if err := j.repos.Actuals.Upsert(ctx, actualFromOutcome(req.ID, status, outcome, now)); err != nil {
				return fmt.Errorf("failed to save flight actual: %w", err)
			}
			stats.Saved++
			logCtx.WithField("status", status).Info("Saved flight actual")
		} else {
			logCtx.WithField("raw_status", outcome.Status).Debug("Outcome status is not persistable, treating as not found")
		}
	} else {
		logCtx.Debug("No outcome found for flight")
	}

	closed, err := CloseRequest(ctx, j.repos.Requests, req, now)
	if err != nil {
		return err
	}
	if closed {
		stats.Closed++
	}
	return nil
}

// lookup queries by flight number when one is known and falls back to the route and
// a ±3h window around the scheduled departure.
func (j *ActualsJob) lookup(ctx context.Context, req *flight.Request) (*actuals.Outcome, error) {
	if req.HasFlightNumber() {
		outcome, err := j.fetch(ctx, func(ctx context.Context) (*actuals.Outcome, error) {
			return j.provider.FetchByFlightNumber(ctx, req.FlightNumber, req.FlightDate)
		})
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, actuals.ErrOutcomeNotFound) {
			return nil, fmt.Errorf("failed to fetch outcome by flight number %s: %w", req.FlightNumber, err)
		}
	}

	start := req.FlightDate.Add(-flight.ActualsWindow)
	end := req.FlightDate.Add(flight.ActualsWindow)
	outcome, err := j.fetch(ctx, func(ctx context.Context) (*actuals.Outcome, error) {
		return j.provider.FetchByRouteAndWindow(ctx, req.Origin, req.Dest, start, end)
	})
	if err != nil && !errors.Is(err, actuals.ErrOutcomeNotFound) {
		return nil, fmt.Errorf("failed to fetch outcome by route %s-%s: %w", req.Origin, req.Dest, err)
	}
	return outcome, err
}

func (j *ActualsJob) fetch(ctx context.Context, call func(context.Context) (*actuals.Outcome, error)) (*actuals.Outcome, error) {
	if j.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.callTimeout)
		defer cancel()
	}
	outcome, err := call(ctx)
	if err == nil && outcome == nil {
		return nil, actuals.ErrOutcomeNotFound
	}
	return outcome, err
}

func actualFromOutcome(requestID int64, status flight.Status, o *actuals.Outcome, now time.Time) *flight.Actual {
	a := &flight.Actual{
		RequestID:       requestID,
		Status:          status,
		SourceTimestamp: o.SourceTimestamp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if a.SourceTimestamp.IsZero() {
		a.SourceTimestamp = now
	}
	if o.ActualDeparture != nil {
		a.ActualDeparture = sql.NullTime{Time: o.ActualDeparture.UTC(), Valid: true}
	}
	if o.ActualArrival != nil {
		a.ActualArrival = sql.NullTime{Time: o.ActualArrival.UTC(), Valid: true}
	}
	return a
}
