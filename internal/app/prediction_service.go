// internal/app/prediction_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flight_delay_tracker/internal/domain/clock"
	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/follow"
	"flight_delay_tracker/internal/domain/forecast"
	"flight_delay_tracker/internal/domain/route"

	"github.com/sirupsen/logrus"
)

// PredictInput describes one prediction request. A zero UserID means anonymous.
type PredictInput struct {
	FlightDate     time.Time
	Carrier        string
	Origin         string
	Dest           string
	FlightNumber   string
	UserID         int64
	Persist        bool // store the request and prediction even without a user
	CreateSnapshot bool // record what the user was shown
	Source         follow.SnapshotSource
}

type PredictResult struct {
	Request    *flight.Request // nil for ephemeral results
	Prediction *flight.Prediction
	Snapshot   *follow.UserPrediction
	CacheHit   bool
	Ephemeral  bool
}

// FollowedFlight pairs a follow with the request it points at.
type FollowedFlight struct {
	Follow  *follow.Follow
	Request *flight.Request
}

// PredictionService resolves flight requests and their bucketed predictions. It is
// shared by interactive callers and by the refresh and notification jobs.
type PredictionService struct {
	repos       Repositories
	forecaster  forecast.Client
	routes      route.Resolver
	clock       clock.Clock
	callTimeout time.Duration
	metrics     Metrics
	logger      *logrus.Entry
}

func NewPredictionService(
	repos Repositories,
	forecaster forecast.Client,
	routes route.Resolver,
	clk clock.Clock,
	callTimeout time.Duration,
	metrics Metrics,
	logger *logrus.Entry,
) *PredictionService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &PredictionService{
		repos:       repos,
		forecaster:  forecaster,
		routes:      routes,
		clock:       clk,
		callTimeout: callTimeout,
		metrics:     metrics,
		logger:      logger,
	}
}

// Predict returns a prediction for the flight in in, storing it unless the caller is
// anonymous and did not ask for persistence. Forecast failures are returned as-is.
func (s *PredictionService) Predict(ctx context.Context, in PredictInput) (*PredictResult, error) {
	in, err := normalizePredictInput(in)
	if err != nil {
		return nil, err
	}

	distance, err := s.routes.DistanceKm(in.Origin, in.Dest)
	if err != nil {
		if errors.Is(err, route.ErrUnknownAirport) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to resolve route distance: %w", err)
	}

	now := s.clock.Now()
	logCtx := s.logger.WithFields(logrus.Fields{
		"user_id": in.UserID,
		"route":   in.Origin + "-" + in.Dest,
		"carrier": in.Carrier,
	})

	if in.UserID == 0 && !in.Persist {
		cmd := forecast.Command{
			FlightDate:   in.FlightDate,
			Carrier:      in.Carrier,
			Origin:       in.Origin,
			Dest:         in.Dest,
			FlightNumber: in.FlightNumber,
			DistanceKm:   distance,
		}
		res, err := s.callForecast(ctx, cmd)
		if err != nil {
			return nil, err
		}
		logCtx.Debug("Served ephemeral prediction")
		return &PredictResult{
			Prediction: predictionFromResult(0, flight.BucketOf(now), res, now),
			Ephemeral:  true,
		}, nil
	}

	req, created, err := s.repos.Requests.FindOrCreate(ctx, &flight.Request{
		FlightDate:   in.FlightDate,
		Carrier:      in.Carrier,
		Origin:       in.Origin,
		Dest:         in.Dest,
		FlightNumber: in.FlightNumber,
		DistanceKm:   distance,
		CreatedAt:    now,
		Active:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve flight request: %w", err)
	}
	if created {
		logCtx.WithField("request_id", req.ID).Info("Created flight request")
	}

	pred, hit, err := s.CurrentPrediction(ctx, req, now)
	if err != nil {
		return nil, err
	}

	result := &PredictResult{Request: req, Prediction: pred, CacheHit: hit}
	if in.CreateSnapshot && in.UserID != 0 {
		snap, err := s.recordSnapshot(ctx, in.UserID, req.ID, pred.ID, in.Source, now)
		if err != nil {
			return nil, err
		}
		result.Snapshot = snap
	}
	return result, nil
}

// CurrentPrediction returns the prediction for req in now's bucket, calling the
// forecasting model at most once per bucket when no stored row exists. Concurrent
// callers may both call the model; the store keeps the first row and the loser reads it.
func (s *PredictionService) CurrentPrediction(ctx context.Context, req *flight.Request, now time.Time) (*flight.Prediction, bool, error) {
	bucket := flight.BucketOf(now)
	existing, err := s.repos.Predictions.FindByRequestAndBucket(ctx, req.ID, bucket)
	if err == nil {
		s.metrics.CacheLookup(true)
		return existing, true, nil
	}
	if !errors.Is(err, flight.ErrPredictionNotFound) {
		return nil, false, fmt.Errorf("failed to look up prediction for request %d: %w", req.ID, err)
	}
	s.metrics.CacheLookup(false)

	res, err := s.callForecast(ctx, forecast.Command{
		FlightDate:   req.FlightDate,
		Carrier:      req.Carrier,
		Origin:       req.Origin,
		Dest:         req.Dest,
		FlightNumber: req.FlightNumber,
		DistanceKm:   req.DistanceKm,
	})
	if err != nil {
		return nil, false, err
	}

	stored, inserted, err := s.repos.Predictions.CreateIfAbsent(ctx, predictionFromResult(req.ID, bucket, res, now))
	if err != nil {
		return nil, false, fmt.Errorf("failed to store prediction for request %d: %w", req.ID, err)
	}
	if !inserted {
		s.logger.WithFields(requestFields(req)).WithField("bucket", bucket.Format(time.RFC3339)).
			Debug("Prediction for bucket already stored by a concurrent caller, using it")
	}
	return stored, false, nil
}

// Follow subscribes userID to requestID. The user's latest snapshot becomes the
// baseline unless a baseline is already pinned.
func (s *PredictionService) Follow(ctx context.Context, userID, requestID int64, mode follow.RefreshMode) (*follow.Follow, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown refresh mode %q", ErrInvalidInput, mode)
	}

	req, err := s.repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get flight request %d: %w", requestID, err)
	}
	if !req.Active {
		return nil, fmt.Errorf("%w: flight request %d is closed", ErrInvalidInput, requestID)
	}

	now := s.clock.Now()
	f, err := s.repos.Follows.FindByUserAndRequest(ctx, userID, requestID)
	switch {
	case errors.Is(err, follow.ErrFollowNotFound):
		f = &follow.Follow{UserID: userID, RequestID: requestID, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("failed to get follow for user %d, request %d: %w", userID, requestID, err)
	}
	f.Mode = mode
	f.UpdatedAt = now

	if !f.BaselineSnapshotID.Valid {
		snap, err := s.repos.Snapshots.FindLatestByUserAndRequest(ctx, userID, requestID)
		switch {
		case err == nil:
			f.PinBaseline(snap.ID)
		case !errors.Is(err, follow.ErrSnapshotNotFound):
			return nil, fmt.Errorf("failed to get latest snapshot for user %d, request %d: %w", userID, requestID, err)
		}
	}

	if err := s.repos.Follows.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save follow: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "request_id": requestID, "mode": mode}).Info("Flight followed")
	return f, nil
}

func (s *PredictionService) Unfollow(ctx context.Context, userID, requestID int64) error {
	if err := s.repos.Follows.Delete(ctx, userID, requestID); err != nil {
		return fmt.Errorf("failed to unfollow request %d: %w", requestID, err)
	}
	return nil
}

func (s *PredictionService) ListFollows(ctx context.Context, userID int64) ([]FollowedFlight, error) {
	follows, err := s.repos.Follows.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows for user %d: %w", userID, err)
	}
	out := make([]FollowedFlight, 0, len(follows))
	for _, f := range follows {
		req, err := s.repos.Requests.GetByID(ctx, f.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to get flight request %d: %w", f.RequestID, err)
		}
		out = append(out, FollowedFlight{Follow: f, Request: req})
	}
	return out, nil
}

// recordSnapshot is a no-op when the user's latest snapshot already points at predictionID.
func (s *PredictionService) recordSnapshot(ctx context.Context, userID, requestID, predictionID int64, source follow.SnapshotSource, now time.Time) (*follow.UserPrediction, error) {
	latest, err := s.repos.Snapshots.FindLatestByUserAndRequest(ctx, userID, requestID)
	if err == nil && latest.PredictionID == predictionID {
		return latest, nil
	}
	if err != nil && !errors.Is(err, follow.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if source == "" {
		source = follow.SourceUserQuery
	}
	snap := &follow.UserPrediction{
		UserID:       userID,
		RequestID:    requestID,
		PredictionID: predictionID,
		Source:       source,
		CreatedAt:    now,
	}
	if err := s.repos.Snapshots.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	return snap, nil
}

func (s *PredictionService) callForecast(ctx context.Context, cmd forecast.Command) (*forecast.Result, error) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	res, err := s.forecaster.RequestPrediction(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	return res, nil
}

func predictionFromResult(requestID int64, bucket time.Time, res *forecast.Result, now time.Time) *flight.Prediction {
	return &flight.Prediction{
		RequestID:     requestID,
		Bucket:        bucket,
		Status:        res.Status,
		Probability:   res.Probability,
		Confidence:    res.Confidence,
		ThresholdUsed: res.ThresholdUsed,
		ModelVersion:  res.ModelVersion,
		PredictedAt:   now,
	}
}

func normalizePredictInput(in PredictInput) (PredictInput, error) {
	in.Carrier = strings.ToUpper(strings.TrimSpace(in.Carrier))
	in.Origin = strings.ToUpper(strings.TrimSpace(in.Origin))
	in.Dest = strings.ToUpper(strings.TrimSpace(in.Dest))
	in.FlightNumber = strings.ToUpper(strings.TrimSpace(in.FlightNumber))
	in.FlightDate = in.FlightDate.UTC()

	switch {
	case in.Carrier == "":
		return in, fmt.Errorf("%w: carrier is required", ErrInvalidInput)
	case !isIATACode(in.Origin):
		return in, fmt.Errorf("%w: malformed origin %q", ErrInvalidInput, in.Origin)
	case !isIATACode(in.Dest):
		return in, fmt.Errorf("%w: malformed destination %q", ErrInvalidInput, in.Dest)
	case in.Origin == in.Dest:
		return in, fmt.Errorf("%w: origin and destination are the same", ErrInvalidInput)
	case in.FlightDate.IsZero():
		return in, fmt.Errorf("%w: flight date is required", ErrInvalidInput)
	}
	return in, nil
}

func isIATACode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
