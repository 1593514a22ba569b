package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/follow"
)

func userInput(userID int64) PredictInput {
	return PredictInput{
		FlightDate:     testNow.Add(36 * time.Hour),
		Carrier:        "aa",
		Origin:         " jfk",
		Dest:           "LAX",
		FlightNumber:   "aa100",
		UserID:         userID,
		Persist:        true,
		CreateSnapshot: true,
		Source:         follow.SourceUserQuery,
	}
}

func TestPredict_CallsForecastAtMostOncePerBucket(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first call reported a cache hit")
	}

	for i := 0; i < 3; i++ {
		env.clock.Advance(20 * time.Minute) // 10:50, 11:10, 11:30; still the 09:00 bucket
		res, err := env.svc.Predict(ctx, userInput(42))
		if err != nil {
			t.Fatalf("Predict() #%d error = %v", i+2, err)
		}
		if !res.CacheHit {
			t.Errorf("Predict() #%d CacheHit = false, want true", i+2)
		}
		if res.Prediction.ID != first.Prediction.ID {
			t.Errorf("Predict() #%d prediction id = %d, want %d", i+2, res.Prediction.ID, first.Prediction.ID)
		}
	}

	if got := env.forecaster.CallCount(); got != 1 {
		t.Errorf("forecast calls = %d, want 1", got)
	}
	if got := env.store.Predictions().Count(); got != 1 {
		t.Errorf("stored predictions = %d, want 1", got)
	}
	if env.metrics.Hits != 3 || env.metrics.Misses != 1 {
		t.Errorf("cache metrics hits=%d misses=%d, want 3/1", env.metrics.Hits, env.metrics.Misses)
	}
}

func TestPredict_NewBucketCallsForecastAgain(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	env.clock.Set(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))
	second, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if second.CacheHit {
		t.Error("new bucket reported a cache hit")
	}
	if second.Prediction.ID == first.Prediction.ID {
		t.Error("new bucket reused the previous bucket's prediction")
	}
	if want := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC); !second.Prediction.Bucket.Equal(want) {
		t.Errorf("bucket = %v, want %v", second.Prediction.Bucket, want)
	}
	if got := env.forecaster.CallCount(); got != 2 {
		t.Errorf("forecast calls = %d, want 2", got)
	}
	if second.Request.ID != first.Request.ID {
		t.Errorf("request id = %d, want %d (same natural key)", second.Request.ID, first.Request.ID)
	}
}

func TestPredict_NormalizesInputIntoOneRequest(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	res, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	req := res.Request
	if req.Carrier != "AA" || req.Origin != "JFK" || req.Dest != "LAX" || req.FlightNumber != "AA100" {
		t.Errorf("request not normalized: %+v", req)
	}
	if !req.Active || req.ClosedAt.Valid {
		t.Errorf("new request should be active and open: %+v", req)
	}
	if req.DistanceKm != 1000 {
		t.Errorf("DistanceKm = %v, want 1000", req.DistanceKm)
	}

	other := userInput(7)
	other.Carrier = "AA"
	other.Origin = "JFK"
	res2, err := env.svc.Predict(ctx, other)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if res2.Request.ID != req.ID {
		t.Errorf("second user got request %d, want shared request %d", res2.Request.ID, req.ID)
	}
}

func TestPredict_EphemeralForAnonymousCaller(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	in := userInput(0)
	in.Persist = false
	res, err := env.svc.Predict(ctx, in)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if !res.Ephemeral {
		t.Error("Ephemeral = false, want true")
	}
	if res.Request != nil || res.Snapshot != nil {
		t.Error("ephemeral result should carry no request or snapshot")
	}
	if res.Prediction.Status != flight.StatusOnTime {
		t.Errorf("status = %s, want ON_TIME", res.Prediction.Status)
	}
	if got := env.store.Predictions().Count(); got != 0 {
		t.Errorf("stored predictions = %d, want 0", got)
	}
	if _, err := env.repos.Requests.FindByNaturalKey(ctx, flight.NaturalKey{
		FlightDate: in.FlightDate, Carrier: "AA", Origin: "JFK", Dest: "LAX", FlightNumber: "AA100",
	}); !errors.Is(err, flight.ErrRequestNotFound) {
		t.Errorf("FindByNaturalKey() error = %v, want ErrRequestNotFound", err)
	}
}

func TestPredict_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PredictInput)
	}{
		{"empty carrier", func(in *PredictInput) { in.Carrier = " " }},
		{"short origin", func(in *PredictInput) { in.Origin = "JF" }},
		{"non-letter destination", func(in *PredictInput) { in.Dest = "L4X" }},
		{"same origin and destination", func(in *PredictInput) { in.Dest = "JFK" }},
		{"zero flight date", func(in *PredictInput) { in.FlightDate = time.Time{} }},
		{"unknown airport", func(in *PredictInput) { in.Dest = "ZZZ" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			in := userInput(42)
			tt.mutate(&in)

			_, err := env.svc.Predict(context.Background(), in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Predict() error = %v, want ErrInvalidInput", err)
			}
			if got := env.forecaster.CallCount(); got != 0 {
				t.Errorf("forecast calls = %d, want 0", got)
			}
		})
	}
}

func TestPredict_ForecastFailurePropagates(t *testing.T) {
	env := newTestEnv()
	env.forecaster.Err = ErrMockForecast

	_, err := env.svc.Predict(context.Background(), userInput(42))
	if !errors.Is(err, ErrMockForecast) {
		t.Fatalf("Predict() error = %v, want ErrMockForecast", err)
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("forecast failure must not be reported as invalid input")
	}
	if got := env.store.Predictions().Count(); got != 0 {
		t.Errorf("stored predictions = %d, want 0", got)
	}

	// Nothing terminal was written, so the next call retries.
	env.forecaster.Err = nil
	res, err := env.svc.Predict(context.Background(), userInput(42))
	if err != nil {
		t.Fatalf("retry Predict() error = %v", err)
	}
	if res.CacheHit {
		t.Error("retry reported a cache hit")
	}
}

func TestPredict_SnapshotIsIdempotentWithinBucket(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if first.Snapshot == nil {
		t.Fatal("Snapshot = nil, want a USER_QUERY snapshot")
	}
	if first.Snapshot.Source != follow.SourceUserQuery || first.Snapshot.PredictionID != first.Prediction.ID {
		t.Errorf("unexpected snapshot %+v", first.Snapshot)
	}

	again, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if again.Snapshot.ID != first.Snapshot.ID {
		t.Errorf("snapshot id = %d, want %d", again.Snapshot.ID, first.Snapshot.ID)
	}

	env.clock.Advance(3 * time.Hour)
	later, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if later.Snapshot.ID == first.Snapshot.ID {
		t.Error("new bucket should record a new snapshot")
	}

	earliest, err := env.repos.Snapshots.FindEarliestByUserAndRequest(ctx, 42, first.Request.ID)
	if err != nil {
		t.Fatalf("FindEarliestByUserAndRequest() error = %v", err)
	}
	if earliest.ID != first.Snapshot.ID {
		t.Errorf("earliest snapshot = %d, want %d", earliest.ID, first.Snapshot.ID)
	}
}

func TestFollow_PinsLatestSnapshotOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	res, err := env.svc.Predict(ctx, userInput(42))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	f, err := env.svc.Follow(ctx, 42, res.Request.ID, follow.ModeT12Only)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if !f.BaselineSnapshotID.Valid || f.BaselineSnapshotID.Int64 != res.Snapshot.ID {
		t.Fatalf("baseline = %+v, want snapshot %d", f.BaselineSnapshotID, res.Snapshot.ID)
	}

	// A newer snapshot must not move the pinned baseline.
	env.clock.Advance(3 * time.Hour)
	env.forecaster.SetStatus(flight.StatusDelayed)
	if _, err := env.svc.Predict(ctx, userInput(42)); err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	again, err := env.svc.Follow(ctx, 42, res.Request.ID, follow.ModeT72Refresh)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if again.ID != f.ID {
		t.Errorf("follow id = %d, want %d (upsert)", again.ID, f.ID)
	}
	if again.Mode != follow.ModeT72Refresh {
		t.Errorf("mode = %s, want T72_REFRESH", again.Mode)
	}
	if again.BaselineSnapshotID.Int64 != res.Snapshot.ID {
		t.Errorf("baseline moved to %d, want %d", again.BaselineSnapshotID.Int64, res.Snapshot.ID)
	}

	stored, err := env.repos.Follows.FindByUserAndRequest(ctx, 42, res.Request.ID)
	if err != nil {
		t.Fatalf("FindByUserAndRequest() error = %v", err)
	}
	if stored.BaselineSnapshotID.Int64 != res.Snapshot.ID || stored.Mode != follow.ModeT72Refresh {
		t.Errorf("stored follow = %+v", stored)
	}
}

func TestFollow_WithoutSnapshotPinsLater(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	req := env.seedRequest(testNow.Add(30*time.Hour), "")

	f, err := env.svc.Follow(ctx, 42, req.ID, follow.ModeT12Only)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if f.BaselineSnapshotID.Valid {
		t.Fatalf("baseline = %+v, want null", f.BaselineSnapshotID)
	}

	in := userInput(42)
	in.FlightDate = req.FlightDate
	in.FlightNumber = ""
	res, err := env.svc.Predict(ctx, in)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	f, err = env.svc.Follow(ctx, 42, req.ID, follow.ModeT12Only)
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if f.BaselineSnapshotID.Int64 != res.Snapshot.ID {
		t.Errorf("baseline = %d, want %d", f.BaselineSnapshotID.Int64, res.Snapshot.ID)
	}
}

func TestFollow_Errors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	req := env.seedRequest(testNow.Add(30*time.Hour), "")

	if _, err := env.svc.Follow(ctx, 42, 9999, follow.ModeT12Only); !errors.Is(err, flight.ErrRequestNotFound) {
		t.Errorf("Follow(unknown) error = %v, want ErrRequestNotFound", err)
	}
	if _, err := env.svc.Follow(ctx, 42, req.ID, follow.RefreshMode("HOURLY")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Follow(bad mode) error = %v, want ErrInvalidInput", err)
	}
	if _, err := env.svc.Follow(ctx, 0, req.ID, follow.ModeT12Only); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Follow(no user) error = %v, want ErrInvalidInput", err)
	}

	if _, err := CloseRequest(ctx, env.repos.Requests, req, testNow); err != nil {
		t.Fatalf("CloseRequest() error = %v", err)
	}
	if _, err := env.svc.Follow(ctx, 42, req.ID, follow.ModeT12Only); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Follow(closed) error = %v, want ErrInvalidInput", err)
	}
}

func TestUnfollowAndListFollows(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.seedRequest(testNow.Add(30*time.Hour), "AA1")
	b := env.seedRequest(testNow.Add(40*time.Hour), "AA2")

	for _, req := range []*flight.Request{a, b} {
		if _, err := env.svc.Follow(ctx, 42, req.ID, follow.ModeT12Only); err != nil {
			t.Fatalf("Follow() error = %v", err)
		}
	}

	flights, err := env.svc.ListFollows(ctx, 42)
	if err != nil {
		t.Fatalf("ListFollows() error = %v", err)
	}
	if len(flights) != 2 || flights[0].Request.ID != a.ID || flights[1].Request.ID != b.ID {
		t.Fatalf("ListFollows() = %+v", flights)
	}

	if err := env.svc.Unfollow(ctx, 42, a.ID); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	if err := env.svc.Unfollow(ctx, 42, a.ID); !errors.Is(err, follow.ErrFollowNotFound) {
		t.Errorf("second Unfollow() error = %v, want ErrFollowNotFound", err)
	}

	flights, err = env.svc.ListFollows(ctx, 42)
	if err != nil {
		t.Fatalf("ListFollows() error = %v", err)
	}
	if len(flights) != 1 || flights[0].Request.ID != b.ID {
		t.Errorf("ListFollows() after unfollow = %+v", flights)
	}
}

func TestCurrentPrediction_ConcurrentCallersShareOneRow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	req := env.seedRequest(testNow.Add(30*time.Hour), "")

	const callers = 8
	ids := make(chan int64, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			p, _, err := env.svc.CurrentPrediction(ctx, req, testNow)
			if err != nil {
				errs <- err
				return
			}
			ids <- p.ID
		}()
	}

	var first int64
	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			t.Fatalf("CurrentPrediction() error = %v", err)
		case id := <-ids:
			if first == 0 {
				first = id
			} else if id != first {
				t.Errorf("caller got prediction %d, want %d", id, first)
			}
		}
	}
	if got := env.store.Predictions().Count(); got != 1 {
		t.Errorf("stored predictions = %d, want 1", got)
	}
}
