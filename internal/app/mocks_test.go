package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"flight_delay_tracker/internal/domain/actuals"
	"flight_delay_tracker/internal/domain/clock"
	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/forecast"
	"flight_delay_tracker/internal/domain/route"
	"flight_delay_tracker/internal/infra/memstore"

	"github.com/sirupsen/logrus"
)

// Common test errors
var (
	ErrMockForecast = errors.New("mock forecast error")
	ErrMockActuals  = errors.New("mock actuals error")
	ErrMockSink     = errors.New("mock sink error")
)

// testNow is 10:30 UTC, inside the 09:00 bucket.
var testNow = time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestRepos() (Repositories, *memstore.Store) {
	store := memstore.New()
	return Repositories{
		Requests:      store.Requests(),
		Predictions:   store.Predictions(),
		Actuals:       store.Actuals(),
		Snapshots:     store.Snapshots(),
		Follows:       store.Follows(),
		Notifications: store.Notifications(),
	}, store
}

// testEnv wires a PredictionService over memstore with mock ports.
type testEnv struct {
	repos      Repositories
	store      *memstore.Store
	clock      *clock.Fixed
	forecaster *MockForecaster
	metrics    *MockMetrics
	svc        *PredictionService
}

func newTestEnv() *testEnv {
	repos, store := newTestRepos()
	env := &testEnv{
		repos:      repos,
		store:      store,
		clock:      clock.NewFixed(testNow),
		forecaster: &MockForecaster{Status: flight.StatusOnTime},
		metrics:    &MockMetrics{},
	}
	env.svc = NewPredictionService(repos, env.forecaster, MockRoutes{}, env.clock, time.Second, env.metrics, testLogger())
	return env
}

// seedRequest stores an active request directly, bypassing the service.
func (e *testEnv) seedRequest(flightDate time.Time, flightNumber string) *flight.Request {
	req, _, err := e.repos.Requests.FindOrCreate(context.Background(), &flight.Request{
		FlightDate:   flightDate,
		Carrier:      "AA",
		Origin:       "JFK",
		Dest:         "LAX",
		FlightNumber: flightNumber,
		DistanceKm:   3983,
		CreatedAt:    testNow,
		Active:       true,
	})
	if err != nil {
		panic(err)
	}
	return req
}

// MockForecaster implements forecast.Client for testing
type MockForecaster struct {
	mu       sync.Mutex
	Status   flight.Status
	Err      error
	CallFunc func(cmd forecast.Command) (*forecast.Result, error)
	Calls    []forecast.Command
}

func (m *MockForecaster) RequestPrediction(ctx context.Context, cmd forecast.Command) (*forecast.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, cmd)
	if m.CallFunc != nil {
		return m.CallFunc(cmd)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &forecast.Result{
		Status:        m.Status,
		Probability:   0.42,
		Confidence:    "MEDIUM",
		ThresholdUsed: 0.5,
		ModelVersion:  "test-1",
	}, nil
}

func (m *MockForecaster) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockForecaster) SetStatus(s flight.Status) {
	m.mu.Lock()
	m.Status = s
	m.mu.Unlock()
}

// MockRoutes knows every airport except codes starting with "Z".
type MockRoutes struct{}

func (MockRoutes) DistanceKm(origin, dest string) (float64, error) {
	for _, code := range []string{origin, dest} {
		if strings.HasPrefix(code, "Z") {
			return 0, route.ErrUnknownAirport
		}
	}
	return 1000, nil
}

type window struct {
	start, end time.Time
}

// MockActuals implements actuals.Client for testing. A nil func means not found.
type MockActuals struct {
	mu              sync.Mutex
	ByNumberFunc    func(flightNumber string, flightDate time.Time) (*actuals.Outcome, error)
	ByRouteFunc     func(origin, dest string, start, end time.Time) (*actuals.Outcome, error)
	NumberCalls     int
	RouteCalls      int
	LastRouteWindow window
}

func (m *MockActuals) FetchByFlightNumber(ctx context.Context, flightNumber string, flightDate time.Time) (*actuals.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.NumberCalls++
	if m.ByNumberFunc == nil {
		return nil, actuals.ErrOutcomeNotFound
	}
	return m.ByNumberFunc(flightNumber, flightDate)
}

func (m *MockActuals) FetchByRouteAndWindow(ctx context.Context, origin, dest string, start, end time.Time) (*actuals.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RouteCalls++
	m.LastRouteWindow = window{start: start, end: end}
	if m.ByRouteFunc == nil {
		return nil, actuals.ErrOutcomeNotFound
	}
	return m.ByRouteFunc(origin, dest, start, end)
}

type sentNotice struct {
	userID    int64
	requestID int64
	baseline  flight.Status
	current   flight.Status
}

// MockSink implements StatusChangeSink for testing
type MockSink struct {
	mu   sync.Mutex
	Err  error
	Sent []sentNotice
}

func (m *MockSink) SendT12hStatusChange(ctx context.Context, userID int64, req *flight.Request, baseline, current *flight.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, sentNotice{userID: userID, requestID: req.ID, baseline: baseline.Status, current: current.Status})
	return nil
}

func (m *MockSink) Channel() string { return "TEST" }

// MockMetrics implements Metrics for testing
type MockMetrics struct {
	mu       sync.Mutex
	Hits     int
	Misses   int
	Finished []string
}

func (m *MockMetrics) CacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.Hits++
	} else {
		m.Misses++
	}
}

func (m *MockMetrics) JobFinished(job string, stats JobStats, elapsed time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finished = append(m.Finished, job)
}
