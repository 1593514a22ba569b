// Package memstore keeps every repository in process memory. It backs the
// "memory" storage driver and the service tests. Unique keys match the Postgres
// schema so both drivers dedup the same way.
package memstore

import (
	"sync"
	"time"

	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/follow"
)

type predictionKey struct {
	requestID int64
	bucket    int64 // unix seconds
}

type userRequestKey struct {
	userID    int64
	requestID int64
}

type notificationKey struct {
	userID    int64
	requestID int64
	kind      follow.NotificationType
}

// Store is the shared state behind the repository views.
type Store struct {
	mu     sync.Mutex
	nextID int64

	requests      map[int64]*flight.Request
	requestKeys   map[flight.NaturalKey]int64
	predictions   map[int64]*flight.Prediction
	predictionIdx map[predictionKey]int64
	actuals       map[int64]*flight.Actual // by request id
	snapshots     []*follow.UserPrediction // insertion order
	follows       map[userRequestKey]*follow.Follow
	notifications map[notificationKey]*follow.NotificationLog
}

func New() *Store {
	return &Store{
		requests:      make(map[int64]*flight.Request),
		requestKeys:   make(map[flight.NaturalKey]int64),
		predictions:   make(map[int64]*flight.Prediction),
		predictionIdx: make(map[predictionKey]int64),
		actuals:       make(map[int64]*flight.Actual),
		follows:       make(map[userRequestKey]*follow.Follow),
		notifications: make(map[notificationKey]*follow.NotificationLog),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Requests() *RequestRepository           { return &RequestRepository{s: s} }
func (s *Store) Predictions() *PredictionRepository     { return &PredictionRepository{s: s} }
func (s *Store) Actuals() *ActualRepository             { return &ActualRepository{s: s} }
func (s *Store) Snapshots() *SnapshotRepository         { return &SnapshotRepository{s: s} }
func (s *Store) Follows() *FollowRepository             { return &FollowRepository{s: s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

func normalizeKey(k flight.NaturalKey) flight.NaturalKey {
	k.FlightDate = k.FlightDate.UTC().Truncate(time.Second)
	return k
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
