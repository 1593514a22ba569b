package memstore

import (
	"context"
	"sort"
	"time"

	"flight_delay_tracker/internal/domain/flight"
)

type RequestRepository struct{ s *Store }

func (r *RequestRepository) FindOrCreate(_ context.Context, req *flight.Request) (*flight.Request, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := normalizeKey(req.Key())
	if id, ok := r.s.requestKeys[key]; ok {
		existing := *r.s.requests[id]
		return &existing, false, nil
	}

	stored := *req
	stored.ID = r.s.id()
	stored.FlightDate = key.FlightDate
	r.s.requests[stored.ID] = &stored
	r.s.requestKeys[key] = stored.ID

	out := stored
	return &out, true, nil
}

func (r *RequestRepository) Update(_ context.Context, req *flight.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.requests[req.ID]
	if !ok {
		return flight.ErrRequestNotFound
	}
	// The natural key is immutable; only lifecycle fields and distance change.
	existing.DistanceKm = req.DistanceKm
	existing.Active = req.Active
	existing.ClosedAt = req.ClosedAt
	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, id int64) (*flight.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, flight.ErrRequestNotFound
	}
	out := *req
	return &out, nil
}

func (r *RequestRepository) FindByNaturalKey(_ context.Context, key flight.NaturalKey) (*flight.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.requestKeys[normalizeKey(key)]
	if !ok {
		return nil, flight.ErrRequestNotFound
	}
	out := *r.s.requests[id]
	return &out, nil
}

func (r *RequestRepository) ListActiveBefore(_ context.Context, cutoff time.Time) ([]*flight.Request, error) {
	return r.list(func(req *flight.Request) bool {
		return req.Active && !req.FlightDate.After(cutoff)
	}), nil
}

func (r *RequestRepository) ListInDateRange(_ context.Context, from, to time.Time) ([]*flight.Request, error) {
	return r.list(func(req *flight.Request) bool {
		return inRange(req.FlightDate, from, to)
	}), nil
}

func (r *RequestRepository) list(match func(*flight.Request) bool) []*flight.Request {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*flight.Request, 0)
	for _, req := range r.s.requests {
		if match(req) {
			c := *req
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FlightDate.Equal(out[j].FlightDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].FlightDate.Before(out[j].FlightDate)
	})
	return out
}

type PredictionRepository struct{ s *Store }

func (r *PredictionRepository) CreateIfAbsent(_ context.Context, p *flight.Prediction) (*flight.Prediction, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := predictionKey{requestID: p.RequestID, bucket: p.Bucket.Unix()}
	if id, ok := r.s.predictionIdx[key]; ok {
		winner := *r.s.predictions[id]
		return &winner, false, nil
	}

	stored := *p
	stored.ID = r.s.id()
	stored.Bucket = p.Bucket.UTC()
	r.s.predictions[stored.ID] = &stored
	r.s.predictionIdx[key] = stored.ID

	out := stored
	return &out, true, nil
}

func (r *PredictionRepository) GetByID(_ context.Context, id int64) (*flight.Prediction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.predictions[id]
	if !ok {
		return nil, flight.ErrPredictionNotFound
	}
	out := *p
	return &out, nil
}

func (r *PredictionRepository) FindByRequestAndBucket(_ context.Context, requestID int64, bucket time.Time) (*flight.Prediction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.predictionIdx[predictionKey{requestID: requestID, bucket: bucket.Unix()}]
	if !ok {
		return nil, flight.ErrPredictionNotFound
	}
	out := *r.s.predictions[id]
	return &out, nil
}

// Count returns the number of stored predictions.
func (r *PredictionRepository) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.predictions)
}

type ActualRepository struct{ s *Store }

func (r *ActualRepository) Upsert(_ context.Context, a *flight.Actual) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.actuals[a.RequestID]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else {
		a.ID = r.s.id()
	}
	stored := *a
	r.s.actuals[a.RequestID] = &stored
	return nil
}

func (r *ActualRepository) GetByRequestID(_ context.Context, requestID int64) (*flight.Actual, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.actuals[requestID]
	if !ok {
		return nil, flight.ErrActualNotFound
	}
	out := *a
	return &out, nil
}
