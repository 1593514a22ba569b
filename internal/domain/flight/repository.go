// internal/domain/flight/repository.go
package flight

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRequestNotFound    = errors.New("flight request not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrActualNotFound     = errors.New("flight actual not found")
)

// RequestRepository persists FlightRequests.
type RequestRepository interface {
	// FindOrCreate resolves r by its natural key, inserting it when absent.
	// The returned bool is true when this call created the row.
	FindOrCreate(ctx context.Context, r *Request) (*Request, bool, error)
	Update(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	FindByNaturalKey(ctx context.Context, key NaturalKey) (*Request, error)
	// ListActiveBefore returns active requests with flight_date <= cutoff, oldest first.
	ListActiveBefore(ctx context.Context, cutoff time.Time) ([]*Request, error)
	// ListInDateRange returns requests with from <= flight_date <= to, oldest first.
	ListInDateRange(ctx context.Context, from, to time.Time) ([]*Request, error)
}

// PredictionRepository persists Predictions. Rows are never updated.
type PredictionRepository interface {
	// CreateIfAbsent inserts p unless a row for (p.RequestID, p.Bucket) exists. It
	// returns the canonical row and whether this call inserted it.
	CreateIfAbsent(ctx context.Context, p *Prediction) (*Prediction, bool, error)
	GetByID(ctx context.Context, id int64) (*Prediction, error)
	FindByRequestAndBucket(ctx context.Context, requestID int64, bucket time.Time) (*Prediction, error)
}

// ActualRepository persists FlightActuals, keyed by request id.
type ActualRepository interface {
	Upsert(ctx context.Context, a *Actual) error
	GetByRequestID(ctx context.Context, requestID int64) (*Actual, error)
}
