// internal/infra/database/postgres_flight_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/flight"
)

const requestColumns = `id, flight_date, carrier, origin, dest, flight_number, distance_km, active, closed_at, created_at`

type PostgresRequestRepository struct {
	db *sql.DB
}

func NewPostgresRequestRepository(db *sql.DB) *PostgresRequestRepository {
	return &PostgresRequestRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*flight.Request, error) {
	r := &flight.Request{}
	err := row.Scan(&r.ID, &r.FlightDate, &r.Carrier, &r.Origin, &r.Dest, &r.FlightNumber,
		&r.DistanceKm, &r.Active, &r.ClosedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.FlightDate = r.FlightDate.UTC()
	return r, nil
}

// FindOrCreate reads by natural key first. When two callers insert the same flight
// concurrently the loser's unique violation is turned into a read of the winner.
func (r *PostgresRequestRepository) FindOrCreate(ctx context.Context, req *flight.Request) (*flight.Request, bool, error) {
	existing, err := r.FindByNaturalKey(ctx, req.Key())
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, flight.ErrRequestNotFound) {
		return nil, false, err
	}

	query := `INSERT INTO flight_requests (flight_date, carrier, origin, dest, flight_number, distance_km, active, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING ` + requestColumns
	created, err := scanRequest(r.db.QueryRowContext(ctx, query,
		req.FlightDate.UTC(), req.Carrier, req.Origin, req.Dest, req.FlightNumber, req.DistanceKm, req.Active, req.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			winner, findErr := r.FindByNaturalKey(ctx, req.Key())
			if findErr != nil {
				return nil, false, fmt.Errorf("error reading concurrently created flight request: %w", findErr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("error creating flight request: %w", err)
	}
	return created, true, nil
}

func (r *PostgresRequestRepository) Update(ctx context.Context, req *flight.Request) error {
	query := `UPDATE flight_requests
               SET distance_km = $1, active = $2, closed_at = $3
               WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, req.DistanceKm, req.Active, nullTime(req.ClosedAt), req.ID)
	if err != nil {
		return fmt.Errorf("error updating flight request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return flight.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresRequestRepository) GetByID(ctx context.Context, id int64) (*flight.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM flight_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flight.ErrRequestNotFound
		}
		return nil, fmt.Errorf("error getting flight request by ID: %w", err)
	}
	return req, nil
}

func (r *PostgresRequestRepository) FindByNaturalKey(ctx context.Context, key flight.NaturalKey) (*flight.Request, error) {
	query := `SELECT ` + requestColumns + `
               FROM flight_requests
               WHERE flight_date = $1 AND carrier = $2 AND origin = $3 AND dest = $4 AND flight_number = $5`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, key.FlightDate.UTC(), key.Carrier, key.Origin, key.Dest, key.FlightNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flight.ErrRequestNotFound
		}
		return nil, fmt.Errorf("error getting flight request by natural key: %w", err)
	}
	return req, nil
}

func (r *PostgresRequestRepository) ListActiveBefore(ctx context.Context, cutoff time.Time) ([]*flight.Request, error) {
	query := `SELECT ` + requestColumns + `
               FROM flight_requests
               WHERE active = TRUE AND flight_date <= $1
               ORDER BY flight_date, id`
	return r.list(ctx, query, cutoff.UTC())
}

func (r *PostgresRequestRepository) ListInDateRange(ctx context.Context, from, to time.Time) ([]*flight.Request, error) {
	query := `SELECT ` + requestColumns + `
               FROM flight_requests
               WHERE flight_date BETWEEN $1 AND $2
               ORDER BY flight_date, id`
	return r.list(ctx, query, from.UTC(), to.UTC())
}

func (r *PostgresRequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*flight.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying flight requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*flight.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning flight request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flight request rows: %w", err)
	}
	return requests, nil
}

const predictionColumns = `id, request_id, bucket, status, probability, confidence, threshold_used, model_version, predicted_at`

type PostgresPredictionRepository struct {
	db *sql.DB
}

func NewPostgresPredictionRepository(db *sql.DB) *PostgresPredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

func scanPrediction(row rowScanner) (*flight.Prediction, error) {
	p := &flight.Prediction{}
	err := row.Scan(&p.ID, &p.RequestID, &p.Bucket, &p.Status, &p.Probability, &p.Confidence,
		&p.ThresholdUsed, &p.ModelVersion, &p.PredictedAt)
	if err != nil {
		return nil, err
	}
	p.Bucket = p.Bucket.UTC()
	return p, nil
}

// CreateIfAbsent relies on the (request_id, bucket) constraint. ON CONFLICT DO NOTHING
// returns no row to the loser, which then reads the winner's row.
func (r *PostgresPredictionRepository) CreateIfAbsent(ctx context.Context, p *flight.Prediction) (*flight.Prediction, bool, error) {
	query := `INSERT INTO predictions (request_id, bucket, status, probability, confidence, threshold_used, model_version, predicted_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               ON CONFLICT (request_id, bucket) DO NOTHING
               RETURNING ` + predictionColumns
	created, err := scanPrediction(r.db.QueryRowContext(ctx, query,
		p.RequestID, p.Bucket.UTC(), p.Status, p.Probability, p.Confidence, p.ThresholdUsed, p.ModelVersion, p.PredictedAt))
	if err == nil {
		return created, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("error creating prediction: %w", err)
	}

	winner, err := r.FindByRequestAndBucket(ctx, p.RequestID, p.Bucket)
	if err != nil {
		return nil, false, fmt.Errorf("error reading existing prediction after conflict: %w", err)
	}
	return winner, false, nil
}

func (r *PostgresPredictionRepository) GetByID(ctx context.Context, id int64) (*flight.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	p, err := scanPrediction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flight.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("error getting prediction by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPredictionRepository) FindByRequestAndBucket(ctx context.Context, requestID int64, bucket time.Time) (*flight.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE request_id = $1 AND bucket = $2`
	p, err := scanPrediction(r.db.QueryRowContext(ctx, query, requestID, bucket.UTC()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flight.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("error getting prediction by request and bucket: %w", err)
	}
	return p, nil
}

type PostgresActualRepository struct {
	db *sql.DB
}

func NewPostgresActualRepository(db *sql.DB) *PostgresActualRepository {
	return &PostgresActualRepository{db: db}
}

func (r *PostgresActualRepository) Upsert(ctx context.Context, a *flight.Actual) error {
	query := `INSERT INTO flight_actuals (request_id, actual_departure, actual_arrival, status, source_timestamp, created_at, updated_at)
               VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
               ON CONFLICT (request_id) DO UPDATE
               SET actual_departure = EXCLUDED.actual_departure,
                   actual_arrival = EXCLUDED.actual_arrival,
                   status = EXCLUDED.status,
                   source_timestamp = EXCLUDED.source_timestamp,
                   updated_at = NOW()
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, a.RequestID, nullTime(a.ActualDeparture), nullTime(a.ActualArrival), a.Status, a.SourceTimestamp).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting flight actual: %w", err)
	}
	return nil
}

func (r *PostgresActualRepository) GetByRequestID(ctx context.Context, requestID int64) (*flight.Actual, error) {
	query := `SELECT id, request_id, actual_departure, actual_arrival, status, source_timestamp, created_at, updated_at
               FROM flight_actuals WHERE request_id = $1`
	a := &flight.Actual{}
	err := r.db.QueryRowContext(ctx, query, requestID).Scan(&a.ID, &a.RequestID, &a.ActualDeparture, &a.ActualArrival,
		&a.Status, &a.SourceTimestamp, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flight.ErrActualNotFound
		}
		return nil, fmt.Errorf("error getting flight actual: %w", err)
	}
	return a, nil
}
