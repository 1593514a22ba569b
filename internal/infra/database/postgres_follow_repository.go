// internal/infra/database/postgres_follow_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/follow"
)

type PostgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

const snapshotColumns = `id, user_id, request_id, prediction_id, source, created_at`

func (r *PostgresSnapshotRepository) Create(ctx context.Context, s *follow.UserPrediction) error {
	query := `INSERT INTO user_predictions (user_id, request_id, prediction_id, source, created_at)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, s.UserID, s.RequestID, s.PredictionID, s.Source, s.CreatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("error creating user prediction snapshot: %w", err)
	}
	return nil
}

func (r *PostgresSnapshotRepository) GetByID(ctx context.Context, id int64) (*follow.UserPrediction, error) {
	query := `SELECT ` + snapshotColumns + ` FROM user_predictions WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *PostgresSnapshotRepository) FindLatestByUserAndRequest(ctx context.Context, userID, requestID int64) (*follow.UserPrediction, error) {
	query := `SELECT ` + snapshotColumns + `
               FROM user_predictions
               WHERE user_id = $1 AND request_id = $2
               ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.get(ctx, query, userID, requestID)
}

func (r *PostgresSnapshotRepository) FindEarliestByUserAndRequest(ctx context.Context, userID, requestID int64) (*follow.UserPrediction, error) {
	query := `SELECT ` + snapshotColumns + `
               FROM user_predictions
               WHERE user_id = $1 AND request_id = $2
               ORDER BY created_at ASC, id ASC LIMIT 1`
	return r.get(ctx, query, userID, requestID)
}

func (r *PostgresSnapshotRepository) get(ctx context.Context, query string, args ...interface{}) (*follow.UserPrediction, error) {
	s := &follow.UserPrediction{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.RequestID, &s.PredictionID, &s.Source, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, follow.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("error getting user prediction snapshot: %w", err)
	}
	return s, nil
}

type PostgresFollowRepository struct {
	db *sql.DB
}

func NewPostgresFollowRepository(db *sql.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

const followColumns = `f.id, f.user_id, f.request_id, f.refresh_mode, f.baseline_snapshot_id, f.created_at, f.updated_at`

// Save upserts by (user_id, request_id). COALESCE keeps a stored baseline in place.
func (r *PostgresFollowRepository) Save(ctx context.Context, f *follow.Follow) error {
	query := `INSERT INTO flight_follows AS f (user_id, request_id, refresh_mode, baseline_snapshot_id, created_at, updated_at)
               VALUES ($1, $2, $3, $4, $5, $6)
               ON CONFLICT (user_id, request_id) DO UPDATE
               SET refresh_mode = EXCLUDED.refresh_mode,
                   baseline_snapshot_id = COALESCE(f.baseline_snapshot_id, EXCLUDED.baseline_snapshot_id),
                   updated_at = EXCLUDED.updated_at
               RETURNING f.id, f.baseline_snapshot_id, f.created_at`
	var baseline interface{}
	if f.BaselineSnapshotID.Valid {
		baseline = f.BaselineSnapshotID.Int64
	}
	err := r.db.QueryRowContext(ctx, query, f.UserID, f.RequestID, f.Mode, baseline, f.CreatedAt, f.UpdatedAt).
		Scan(&f.ID, &f.BaselineSnapshotID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving flight follow: %w", err)
	}
	return nil
}

func (r *PostgresFollowRepository) FindByUserAndRequest(ctx context.Context, userID, requestID int64) (*follow.Follow, error) {
	query := `SELECT ` + followColumns + ` FROM flight_follows f WHERE f.user_id = $1 AND f.request_id = $2`
	f := &follow.Follow{}
	err := r.db.QueryRowContext(ctx, query, userID, requestID).Scan(
		&f.ID, &f.UserID, &f.RequestID, &f.Mode, &f.BaselineSnapshotID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, follow.ErrFollowNotFound
		}
		return nil, fmt.Errorf("error getting flight follow: %w", err)
	}
	return f, nil
}

func (r *PostgresFollowRepository) ListByUser(ctx context.Context, userID int64) ([]*follow.Follow, error) {
	query := `SELECT ` + followColumns + ` FROM flight_follows f WHERE f.user_id = $1 ORDER BY f.id`
	return r.list(ctx, query, userID)
}

func (r *PostgresFollowRepository) ListByRequest(ctx context.Context, requestID int64) ([]*follow.Follow, error) {
	query := `SELECT ` + followColumns + ` FROM flight_follows f WHERE f.request_id = $1 ORDER BY f.id`
	return r.list(ctx, query, requestID)
}

func (r *PostgresFollowRepository) ListByModeAndDateRange(ctx context.Context, mode follow.RefreshMode, from, to time.Time) ([]*follow.Follow, error) {
	query := `SELECT ` + followColumns + `
               FROM flight_follows f
               JOIN flight_requests r ON r.id = f.request_id
               WHERE f.refresh_mode = $1 AND r.flight_date BETWEEN $2 AND $3
               ORDER BY r.flight_date, f.id`
	return r.list(ctx, query, mode, from.UTC(), to.UTC())
}

func (r *PostgresFollowRepository) Delete(ctx context.Context, userID, requestID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM flight_follows WHERE user_id = $1 AND request_id = $2`, userID, requestID)
	if err != nil {
		return fmt.Errorf("error deleting flight follow: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return follow.ErrFollowNotFound
	}
	return nil
}

func (r *PostgresFollowRepository) list(ctx context.Context, query string, args ...interface{}) ([]*follow.Follow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying flight follows: %w", err)
	}
	defer rows.Close()

	follows := make([]*follow.Follow, 0)
	for rows.Next() {
		f := &follow.Follow{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.RequestID, &f.Mode, &f.BaselineSnapshotID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning flight follow row: %w", err)
		}
		follows = append(follows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flight follow rows: %w", err)
	}
	return follows, nil
}

type PostgresNotificationLogRepository struct {
	db *sql.DB
}

func NewPostgresNotificationLogRepository(db *sql.DB) *PostgresNotificationLogRepository {
	return &PostgresNotificationLogRepository{db: db}
}

func (r *PostgresNotificationLogRepository) CreateIfAbsent(ctx context.Context, l *follow.NotificationLog) (bool, error) {
	query := `INSERT INTO notification_logs (user_id, request_id, notification_type, channel, status, message, sent_at, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               ON CONFLICT (user_id, request_id, notification_type) DO NOTHING
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query, l.UserID, l.RequestID, l.Type, l.Channel, l.Status, l.Message, l.SentAt, l.CreatedAt).Scan(&l.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error creating notification log: %w", err)
	}
	return true, nil
}

func (r *PostgresNotificationLogRepository) FindByUserRequestType(ctx context.Context, userID, requestID int64, t follow.NotificationType) (*follow.NotificationLog, error) {
	query := `SELECT id, user_id, request_id, notification_type, channel, status, message, sent_at, created_at
               FROM notification_logs
               WHERE user_id = $1 AND request_id = $2 AND notification_type = $3`
	l := &follow.NotificationLog{}
	err := r.db.QueryRowContext(ctx, query, userID, requestID, t).Scan(
		&l.ID, &l.UserID, &l.RequestID, &l.Type, &l.Channel, &l.Status, &l.Message, &l.SentAt, &l.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, follow.ErrNotificationLogNotFound
		}
		return nil, fmt.Errorf("error getting notification log: %w", err)
	}
	return l, nil
}
