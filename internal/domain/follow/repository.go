// internal/domain/follow/repository.go
package follow

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSnapshotNotFound        = errors.New("user prediction snapshot not found")
	ErrFollowNotFound          = errors.New("flight follow not found")
	ErrNotificationLogNotFound = errors.New("notification log not found")
)

type SnapshotRepository interface {
	Create(ctx context.Context, s *UserPrediction) error
	GetByID(ctx context.Context, id int64) (*UserPrediction, error)
	FindLatestByUserAndRequest(ctx context.Context, userID, requestID int64) (*UserPrediction, error)
	FindEarliestByUserAndRequest(ctx context.Context, userID, requestID int64) (*UserPrediction, error)
}

type FollowRepository interface {
	// Save inserts or updates the follow identified by (UserID, RequestID).
	Save(ctx context.Context, f *Follow) error
	FindByUserAndRequest(ctx context.Context, userID, requestID int64) (*Follow, error)
	ListByUser(ctx context.Context, userID int64) ([]*Follow, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*Follow, error)
	// ListByModeAndDateRange returns follows in mode whose request flight_date lies in [from, to].
	ListByModeAndDateRange(ctx context.Context, mode RefreshMode, from, to time.Time) ([]*Follow, error)
	Delete(ctx context.Context, userID, requestID int64) error
}

type NotificationLogRepository interface {
	// CreateIfAbsent inserts l unless a log for (UserID, RequestID, Type) exists.
	CreateIfAbsent(ctx context.Context, l *NotificationLog) (bool, error)
	FindByUserRequestType(ctx context.Context, userID, requestID int64, t NotificationType) (*NotificationLog, error)
}
