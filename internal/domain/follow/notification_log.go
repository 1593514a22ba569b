package follow

import (
	"time"

	"flight_delay_tracker/internal/domain/flight"
)

// NotificationType names a notification that fires at most once per user and request.
type NotificationType string

const NotificationT12H NotificationType = "T12H"

// NotificationLog records a fired notification. Unique per (UserID, RequestID, Type).
type NotificationLog struct {
	ID        int64
	UserID    int64
	RequestID int64
	Type      NotificationType
	Channel   string
	Status    flight.Status // current status at fire time
	Message   string
	SentAt    time.Time
	CreatedAt time.Time
}
