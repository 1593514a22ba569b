package flight

import (
	"database/sql"
	"time"
)

// Actual is the observed outcome of a flight. At most one exists per request.
type Actual struct {
	ID              int64
	RequestID       int64
	ActualDeparture sql.NullTime
	ActualArrival   sql.NullTime
	Status          Status
	SourceTimestamp time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
