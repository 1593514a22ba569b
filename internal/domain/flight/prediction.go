// internal/domain/flight/prediction.go
package flight

import (
	"strings"
	"time"
)

// Status is the predicted or observed outcome of a flight.
type Status string

const (
	StatusOnTime    Status = "ON_TIME"
	StatusDelayed   Status = "DELAYED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus normalises the spellings used by the forecasting model and the
// outcome provider. Unknown values (e.g. SCHEDULED, DIVERTED) return false.
func ParseStatus(raw string) (Status, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "ON_TIME", "ONTIME":
		return StatusOnTime, true
	case "DELAYED", "DELAY":
		return StatusDelayed, true
	case "CANCELLED", "CANCELED":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// Persistable reports whether an outcome with this status may be stored as a FlightActual.
func (s Status) Persistable() bool {
	switch s {
	case StatusOnTime, StatusDelayed, StatusCancelled:
		return true
	}
	return false
}

// BucketWidth is the cache granularity for predictions.
const BucketWidth = 3 * time.Hour

// BucketOf floors t to its 3-hour-aligned UTC window (hour - hour%3).
func BucketOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour()-u.Hour()%3, 0, 0, 0, time.UTC)
}

// Prediction is one append-only forecast snapshot for a Request.
// At most one exists per (RequestID, Bucket).
type Prediction struct {
	ID            int64
	RequestID     int64 // zero for ephemeral predictions that were never stored
	Bucket        time.Time
	Status        Status
	Probability   float64
	Confidence    string
	ThresholdUsed float64
	ModelVersion  string
	PredictedAt   time.Time
}
