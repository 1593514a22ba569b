package flight

import (
	"database/sql"
	"time"
)

const (
	// ExpiryAge is how far a flight must recede into the past before its request is expired.
	ExpiryAge = 12 * time.Hour
	// StaleAge is the cutoff used by the safety-net sweep that closes requests regardless of outcome.
	StaleAge = 24 * time.Hour
	// ActualsWindow is the half-width of the route lookup window around the scheduled departure.
	ActualsWindow = 3 * time.Hour
)

// IsExpired reports whether flightDate + 12h <= now.
func (r *Request) IsExpired(now time.Time) bool {
	return !r.FlightDate.Add(ExpiryAge).After(now)
}

// Close transitions an active request to closed. It returns false and leaves the
// request untouched when it is already inactive.
func (r *Request) Close(now time.Time) bool {
	if !r.Active {
		return false
	}
	r.Active = false
	r.ClosedAt = sql.NullTime{Time: now.UTC(), Valid: true}
	return true
}
