// internal/domain/flight/request.go
package flight

import (
	"database/sql"
	"time"
)

// Request identifies one tracked flight, independent of the users asking about it.
// Corresponds to the 'flight_requests' table.
type Request struct {
	ID           int64
	FlightDate   time.Time // scheduled departure, UTC
	Carrier      string    // IATA carrier code, e.g. "AA"
	Origin       string    // IATA airport code
	Dest         string    // IATA airport code
	FlightNumber string    // empty when the caller did not supply one
	DistanceKm   float64
	CreatedAt    time.Time
	Active       bool
	ClosedAt     sql.NullTime
}

// NaturalKey is the identity repeated requests for the same flight resolve to.
type NaturalKey struct {
	FlightDate   time.Time
	Carrier      string
	Origin       string
	Dest         string
	FlightNumber string
}

func (r *Request) Key() NaturalKey {
	return NaturalKey{
		FlightDate:   r.FlightDate.UTC(),
		Carrier:      r.Carrier,
		Origin:       r.Origin,
		Dest:         r.Dest,
		FlightNumber: r.FlightNumber,
	}
}

func (r *Request) HasFlightNumber() bool {
	return r.FlightNumber != ""
}
