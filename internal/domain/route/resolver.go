package route

import "errors"

var ErrUnknownAirport = errors.New("unknown airport")

// Resolver computes great-circle distance between two IATA airports.
type Resolver interface {
	DistanceKm(origin, dest string) (float64, error)
}
