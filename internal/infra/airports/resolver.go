// Package airports resolves IATA codes from a static table and computes
// great-circle distances between them.
package airports

import (
	"fmt"
	"math"
	"strings"

	"flight_delay_tracker/internal/domain/route"
)

const earthRadiusKm = 6371.0

type Airport struct {
	Code string
	Lat  float64
	Lon  float64
}

// Resolver implements route.Resolver.
type Resolver struct {
	airports map[string]Airport
}

// NewResolver uses the built-in table, extended or overridden by extra.
func NewResolver(extra ...Airport) *Resolver {
	m := make(map[string]Airport, len(builtin)+len(extra))
	for _, a := range builtin {
		m[a.Code] = a
	}
	for _, a := range extra {
		a.Code = strings.ToUpper(a.Code)
		m[a.Code] = a
	}
	return &Resolver{airports: m}
}

func (r *Resolver) Lookup(code string) (Airport, error) {
	a, ok := r.airports[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Airport{}, fmt.Errorf("%w: %s", route.ErrUnknownAirport, code)
	}
	return a, nil
}

func (r *Resolver) DistanceKm(origin, dest string) (float64, error) {
	from, err := r.Lookup(origin)
	if err != nil {
		return 0, err
	}
	to, err := r.Lookup(dest)
	if err != nil {
		return 0, err
	}
	return haversineKm(from, to), nil
}

func haversineKm(a, b Airport) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
