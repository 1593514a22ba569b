package airports

import (
	"errors"
	"math"
	"testing"

	"flight_delay_tracker/internal/domain/route"
)

func TestDistanceKm(t *testing.T) {
	r := NewResolver()
	tests := []struct {
		origin, dest string
		want         float64
	}{
		{"JFK", "LAX", 3974},
		{"lhr", "jfk", 5540},
		{"ORD", "ORD", 0},
	}
	for _, tt := range tests {
		got, err := r.DistanceKm(tt.origin, tt.dest)
		if err != nil {
			t.Fatalf("DistanceKm(%s, %s) error = %v", tt.origin, tt.dest, err)
		}
		if math.Abs(got-tt.want) > 15 {
			t.Errorf("DistanceKm(%s, %s) = %.0f, want about %.0f", tt.origin, tt.dest, got, tt.want)
		}
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	r := NewResolver()
	ab, _ := r.DistanceKm("BOS", "SFO")
	ba, _ := r.DistanceKm("SFO", "BOS")
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestUnknownAirport(t *testing.T) {
	r := NewResolver()
	if _, err := r.DistanceKm("JFK", "XYZ"); !errors.Is(err, route.ErrUnknownAirport) {
		t.Errorf("DistanceKm() error = %v, want ErrUnknownAirport", err)
	}

	extended := NewResolver(Airport{Code: "xyz", Lat: 40.0, Lon: -74.0})
	if _, err := extended.DistanceKm("JFK", "XYZ"); err != nil {
		t.Errorf("DistanceKm() with extra airport error = %v", err)
	}
}
