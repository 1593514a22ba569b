// internal/domain/forecast/client.go
package forecast

import (
	"context"
	"time"

	"flight_delay_tracker/internal/domain/flight"
)

// Command carries the flight attributes the forecasting model consumes.
type Command struct {
	FlightDate   time.Time
	Carrier      string
	Origin       string
	Dest         string
	FlightNumber string
	DistanceKm   float64
}

type Result struct {
	Status        flight.Status
	Probability   float64
	Confidence    string
	ThresholdUsed float64
	ModelVersion  string
}

// Client is the external forecasting model. Calls are expensive and may fail; the
// same command may be sent repeatedly.
type Client interface {
	RequestPrediction(ctx context.Context, cmd Command) (*Result, error)
}
