// internal/domain/actuals/client.go
package actuals

import (
	"context"
	"errors"
	"time"
)

// ErrOutcomeNotFound means the provider has no outcome for the flight yet.
var ErrOutcomeNotFound = errors.New("flight outcome not found")

// Outcome is what the provider observed. Status is the provider's raw value and may
// fall outside the set this system persists.
type Outcome struct {
	Status          string
	ActualDeparture *time.Time
	ActualArrival   *time.Time
	SourceTimestamp time.Time
}

type Client interface {
	FetchByFlightNumber(ctx context.Context, flightNumber string, flightDate time.Time) (*Outcome, error)
	FetchByRouteAndWindow(ctx context.Context, origin, dest string, start, end time.Time) (*Outcome, error)
}
