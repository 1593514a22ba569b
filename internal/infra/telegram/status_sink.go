package telegram

import (
	"context"
	"fmt"
	"strings"

	"flight_delay_tracker/internal/app"
	"flight_delay_tracker/internal/domain/flight"
	domainTelegram "flight_delay_tracker/internal/domain/telegram"
)

const ChannelTelegram = "TELEGRAM"

// StatusChangeNotifier delivers T-12h status changes as Telegram messages. Delivery
// is fire-and-forget; failures are reported to the caller and not retried here.
type StatusChangeNotifier struct {
	client domainTelegram.Client
}

func NewStatusChangeNotifier(client domainTelegram.Client) *StatusChangeNotifier {
	return &StatusChangeNotifier{client: client}
}

func (n *StatusChangeNotifier) Channel() string { return ChannelTelegram }

func (n *StatusChangeNotifier) SendT12hStatusChange(ctx context.Context, userID int64, req *flight.Request, baseline, current *flight.Prediction) error {
	if err := n.client.SendText(ctx, userID, StatusChangeText(req, baseline, current)); err != nil {
		return fmt.Errorf("telegram send to %d failed: %w", userID, err)
	}
	return nil
}

// StatusChangeText renders the notification body.
func StatusChangeText(req *flight.Request, baseline, current *flight.Prediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flight update: %s\n", FlightLabel(req))
	fmt.Fprintf(&b, "%s\n", app.StatusChangeMessage(baseline.Status, current.Status))
	fmt.Fprintf(&b, "Delay probability: %.0f%%", current.Probability*100)
	if current.Confidence != "" {
		fmt.Fprintf(&b, " (confidence: %s)", strings.ToLower(current.Confidence))
	}
	return b.String()
}

// FlightLabel is e.g. "AA100 JFK→LAX, 2026-10-15 14:00 UTC".
func FlightLabel(req *flight.Request) string {
	name := req.Carrier
	if req.HasFlightNumber() {
		name = req.Carrier + req.FlightNumber
		if strings.HasPrefix(req.FlightNumber, req.Carrier) {
			name = req.FlightNumber
		}
	}
	return fmt.Sprintf("%s %s→%s, %s", name, req.Origin, req.Dest, req.FlightDate.UTC().Format("2006-01-02 15:04 UTC"))
}
