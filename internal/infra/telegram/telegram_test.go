package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"flight_delay_tracker/internal/app"
	"flight_delay_tracker/internal/domain/flight"
)

type mockClient struct {
	err  error
	to   int64
	text string
}

func (m *mockClient) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.to, m.text = chatID, text
	return m.err
}

func testRequest(flightNumber string) *flight.Request {
	return &flight.Request{
		ID:           7,
		FlightDate:   time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC),
		Carrier:      "AA",
		Origin:       "JFK",
		Dest:         "LAX",
		FlightNumber: flightNumber,
	}
}

func TestParsePredictArgs(t *testing.T) {
	in, err := ParsePredictArgs([]string{"aa", "jfk", "lax", "2026-10-15T14:00", "AA100"})
	if err != nil {
		t.Fatalf("ParsePredictArgs() error = %v", err)
	}
	if in.Carrier != "aa" || in.Origin != "jfk" || in.Dest != "lax" || in.FlightNumber != "AA100" {
		t.Errorf("input = %+v", in)
	}
	if want := time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC); !in.FlightDate.Equal(want) {
		t.Errorf("FlightDate = %v, want %v", in.FlightDate, want)
	}

	rfc, err := ParsePredictArgs([]string{"AA", "JFK", "LAX", "2026-10-15T10:00:00-04:00"})
	if err != nil {
		t.Fatalf("ParsePredictArgs(RFC3339) error = %v", err)
	}
	if rfc.FlightDate.Hour() != 14 || rfc.FlightDate.Location() != time.UTC || rfc.FlightNumber != "" {
		t.Errorf("RFC3339 input = %+v", rfc)
	}

	for _, args := range [][]string{
		{"AA", "JFK", "LAX"},
		{"AA", "JFK", "LAX", "tomorrow"},
		{"AA", "JFK", "LAX", "2026-10-15T14:00", "AA100", "extra"},
	} {
		if _, err := ParsePredictArgs(args); err == nil {
			t.Errorf("ParsePredictArgs(%v) error = nil", args)
		}
	}
}

func TestFlightLabel(t *testing.T) {
	tests := []struct {
		flightNumber string
		want         string
	}{
		{"", "AA JFK→LAX, 2026-10-15 14:00 UTC"},
		{"AA100", "AA100 JFK→LAX, 2026-10-15 14:00 UTC"},
		{"100", "AA100 JFK→LAX, 2026-10-15 14:00 UTC"},
	}
	for _, tt := range tests {
		if got := FlightLabel(testRequest(tt.flightNumber)); got != tt.want {
			t.Errorf("FlightLabel(%q) = %q, want %q", tt.flightNumber, got, tt.want)
		}
	}
}

func TestStatusChangeNotifier(t *testing.T) {
	client := &mockClient{}
	n := NewStatusChangeNotifier(client)
	baseline := &flight.Prediction{Status: flight.StatusOnTime, Probability: 0.2}
	current := &flight.Prediction{Status: flight.StatusDelayed, Probability: 0.81, Confidence: "HIGH"}

	if err := n.SendT12hStatusChange(context.Background(), 42, testRequest("AA100"), baseline, current); err != nil {
		t.Fatalf("SendT12hStatusChange() error = %v", err)
	}
	if client.to != 42 {
		t.Errorf("sent to %d, want 42", client.to)
	}
	for _, want := range []string{"AA100 JFK→LAX", "Status changed from ON_TIME to DELAYED", "81%", "high"} {
		if !strings.Contains(client.text, want) {
			t.Errorf("message %q missing %q", client.text, want)
		}
	}
	if n.Channel() != ChannelTelegram {
		t.Errorf("Channel() = %q", n.Channel())
	}

	client.err = errors.New("blocked by user")
	if err := n.SendT12hStatusChange(context.Background(), 42, testRequest(""), baseline, current); !errors.Is(err, client.err) {
		t.Errorf("SendT12hStatusChange() error = %v, want wrapped client error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.err = nil
	client.text = ""
	if err := n.SendT12hStatusChange(ctx, 42, testRequest(""), baseline, current); !errors.Is(err, context.Canceled) {
		t.Errorf("SendT12hStatusChange(cancelled) error = %v", err)
	}
	if client.text != "" {
		t.Error("message sent after cancellation")
	}
}

func TestPredictionText(t *testing.T) {
	text := PredictionText(testRequest(""), &flight.Prediction{Status: flight.StatusOnTime, Probability: 0.13, Confidence: "LOW"})
	for _, want := range []string{"Prediction: ON_TIME", "delay probability 13%", "confidence low", "Request id: 7"} {
		if !strings.Contains(text, want) {
			t.Errorf("PredictionText() = %q, missing %q", text, want)
		}
	}
}

func TestJobStatsText(t *testing.T) {
	got := JobStatsText("actuals", app.JobStats{Considered: 4, Saved: 1, Closed: 2})
	if !strings.Contains(got, "Job actuals finished") || !strings.Contains(got, "considered=4") || !strings.Contains(got, "closed=2") {
		t.Errorf("JobStatsText() = %q", got)
	}
}
