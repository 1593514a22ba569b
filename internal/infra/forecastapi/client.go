// Package forecastapi calls the external forecasting model over HTTP/JSON.
package forecastapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flight_delay_tracker/internal/domain/flight"
	"flight_delay_tracker/internal/domain/forecast"
)

type predictRequest struct {
	FlightDate   string  `json:"flight_date"` // RFC3339, UTC
	Carrier      string  `json:"carrier"`
	Origin       string  `json:"origin"`
	Dest         string  `json:"dest"`
	FlightNumber string  `json:"flight_number,omitempty"`
	DistanceKm   float64 `json:"distance_km"`
}

type predictResponse struct {
	Status        string  `json:"status"`
	Probability   float64 `json:"probability"`
	Confidence    string  `json:"confidence"`
	ThresholdUsed float64 `json:"threshold_used"`
	ModelVersion  string  `json:"model_version"`
}

// Client implements forecast.Client against POST {baseURL}/predict.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client. Per-call deadlines come from the caller's context.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

func (c *Client) RequestPrediction(ctx context.Context, cmd forecast.Command) (*forecast.Result, error) {
	body, err := json.Marshal(predictRequest{
		FlightDate:   cmd.FlightDate.UTC().Format(time.RFC3339),
		Carrier:      cmd.Carrier,
		Origin:       cmd.Origin,
		Dest:         cmd.Dest,
		FlightNumber: cmd.FlightNumber,
		DistanceKm:   cmd.DistanceKm,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("forecast service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	status, ok := flight.ParseStatus(out.Status)
	if !ok {
		return nil, fmt.Errorf("forecast service returned unknown status %q", out.Status)
	}

	return &forecast.Result{
		Status:        status,
		Probability:   out.Probability,
		Confidence:    out.Confidence,
		ThresholdUsed: out.ThresholdUsed,
		ModelVersion:  out.ModelVersion,
	}, nil
}
