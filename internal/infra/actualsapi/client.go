// Package actualsapi fetches observed flight outcomes over HTTP/JSON.
package actualsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"flight_delay_tracker/internal/domain/actuals"
)

type outcomeResponse struct {
	Status          string     `json:"status"`
	ActualDeparture *time.Time `json:"actual_departure"`
	ActualArrival   *time.Time `json:"actual_arrival"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// Client implements actuals.Client. A 404 maps to actuals.ErrOutcomeNotFound.
//
//	GET {baseURL}/flights/{number}?date=YYYY-MM-DD
//	GET {baseURL}/routes/{origin}/{dest}?start=RFC3339&end=RFC3339
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

func (c *Client) FetchByFlightNumber(ctx context.Context, flightNumber string, flightDate time.Time) (*actuals.Outcome, error) {
	q := url.Values{}
	q.Set("date", flightDate.UTC().Format("2006-01-02"))
	return c.get(ctx, "/flights/"+url.PathEscape(flightNumber), q)
}

func (c *Client) FetchByRouteAndWindow(ctx context.Context, origin, dest string, start, end time.Time) (*actuals.Outcome, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	return c.get(ctx, "/routes/"+url.PathEscape(origin)+"/"+url.PathEscape(dest), q)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*actuals.Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build actuals request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actuals service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, actuals.ErrOutcomeNotFound
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("actuals service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out outcomeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode actuals response: %w", err)
	}
	outcome := &actuals.Outcome{
		Status:          out.Status,
		ActualDeparture: out.ActualDeparture,
		ActualArrival:   out.ActualArrival,
	}
	if out.UpdatedAt != nil {
		outcome.SourceTimestamp = out.UpdatedAt.UTC()
	}
	return outcome, nil
}
