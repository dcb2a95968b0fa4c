// Package availability probes whether a buyer can take new work today.
// Callers treat any probe failure as available — an availability outage
// must never block routing.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client interface {
	// Probe reports whether the buyer is available on the given date.
	Probe(ctx context.Context, buyerID string, date time.Time) (bool, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient builds a probe client. timeout is the hard ceiling for a
// single probe; callers usually pass a shorter per-call deadline too.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type probeResponse struct {
	Available bool `json:"available"`
}

func (c *HTTPClient) Probe(ctx context.Context, buyerID string, date time.Time) (bool, error) {
	path := fmt.Sprintf("/api/v1/buyers/%s/availability?date=%s",
		url.PathEscape(buyerID), date.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("availability probe %s: %d %s", buyerID, resp.StatusCode, string(body))
	}
	var pr probeResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return false, err
	}
	return pr.Available, nil
}
