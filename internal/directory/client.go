// Package directory reads buyer profiles, relationship stats, and
// requirement/vendor records from the sourcing directory service. All of
// it is read-only input to the routing core.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sourcemesh/router/internal/store"
)

// Requirement carries only the field scoring needs.
type Requirement struct {
	ID    string `json:"requirement_id"`
	Brand string `json:"brand"`
}

// Vendor carries only the field scoring needs.
type Vendor struct {
	ID      string `json:"vendor_id"`
	Country string `json:"country"`
}

type Client interface {
	ListBuyerProfiles(ctx context.Context) ([]store.BuyerProfile, error)
	GetBuyerVendorStats(ctx context.Context, buyerID, vendorID string) (*store.BuyerVendorStats, error)
	GetRequirement(ctx context.Context, id string) (*Requirement, error)
	GetVendor(ctx context.Context, id string) (*Vendor, error)
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory %s %s: %d %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *HTTPClient) ListBuyerProfiles(ctx context.Context) ([]store.BuyerProfile, error) {
	data, err := c.doReq(ctx, "GET", "/api/v1/buyers")
	if err != nil || data == nil {
		return nil, err
	}
	var profiles []store.BuyerProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *HTTPClient) GetBuyerVendorStats(ctx context.Context, buyerID, vendorID string) (*store.BuyerVendorStats, error) {
	path := fmt.Sprintf("/api/v1/buyers/%s/stats?vendor_id=%s",
		url.PathEscape(buyerID), url.QueryEscape(vendorID))
	data, err := c.doReq(ctx, "GET", path)
	if err != nil || data == nil {
		return nil, err
	}
	var stats store.BuyerVendorStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) GetRequirement(ctx context.Context, id string) (*Requirement, error) {
	data, err := c.doReq(ctx, "GET", "/api/v1/requirements/"+url.PathEscape(id))
	if err != nil || data == nil {
		return nil, err
	}
	var r Requirement
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) GetVendor(ctx context.Context, id string) (*Vendor, error) {
	data, err := c.doReq(ctx, "GET", "/api/v1/vendors/"+url.PathEscape(id))
	if err != nil || data == nil {
		return nil, err
	}
	var v Vendor
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
