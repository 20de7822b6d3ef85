// Package records fetches stored customer records and merges them with
// request-supplied data before scoring and minimization.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"riskgate/pkg/observability/otelobs"
)

// Client retrieves records by key from the record source service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client. An empty base URL yields nil: no record source
// configured, requests proceed on submitted data alone.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   3 * time.Second,
			Transport: otelobs.WrapHTTPTransport(nil),
		},
	}
}

// Fetch returns the stored record for key, or nil when the source has none
// (404). Other failures are errors.
func (c *Client) Fetch(ctx context.Context, key string) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/records/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("record source request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record source returned status %d", resp.StatusCode)
	}
	var record map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
