// Package riskclient talks to the remote risk-scoring service. The remote
// signal is advisory: any failure here means "no result", and the gate
// applies its configured fallback mode.
package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"riskgate/pkg/geo"
	"riskgate/pkg/observability/otelobs"
	"riskgate/pkg/risk"
	"riskgate/pkg/session"
)

// Payload is the behavioral/context input sent for scoring.
type Payload struct {
	DeviceID    string  `json:"deviceId"`
	IPAddress   string  `json:"ipAddress"`
	Endpoint    string  `json:"endpoint"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	KeyEvents   uint64  `json:"keyEvents"`
	ClickEvents uint64  `json:"clickEvents"`
	MoveEvents  uint64  `json:"moveEvents"`
}

// NewPayload assembles a scoring payload from request context.
func NewPayload(deviceID, ip, endpoint string, coords geo.Coordinates, snap session.Snapshot) Payload {
	return Payload{
		DeviceID:    deviceID,
		IPAddress:   ip,
		Endpoint:    endpoint,
		Latitude:    coords.Lat,
		Longitude:   coords.Lon,
		KeyEvents:   snap.KeyEvents,
		ClickEvents: snap.ClickEvents,
		MoveEvents:  snap.MoveEvents,
	}
}

type response struct {
	OverallAnomalyScore float64  `json:"overallAnomalyScore"`
	RiskLevel           string   `json:"riskLevel"`
	IsAnomaly           bool     `json:"isAnomaly"`
	RiskFactors         []string `json:"riskFactors"`
}

// Client scores payloads against the remote service with a bounded timeout
// and at most one retry. More retries would invite cascading latency on the
// request path.
type Client struct {
	baseURL string
	client  *http.Client
}

// New builds a client. An empty base URL yields nil: remote scoring not
// configured.
func New(baseURL string) *Client {
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

// Score submits the payload and maps the response onto an AnomalyResult.
// Every error return means the risk signal is unavailable, never that the
// request is risky.
func (c *Client) Score(ctx context.Context, p Payload) (*risk.AnomalyResult, error) {
	if c == nil {
		return nil, fmt.Errorf("risk scorer not configured")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode risk payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		result, err := c.scoreOnce(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) scoreOnce(ctx context.Context, body []byte) (*risk.AnomalyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("risk scorer request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("risk scorer returned status %d", resp.StatusCode)
	}
	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode risk response: %w", err)
	}

	tier, ok := risk.ParseTier(r.RiskLevel)
	if !ok {
		// Remote tier missing or unknown: derive it from the score so the
		// canonical thresholds apply.
		tier = risk.Classify(r.OverallAnomalyScore)
	}
	return &risk.AnomalyResult{
		Score:   r.OverallAnomalyScore,
		Tier:    tier,
		Factors: append([]string(nil), r.RiskFactors...),
	}, nil
}
