package minimize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"riskgate/pkg/observability/otelobs"
)

// OracleClient calls the external minimization oracle. The oracle is
// advisory: on timeout, non-200 status, or an unparsable/empty response the
// caller falls back to the deterministic local minimizer, and every
// requested field is reported as suspicious rather than silently dropped.
type OracleClient struct {
	baseURL string
	client  *http.Client
}

// NewOracleClient builds a client with a 3s timeout. An empty base URL
// yields a nil client, meaning no oracle is configured.
func NewOracleClient(baseURL string) *OracleClient {
	if baseURL == "" {
		return nil
	}
	return &OracleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   3 * time.Second,
			Transport: otelobs.WrapHTTPTransport(nil),
		},
	}
}

type oracleRequest struct {
	UseCase string            `json:"use_case"`
	Data    map[string]string `json:"data"`
}

type oracleResponse struct {
	Fields     []string `json:"fields"`
	Suspicious []string `json:"suspicious"`
}

// MinimizeFields asks the oracle for the minimal field set. Values are
// masked before leaving the process. An empty fields list in the response is
// treated as "everything suspicious". Errors mean the oracle signal is
// unavailable; they are not retried here beyond the transport's single
// attempt.
func (o *OracleClient) MinimizeFields(ctx context.Context, useCase string, fields map[string]string) (required []string, suspicious []string, err error) {
	if o == nil {
		return nil, nil, fmt.Errorf("minimization oracle not configured")
	}
	masked := make(map[string]string, len(fields))
	for name, value := range fields {
		masked[name] = MaskField(name, value)
	}
	payload, err := json.Marshal(oracleRequest{UseCase: useCase, Data: masked})
	if err != nil {
		return nil, nil, fmt.Errorf("encode oracle request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/minimize-fields", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}
	var body oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("decode oracle response: %w", err)
	}
	if len(body.Fields) == 0 {
		// Oracle produced nothing usable: flag every requested field.
		return nil, sortedNames(fields), nil
	}
	return body.Fields, body.Suspicious, nil
}

func sortedNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
