// Package geo resolves a client IP to coarse coordinates. Resolution is a
// best-effort signal: any failure substitutes a fixed reference point so the
// feature pipeline always has a location.
package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Coordinates is an unnormalized latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Fallback is used whenever a lookup fails. Unknown location maps to a known
// reference point rather than an error.
var Fallback = Coordinates{Lat: 28.6139, Lon: 77.2090}

// Resolver queries an ipinfo-style endpoint (GET {base}/{ip}/json returning
// {"loc":"lat,lon"}).
type Resolver struct {
	baseURL string
	client  *http.Client
}

// NewResolver builds a resolver against the given base URL. An empty base URL
// yields a resolver that always returns Fallback.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Resolve looks up coordinates for ip. It never fails: timeouts, non-200
// responses, and unparsable bodies all return Fallback.
func (r *Resolver) Resolve(ctx context.Context, ip string) Coordinates {
	if r == nil || r.baseURL == "" || ip == "" {
		return Fallback
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json", r.baseURL, ip), nil)
	if err != nil {
		return Fallback
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Fallback
	}
	var body struct {
		Loc string `json:"loc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Fallback
	}
	coords, err := parseLoc(body.Loc)
	if err != nil {
		return Fallback
	}
	return coords
}

func parseLoc(loc string) (Coordinates, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("malformed loc %q", loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, err
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

// LocationHash is a stable digest of the coordinate pair, reported in device
// context instead of raw coordinates where only equality matters.
func LocationHash(c Coordinates) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%v,%v", c.Lat, c.Lon)))
	return hex.EncodeToString(digest[:])
}
