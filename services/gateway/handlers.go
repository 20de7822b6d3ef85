package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"riskgate/pkg/audit"
	"riskgate/pkg/features"
	"riskgate/pkg/gate"
	"riskgate/pkg/geo"
	"riskgate/pkg/minimize"
	"riskgate/pkg/ml"
	"riskgate/pkg/records"
	"riskgate/pkg/risk"
	"riskgate/pkg/riskclient"
	"riskgate/pkg/session"
	"riskgate/pkg/structlog"
)

// Gateway holds the wired pipeline components. All fields are safe for
// concurrent use; optional boundaries (remote scorer, oracle, record source,
// audit store) may be nil.
type Gateway struct {
	sessions   *session.Manager
	geoResolve *geo.Resolver
	scorer     *ml.Scorer
	drift      *ml.DriftMonitor
	engine     *gate.Engine
	minimizer  *minimize.Minimizer
	oracle     *minimize.OracleClient
	riskScorer *riskclient.Client
	recordSrc  *records.Client
	ledger     *audit.Ledger
	store      *audit.Store
	logger     *structlog.Logger
}

type eventsRequest struct {
	KeyEvents   uint64 `json:"keyEvents"`
	ClickEvents uint64 `json:"clickEvents"`
	MoveEvents  uint64 `json:"moveEvents"`
}

// handleSessionEvents ingests counter increments for one session.
func (g *Gateway) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	var req eventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	counters := g.sessions.Get(sessionID)
	counters.AddKeyEvents(req.KeyEvents)
	counters.AddClickEvents(req.ClickEvents)
	counters.AddMoveEvents(req.MoveEvents)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type detectRequest struct {
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
	Platform  string `json:"platform"`
	IPAddress string `json:"ipAddress"`
}

type deviceData struct {
	DeviceID     string `json:"deviceId"`
	Platform     string `json:"platform,omitempty"`
	IPAddress    string `json:"ipAddress"`
	UserAgent    string `json:"userAgent,omitempty"`
	LocationHash string `json:"locationHash"`
}

type behavioralData struct {
	KeyEvents      uint64  `json:"keyEvents"`
	ClickEvents    uint64  `json:"clickEvents"`
	MoveEvents     uint64  `json:"moveEvents"`
	SessionSeconds float64 `json:"sessionSeconds"`
}

type detectResponse struct {
	risk.AnomalyResult
	Device     deviceData     `json:"deviceData"`
	Behavioral behavioralData `json:"behavioralData"`
	Vector     []float64      `json:"vector"`
}

// handleDetect scores the session against the local baseline model and
// returns the classified result with the context it was derived from.
func (g *Gateway) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return
	}
	ip := clientIP(r, req.IPAddress)

	result, vector, coords, snap := g.scoreLocal(r.Context(), req.SessionID, ip)
	if result == nil {
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}
	writeJSON(w, http.StatusOK, detectResponse{
		AnomalyResult: *result,
		Device: deviceData{
			DeviceID:     req.DeviceID,
			Platform:     req.Platform,
			IPAddress:    ip,
			UserAgent:    r.UserAgent(),
			LocationHash: geo.LocationHash(coords),
		},
		Behavioral: behavioralData{
			KeyEvents:      snap.KeyEvents,
			ClickEvents:    snap.ClickEvents,
			MoveEvents:     snap.MoveEvents,
			SessionSeconds: snap.Elapsed.Seconds(),
		},
		Vector: vector,
	})
}

// scoreLocal runs the snapshot/resolve/aggregate/score path and returns the
// snapshot the vector was built from, so callers report the exact counters
// that were scored. A nil result means the scorer rejected the vector, which
// cannot happen with the fixed aggregator but is handled rather than
// panicking.
func (g *Gateway) scoreLocal(ctx context.Context, sessionID, ip string) (*risk.AnomalyResult, features.Vector, geo.Coordinates, session.Snapshot) {
	snap := g.sessions.Snapshot(sessionID)
	coords := g.geoResolve.Resolve(ctx, ip)
	vector := features.Aggregate(snap, coords)
	if g.drift != nil {
		g.drift.Observe(ctx, vector)
	}
	score, err := g.scorer.Score(vector)
	if err != nil {
		g.logger.Error("local scoring failed", structlog.Fields{"session_id": sessionID, "error": err.Error()})
		return nil, vector, coords, snap
	}
	result := &risk.AnomalyResult{Score: score, Tier: risk.Classify(score)}
	if result.Tier >= risk.TierHigh {
		result.Factors = []string{"anomalous_behavior_pattern"}
	}
	return result, vector, coords, snap
}

type submitRequest struct {
	SessionID      string            `json:"sessionId"`
	DeviceID       string            `json:"deviceId"`
	IPAddress      string            `json:"ipAddress"`
	UseCase        string            `json:"useCase"`
	RecordKey      string            `json:"recordKey"`
	Data           map[string]any    `json:"data"`
	SecondaryScore *float64          `json:"secondaryScore"`
	Fields         map[string]string `json:"fields"`
}

type submitResponse struct {
	RequestID  string              `json:"requestId"`
	Decision   gate.Decision       `json:"decision"`
	Risk       *risk.AnomalyResult `json:"risk,omitempty"`
	Minimized  *minimize.Result    `json:"minimized,omitempty"`
	Suspicious []string            `json:"suspicious,omitempty"`
}

// handleSubmit runs the full pipeline for one sensitive request: fetch and
// merge the stored record, score the risk, gate, and on allow release only
// the minimized field set. A denial is final for this submission.
func (g *Gateway) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "missing request id")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" || req.UseCase == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId or useCase")
		return
	}
	ctx := r.Context()
	ip := clientIP(r, req.IPAddress)

	merged := req.Data
	if g.recordSrc != nil && req.RecordKey != "" {
		stored, err := g.recordSrc.Fetch(ctx, req.RecordKey)
		if err != nil {
			g.logger.Warn("record fetch failed, continuing on submitted data", structlog.Fields{
				"request_id": requestID, "error": err.Error(),
			})
		} else if stored != nil {
			merged = records.Merge(stored, req.Data)
		}
	}

	result := g.assessRisk(ctx, requestID, req, ip)
	decision := g.engine.Decide(result, req.SecondaryScore)

	auditData := map[string]any{
		"use_case": req.UseCase,
		"allowed":  decision.Allowed,
		"reason":   decision.Reason,
		"tier":     decision.AppliedTier.String(),
	}
	if result != nil {
		auditData["score"] = result.Score
	}
	g.audit(ctx, requestID, "gate_decision", auditData)

	if !decision.Allowed {
		g.logger.SecurityEvent("request denied", structlog.Fields{
			"request_id": requestID,
			"session_id": req.SessionID,
			"reason":     decision.Reason,
		})
		writeJSON(w, http.StatusForbidden, submitResponse{
			RequestID: requestID,
			Decision:  decision,
			Risk:      result,
		})
		return
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = records.Flatten(merged)
	}
	minimized := g.minimizer.Minimize(req.UseCase, fields)
	var suspicious []string
	if g.oracle != nil {
		_, susp, err := g.oracle.MinimizeFields(ctx, req.UseCase, fields)
		if err != nil {
			g.logger.Warn("oracle unavailable, local policy only", structlog.Fields{
				"request_id": requestID, "error": err.Error(),
			})
		} else {
			suspicious = susp
		}
	}

	g.audit(ctx, requestID, "fields_released", map[string]any{
		"use_case": req.UseCase,
		"required": minimized.Required,
		"excluded": minimized.Excluded,
	})

	writeJSON(w, http.StatusOK, submitResponse{
		RequestID:  requestID,
		Decision:   decision,
		Risk:       result,
		Minimized:  &minimized,
		Suspicious: suspicious,
	})
}

// assessRisk prefers the remote scorer when configured and falls back to the
// local baseline model otherwise. A nil return means no risk signal at all;
// the gate applies its configured failure mode.
func (g *Gateway) assessRisk(ctx context.Context, requestID string, req submitRequest, ip string) *risk.AnomalyResult {
	if g.riskScorer == nil {
		result, _, _, _ := g.scoreLocal(ctx, req.SessionID, ip)
		return result
	}
	coords := g.geoResolve.Resolve(ctx, ip)
	snap := g.sessions.Snapshot(req.SessionID)
	payload := riskclient.NewPayload(req.DeviceID, ip, "/requests/"+requestID+"/submit", coords, snap)
	result, err := g.riskScorer.Score(ctx, payload)
	if err != nil {
		g.logger.Warn("remote risk scorer unavailable", structlog.Fields{
			"request_id": requestID, "error": err.Error(),
		})
		return nil
	}
	return result
}

type minimizeRequest struct {
	UseCase string            `json:"useCase"`
	Fields  map[string]string `json:"fields"`
}

type minimizeResponse struct {
	minimize.Result
	Suspicious []string `json:"suspicious,omitempty"`
}

// handleMinimize applies the field policy directly, without gating.
func (g *Gateway) handleMinimize(w http.ResponseWriter, r *http.Request) {
	var req minimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UseCase == "" {
		writeError(w, http.StatusBadRequest, "missing useCase")
		return
	}
	result := g.minimizer.Minimize(req.UseCase, req.Fields)
	resp := minimizeResponse{Result: result}
	if g.oracle != nil {
		if _, susp, err := g.oracle.MinimizeFields(r.Context(), req.UseCase, req.Fields); err == nil {
			resp.Suspicious = susp
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAnchor returns the current ledger anchor hash.
func (g *Gateway) handleAnchor(w http.ResponseWriter, r *http.Request) {
	anchor, err := g.ledger.Anchor()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "anchor unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"anchor":    anchor,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// audit writes to the JSONL ledger and, when configured, the Postgres store.
// Audit failures are logged, never surfaced to the client.
func (g *Gateway) audit(ctx context.Context, requestID, eventType string, data map[string]any) {
	if err := g.ledger.Append(requestID, eventType, data); err != nil {
		g.logger.Error("ledger append failed", structlog.Fields{"request_id": requestID, "error": err.Error()})
	}
	if g.store != nil {
		if err := g.store.Insert(ctx, requestID, eventType, data); err != nil {
			g.logger.Error("audit store insert failed", structlog.Fields{"request_id": requestID, "error": err.Error()})
		}
	}
}

// clientIP prefers the explicit payload value, then proxy headers, then the
// socket address.
func clientIP(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
