// Package audit records pipeline decisions on an append-only trail: a local
// JSONL ledger that can be anchored by hash, plus an optional Postgres store
// for queryable history.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Record is one ledger entry. Data carries event-specific detail and must
// already be minimized; the ledger never masks.
type Record struct {
	Timestamp string         `json:"timestamp"`
	Service   string         `json:"service"`
	RequestID string         `json:"request_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// Ledger appends JSON lines to a single file. Appends are serialized by a
// mutex so concurrent requests never interleave partial lines.
type Ledger struct {
	mu      sync.Mutex
	file    *os.File
	service string
}

// NewLedger opens (or creates) the ledger file in append mode.
func NewLedger(service, path string) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{file: f, service: service}, nil
}

// Append writes one record. The timestamp and service name are stamped here
// so callers only provide the event itself.
func (l *Ledger) Append(requestID, eventType string, data map[string]any) error {
	if l == nil {
		return nil
	}
	rec := Record{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Service:   l.service,
		RequestID: requestID,
		Type:      eventType,
		Data:      data,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode ledger record: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.file.Write(append(line, '\n'))
	return err
}

// Anchor computes a SHA-256 over the entire ledger file. Publishing the
// anchor out of band lets an auditor detect truncation or rewrites.
func (l *Ledger) Anchor() (string, error) {
	if l == nil {
		return "", fmt.Errorf("ledger not configured")
	}
	l.mu.Lock()
	path := l.file.Name()
	l.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Close flushes and closes the underlying file.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
