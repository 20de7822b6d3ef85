package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Store persists audit events to Postgres for queryable history. The table
// is insert-only; nothing in this package updates or deletes rows.
type Store struct {
	db      *sql.DB
	service string
}

// NewStore connects, applies the schema, and returns a store. An empty dbURL
// yields nil: persistence not configured, the JSONL ledger still runs.
func NewStore(service, dbURL string) (*Store, error) {
	if dbURL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, service: service}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		service VARCHAR(255) NOT NULL,
		request_id VARCHAR(255) NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		data JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_request_id ON audit_events(request_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);`

	_, err := s.db.Exec(query)
	return err
}

// Insert writes one event row.
func (s *Store) Insert(ctx context.Context, requestID, eventType string, data map[string]any) error {
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode audit data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, service, request_id, event_type, data) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), s.service, requestID, eventType, payload,
	)
	return err
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
