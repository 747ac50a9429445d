package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore is a PostgreSQL-backed EventStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an event store backed by the given database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the decision_events table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decision_events (
			event_id      TEXT PRIMARY KEY,
			trans_id      TEXT NOT NULL,
			decision      TEXT NOT NULL,
			risk_score    DOUBLE PRECISION NOT NULL,
			model_version TEXT NOT NULL,
			ts            TIMESTAMPTZ NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_decision_events_trans_id ON decision_events(trans_id);
		CREATE INDEX IF NOT EXISTS idx_decision_events_ts ON decision_events(ts DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate decision_events: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, e *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_events (event_id, trans_id, decision, risk_score, model_version, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.EventID, e.TransID, e.Decision, e.RiskScore, e.ModelVersion, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert decision event: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTransID(ctx context.Context, transID string) (*Event, error) {
	var e Event
	err := s.db.QueryRowContext(ctx, `
		SELECT event_id, trans_id, decision, risk_score, model_version, ts
		FROM decision_events
		WHERE trans_id = $1
		ORDER BY ts DESC
		LIMIT 1
	`, transID).Scan(&e.EventID, &e.TransID, &e.Decision, &e.RiskScore, &e.ModelVersion, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision event: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListWindow(ctx context.Context, since time.Time) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, trans_id, decision, risk_score, model_version, ts
		FROM decision_events
		WHERE ts >= $1
		ORDER BY ts DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list decision events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.EventID, &e.TransID, &e.Decision, &e.RiskScore, &e.ModelVersion, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan decision event: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decision events: %w", err)
	}
	return out, nil
}
