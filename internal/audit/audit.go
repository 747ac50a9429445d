// Package audit persists the decision trail: a structured decision-event
// store plus an append-only JSONL log.
//
// The recorder writes the event row first and the log line second; if either
// write fails the decision call is aborted, so a decision is never returned
// to a caller without a durable audit trail. Audit payloads carry no PII.
package audit

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a decision event does not exist.
var ErrNotFound = errors.New("decision event not found")

// Event is one persisted decision event.
type Event struct {
	EventID      string    `json:"event_id"`
	TransID      string    `json:"trans_id"`
	Decision     string    `json:"decision"`
	RiskScore    float64   `json:"risk_score"`
	ModelVersion string    `json:"model_version"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventStore persists and queries decision events.
type EventStore interface {
	Insert(ctx context.Context, e *Event) error
	GetByTransID(ctx context.Context, transID string) (*Event, error)
	// ListWindow returns events with Timestamp >= since, newest first.
	ListWindow(ctx context.Context, since time.Time) ([]*Event, error)
}

// Entry is one JSONL audit-log line. Extra carries free-form context
// (reviewed for PII by the caller); it is omitted when empty.
type Entry struct {
	TsUTC         string         `json:"ts_utc"`
	TransactionID string         `json:"transaction_id"`
	Decision      string         `json:"decision"`
	RiskScore     float64        `json:"risk_score"`
	ModelVersion  string         `json:"model_version"`
	ReasonCodes   []string       `json:"reason_codes"`
	RuleHits      []string       `json:"rule_hits"`
	Extra         map[string]any `json:"extra,omitempty"`
}
