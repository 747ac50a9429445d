package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/fraudshield/internal/idgen"
	"github.com/mbd888/fraudshield/internal/metrics"
)

// RecordInput is everything the recorder persists for one decision.
type RecordInput struct {
	TransID      string
	Decision     string
	RiskScore    float64
	ModelVersion string
	ReasonCodes  []string
	RuleHits     []string
	Extra        map[string]any
}

// Recorder writes the two-part audit trail for each decision.
type Recorder struct {
	store EventStore
	log   *Log
}

// NewRecorder creates a recorder over an event store and JSONL log.
func NewRecorder(store EventStore, log *Log) *Recorder {
	return &Recorder{store: store, log: log}
}

// LogPath returns the JSONL log path the recorder appends to.
func (r *Recorder) LogPath() string {
	return r.log.Path()
}

// Record persists one decision: the event row first, the JSONL line second.
// A failure of either write returns an error so the caller can abort the
// decision rather than hand back an unaudited outcome.
func (r *Recorder) Record(ctx context.Context, in *RecordInput) (*Event, error) {
	e := &Event{
		EventID:      idgen.WithPrefix("evt_"),
		TransID:      in.TransID,
		Decision:     in.Decision,
		RiskScore:    in.RiskScore,
		ModelVersion: in.ModelVersion,
		Timestamp:    time.Now().UTC(),
	}

	if err := r.store.Insert(ctx, e); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		return nil, fmt.Errorf("failed to persist decision event: %w", err)
	}

	entry := &Entry{
		TsUTC:         e.Timestamp.Format(time.RFC3339Nano),
		TransactionID: in.TransID,
		Decision:      in.Decision,
		RiskScore:     in.RiskScore,
		ModelVersion:  in.ModelVersion,
		ReasonCodes:   in.ReasonCodes,
		RuleHits:      in.RuleHits,
		Extra:         in.Extra,
	}
	if err := r.log.Append(entry); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		return nil, fmt.Errorf("failed to append audit log: %w", err)
	}

	return e, nil
}
