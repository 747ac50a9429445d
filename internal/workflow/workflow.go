// Package workflow composes the decision pipeline: enrichment, feature
// derivation, scoring, policy, and audit recording, plus the optional
// investigation path and the redacted case bundle.
//
// Each call runs the full pipeline independently; duplicate concurrent
// requests for the same transaction are not coalesced, and each produces
// its own audit event.
package workflow

import (
	"context"
	"fmt"

	"github.com/mbd888/fraudshield/internal/audit"
	"github.com/mbd888/fraudshield/internal/decision"
	"github.com/mbd888/fraudshield/internal/enrichment"
	"github.com/mbd888/fraudshield/internal/features"
	"github.com/mbd888/fraudshield/internal/investigation"
	"github.com/mbd888/fraudshield/internal/logging"
	"github.com/mbd888/fraudshield/internal/metrics"
	"github.com/mbd888/fraudshield/internal/scoring"
)

// DecisionPacket is the response contract for one decision call.
type DecisionPacket struct {
	TransactionID   string   `json:"transaction_id"`
	ModelVersion    string   `json:"model_version"`
	RiskScore       float64  `json:"risk_score"`
	Decision        string   `json:"decision"`
	ReasonCodes     []string `json:"reason_codes"`
	RuleHits        []string `json:"rule_hits"`
	DecisionEventID string   `json:"decision_event_id"`
	AuditLogPath    string   `json:"audit_log_path"`
}

// CaseBundle is the redacted operator view of one transaction.
type CaseBundle struct {
	Transaction  *enrichment.Transaction    `json:"transaction"`
	UserHistory  *enrichment.UserHistory    `json:"user_history,omitempty"`
	IPIntel      *enrichment.IPIntel        `json:"ip_intel,omitempty"`
	KYC          *enrichment.KYCStatus      `json:"kyc,omitempty"`
	Disputes     *enrichment.DisputeSummary `json:"disputes,omitempty"`
	SimilarCases []enrichment.SimilarCase   `json:"similar_cases"`
}

// Broadcaster publishes finalized decision events to live subscribers.
// The realtime hub satisfies it; a nil broadcaster disables publishing.
type Broadcaster interface {
	Broadcast(v any)
}

// Service is the decision pipeline.
type Service struct {
	gateway      *enrichment.Gateway
	builder      *features.Builder
	scorer       *scoring.Scorer
	recorder     *audit.Recorder
	investigator *investigation.Service // nil when the capability is disabled
	hub          Broadcaster            // nil when realtime is disabled
}

// NewService wires the pipeline. investigator and hub may be nil.
func NewService(
	gateway *enrichment.Gateway,
	builder *features.Builder,
	scorer *scoring.Scorer,
	recorder *audit.Recorder,
	investigator *investigation.Service,
	hub Broadcaster,
) *Service {
	return &Service{
		gateway:      gateway,
		builder:      builder,
		scorer:       scorer,
		recorder:     recorder,
		investigator: investigator,
		hub:          hub,
	}
}

// Decide runs the full pipeline for one transaction. The packet is only
// returned after the audit trail is durably written; an audit failure aborts
// the call. Unknown transactions surface enrichment.ErrNotFound.
func (s *Service) Decide(ctx context.Context, transID string) (*DecisionPacket, error) {
	fs, err := s.builder.Build(ctx, transID)
	if err != nil {
		return nil, fmt.Errorf("failed to build features for %s: %w", transID, err)
	}

	score := s.scorer.Score(ctx, fs)
	rec := decision.Decide(fs, score)

	event, err := s.recorder.Record(ctx, &audit.RecordInput{
		TransID:      transID,
		Decision:     rec.Decision,
		RiskScore:    score.RiskScore,
		ModelVersion: score.ModelVersion,
		ReasonCodes:  rec.ReasonCodes,
		RuleHits:     rec.RuleHits,
	})
	if err != nil {
		return nil, err
	}

	metrics.DecisionsTotal.WithLabelValues(rec.Decision).Inc()
	metrics.RiskScores.Observe(score.RiskScore)

	logging.L(ctx).Info("decision finalized",
		"trans_id", transID,
		"decision", rec.Decision,
		"risk_score", score.RiskScore,
		"model_version", score.ModelVersion,
		"event_id", event.EventID,
	)

	packet := &DecisionPacket{
		TransactionID:   transID,
		ModelVersion:    score.ModelVersion,
		RiskScore:       score.RiskScore,
		Decision:        rec.Decision,
		ReasonCodes:     rec.ReasonCodes,
		RuleHits:        rec.RuleHits,
		DecisionEventID: event.EventID,
		AuditLogPath:    s.recorder.LogPath(),
	}

	// Post-commit only: the live feed never gates or delays the decision.
	if s.hub != nil {
		s.hub.Broadcast(packet)
	}

	return packet, nil
}

// Investigate finalizes a decision, then runs the agent pipeline over it.
// The decision packet is returned even when the investigation phase fails
// with ErrUnavailable or ErrMissingCredential, so callers can surface the
// decision alongside the typed error. A nil packet means the decision
// itself failed.
func (s *Service) Investigate(ctx context.Context, transID string) (*DecisionPacket, *investigation.Result, error) {
	packet, err := s.Decide(ctx, transID)
	if err != nil {
		return nil, nil, err
	}

	if s.investigator == nil {
		return packet, nil, investigation.ErrUnavailable
	}

	res, err := s.investigator.Run(ctx, transID, packet)
	if err != nil {
		return packet, nil, err
	}
	return packet, res, nil
}

// Case assembles the redacted operator bundle for a transaction. Missing
// sub-records are omitted; only a missing transaction is an error.
func (s *Service) Case(ctx context.Context, transID string) (*CaseBundle, error) {
	t, err := s.gateway.Transaction(ctx, transID)
	if err != nil {
		return nil, err
	}

	bundle := &CaseBundle{
		Transaction:  t,
		SimilarCases: s.gateway.SimilarCases(transID),
	}
	if h, err := s.gateway.UserHistory(ctx, t.UserID); err == nil {
		bundle.UserHistory = h
	}
	if intel, err := s.gateway.IPIntel(ctx, t.DeviceIP); err == nil {
		bundle.IPIntel = intel
	}
	if kyc, err := s.gateway.KYC(ctx, t.UserID); err == nil {
		bundle.KYC = kyc
	}
	if d, err := s.gateway.Disputes(ctx, t.UserID); err == nil {
		bundle.Disputes = d
	}
	return bundle, nil
}
