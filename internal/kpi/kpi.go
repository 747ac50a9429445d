// Package kpi computes portfolio health indicators over the decision-event
// window plus transaction and chargeback aggregates.
package kpi

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/fraudshield/internal/audit"
	"github.com/mbd888/fraudshield/internal/decision"
	"github.com/mbd888/fraudshield/internal/enrichment"
)

// Report is a KPI snapshot for one lookback window. Rates are fractions in
// [0, 1]; with zero events in the window every rate is 0.0, never NaN.
type Report struct {
	WindowDays       int     `json:"window_days"`
	TotalEvents      int     `json:"total_events"`
	DeclineRate      float64 `json:"decline_rate"`
	ChallengeRate    float64 `json:"challenge_rate"`
	AllowRate        float64 `json:"allow_rate"`
	TotalVolume      float64 `json:"total_volume"`
	ChargebackAmount float64 `json:"chargeback_amount"`
	LossRateProxy    float64 `json:"loss_rate_proxy"`
}

// Aggregator reads the transaction-volume and chargeback aggregates the
// report needs. The enrichment stores satisfy it.
type Aggregator interface {
	TransactionVolume(ctx context.Context, since time.Time) (float64, error)
	ChargebackTotal(ctx context.Context) (float64, error)
}

var _ Aggregator = (*enrichment.MemoryStore)(nil)
var _ Aggregator = (*enrichment.PostgresStore)(nil)

// Service computes KPI reports.
type Service struct {
	events audit.EventStore
	aggs   Aggregator
}

// NewService creates a KPI service over the event store and aggregates.
func NewService(events audit.EventStore, aggs Aggregator) *Service {
	return &Service{events: events, aggs: aggs}
}

// Compute builds the KPI report for the last windowDays days.
func (s *Service) Compute(ctx context.Context, windowDays int) (*Report, error) {
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	events, err := s.events.ListWindow(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list decision events: %w", err)
	}

	volume, err := s.aggs.TransactionVolume(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute transaction volume: %w", err)
	}
	chargebacks, err := s.aggs.ChargebackTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute chargeback total: %w", err)
	}

	r := &Report{
		WindowDays:       windowDays,
		TotalEvents:      len(events),
		TotalVolume:      volume,
		ChargebackAmount: chargebacks,
	}

	if len(events) > 0 {
		var denies, challenges, allows int
		for _, e := range events {
			switch e.Decision {
			case decision.Deny:
				denies++
			case decision.Challenge:
				challenges++
			case decision.Allow:
				allows++
			}
		}
		n := float64(len(events))
		r.DeclineRate = float64(denies) / n
		r.ChallengeRate = float64(challenges) / n
		r.AllowRate = float64(allows) / n
	}

	if volume > 0 {
		r.LossRateProxy = chargebacks / volume
	}

	return r, nil
}
