// Package scoring maps a feature set to a risk score in [0, 1].
//
// A registered model is tried first; if no model is registered or the
// artifact cannot be used, scoring falls back to a fixed heuristic. Scoring
// never fails: degradation is observable only via the model_version tag
// (and a Prometheus counter), never as an error to the caller.
package scoring

import (
	"context"
	"log/slog"

	"github.com/mbd888/fraudshield/internal/features"
	"github.com/mbd888/fraudshield/internal/logging"
	"github.com/mbd888/fraudshield/internal/metrics"
)

// HeuristicVersion tags scores produced by the fallback heuristic.
const HeuristicVersion = "heuristic_baseline_v2"

// Reason codes emitted by the scorer.
const (
	ReasonProxy          = "RC014_IP_DATACENTER_PROXY"
	ReasonVelocity1hHigh = "RC003_VELOCITY_1H_HIGH"
	ReasonShipBill       = "RC041_SHIP_BILL_MISMATCH"
	ReasonFreightFwd     = "RC031_FREIGHT_FORWARDER"
	ReasonDeviceIP       = "RC022_DEVICE_IP_MISMATCH"
	ReasonHighAmount     = "RC010_HIGH_AMOUNT"
	ReasonModelScore     = "RC_ML_MODEL_SCORE_USED"
)

// maxReasonCodes bounds the reason list reported with a score.
const maxReasonCodes = 5

// Heuristic term weights.
const (
	weightAmount     = 0.35
	weightProxy      = 0.20
	weightVelocity1h = 0.15
	weightAccountAge = 0.10
	weightDeviceIP   = 0.05
	weightFreightFwd = 0.05
	weightShipBill   = 0.10
)

// Result is the outcome of scoring one feature set.
type Result struct {
	RiskScore      float64  `json:"risk_score"`
	ModelVersion   string   `json:"model_version"`
	TopReasonCodes []string `json:"top_reason_codes"`
}

// Scorer scores feature sets, preferring a registered model over the
// built-in heuristic.
type Scorer struct {
	registry *Registry
	logger   *slog.Logger
}

// NewScorer creates a scorer. A nil registry disables model scoring
// entirely (heuristic only).
func NewScorer(registry *Registry, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{registry: registry, logger: logger}
}

// Score evaluates a feature set. It never returns an error: model problems
// degrade to the heuristic.
func (s *Scorer) Score(ctx context.Context, fs *features.FeatureSet) *Result {
	if res, ok := s.tryModel(ctx, fs); ok {
		return res
	}
	return Heuristic(fs)
}

// tryModel resolves the active model pointer and scores with the artifact.
// Any failure reports (nil, false) so the caller falls through.
func (s *Scorer) tryModel(ctx context.Context, fs *features.FeatureSet) (*Result, bool) {
	if s.registry == nil {
		return nil, false
	}
	ptr, ok := s.registry.GetLatest()
	if !ok {
		return nil, false
	}

	model, err := LoadModel(ptr.ModelPath)
	if err != nil {
		metrics.ScoringFallbacksTotal.Inc()
		logging.L(ctx).Warn("model artifact unusable, falling back to heuristic",
			"model_version", ptr.ModelVersion,
			"error", err,
		)
		return nil, false
	}

	p, err := model.Predict(featureVector(fs))
	if err != nil {
		metrics.ScoringFallbacksTotal.Inc()
		logging.L(ctx).Warn("model prediction failed, falling back to heuristic",
			"model_version", ptr.ModelVersion,
			"error", err,
		)
		return nil, false
	}

	return &Result{
		RiskScore:      clamp01(p),
		ModelVersion:   ptr.ModelVersion,
		TopReasonCodes: []string{ReasonModelScore},
	}, true
}

// Heuristic is the deterministic fallback scorer: a weighted sum of
// normalized feature terms, clamped to [0, 1]. Pure function of features.
func Heuristic(fs *features.FeatureSet) *Result {
	amountTerm := min1(fs.Amount / 5000.0)
	velocityTerm := min1(float64(fs.TxnCount1h) / 10.0)
	ageTerm := 1.0 - min1(float64(fs.AccountAgeDays)/365.0)

	score := weightAmount*amountTerm +
		weightProxy*boolToFloat(fs.IPIsProxy) +
		weightVelocity1h*velocityTerm +
		weightAccountAge*ageTerm +
		weightDeviceIP*boolToFloat(fs.DeviceIPMismatch) +
		weightFreightFwd*boolToFloat(fs.ShippingIsFreightForwarder) +
		weightShipBill*boolToFloat(fs.ShipBillMismatch)

	// Fixed priority order; the list is truncated, so order matters.
	var reasons []string
	if fs.IPIsProxy {
		reasons = append(reasons, ReasonProxy)
	}
	if fs.TxnCount1h >= 5 {
		reasons = append(reasons, ReasonVelocity1hHigh)
	}
	if fs.ShipBillMismatch {
		reasons = append(reasons, ReasonShipBill)
	}
	if fs.ShippingIsFreightForwarder {
		reasons = append(reasons, ReasonFreightFwd)
	}
	if fs.DeviceIPMismatch {
		reasons = append(reasons, ReasonDeviceIP)
	}
	if fs.Amount >= 5000 {
		reasons = append(reasons, ReasonHighAmount)
	}
	if len(reasons) > maxReasonCodes {
		reasons = reasons[:maxReasonCodes]
	}

	return &Result{
		RiskScore:      clamp01(score),
		ModelVersion:   HeuristicVersion,
		TopReasonCodes: reasons,
	}
}

func clamp01(x float64) float64 {
	if x < 0.0 {
		return 0.0
	}
	if x > 1.0 {
		return 1.0
	}
	return x
}

func min1(x float64) float64 {
	if x > 1.0 {
		return 1.0
	}
	return x
}
