// Package decision applies the policy layer: hard rules plus score
// thresholds, producing a final ALLOW/CHALLENGE/DENY outcome.
//
// Decide is a pure function of its inputs. Identical features and score
// always produce an identical record, including ordering of rule hits and
// reason codes, so audit rows are reproducible byte-for-byte.
package decision

import (
	"sort"

	"github.com/mbd888/fraudshield/internal/features"
	"github.com/mbd888/fraudshield/internal/scoring"
)

// Decision outcomes.
const (
	Allow     = "ALLOW"
	Challenge = "CHALLENGE"
	Deny      = "DENY"
)

// Score thresholds. At or above DenyThreshold the outcome is DENY;
// at or above ChallengeThreshold (or on any rule hit) it is CHALLENGE.
const (
	DenyThreshold      = 0.90
	ChallengeThreshold = 0.70
)

// Rule identifiers recorded on a hit.
const (
	RuleProxySignal            = "RULE_PROXY_SIGNAL"
	RuleFreightForwarderSignal = "RULE_FREIGHT_FORWARDER_SIGNAL"
	RuleShipBillMismatch       = "RULE_SHIP_BILL_MISMATCH"
)

// Reason codes added by the policy layer (scorer reasons are merged in).
const (
	ReasonProxy        = "RC014_IP_DATACENTER_PROXY"
	ReasonFreightFwd   = "RC031_FREIGHT_FORWARDER"
	ReasonShipBill     = "RC041_SHIP_BILL_MISMATCH"
	ReasonMLHighRisk   = "RC_ML_HIGH_RISK"
	ReasonMLMediumRisk = "RC_ML_MEDIUM_HIGH_RISK"
)

// Record is the policy outcome for one transaction.
// RuleHits and ReasonCodes are deduplicated and sorted ascending.
type Record struct {
	Decision    string   `json:"decision"`
	RuleHits    []string `json:"rule_hits"`
	ReasonCodes []string `json:"reason_codes"`
}

// Decide evaluates hard rules and score thresholds over a feature set and
// its scoring result.
func Decide(fs *features.FeatureSet, score *scoring.Result) *Record {
	var hits []string
	reasons := append([]string(nil), score.TopReasonCodes...)

	if fs.IPIsProxy {
		hits = append(hits, RuleProxySignal)
		reasons = append(reasons, ReasonProxy)
	}
	if fs.ShippingIsFreightForwarder {
		hits = append(hits, RuleFreightForwarderSignal)
		reasons = append(reasons, ReasonFreightFwd)
	}
	if fs.ShipBillMismatch {
		hits = append(hits, RuleShipBillMismatch)
		reasons = append(reasons, ReasonShipBill)
	}

	var outcome string
	switch {
	case score.RiskScore >= DenyThreshold:
		outcome = Deny
		reasons = append(reasons, ReasonMLHighRisk)
	case score.RiskScore >= ChallengeThreshold:
		outcome = Challenge
		reasons = append(reasons, ReasonMLMediumRisk)
	case len(hits) > 0:
		outcome = Challenge
	default:
		outcome = Allow
	}

	return &Record{
		Decision:    outcome,
		RuleHits:    dedupSorted(hits),
		ReasonCodes: dedupSorted(reasons),
	}
}

// dedupSorted returns a sorted copy with duplicates removed. Never nil:
// an empty input yields an empty (marshals as []) slice.
func dedupSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
