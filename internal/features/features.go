// Package features derives the flat, typed feature set consumed by scoring
// and policy rules.
//
// Feature derivation is deterministic and tolerant of partial data: a missing
// user-history or IP-intel record defaults its derived features to zero/false.
// Only a wholly missing transaction fails the build.
package features

import (
	"context"
	"strings"

	"github.com/mbd888/fraudshield/internal/enrichment"
)

// FeatureSet is the flat feature mapping for one transaction.
// Every field is always present; absent upstream data yields zero values.
type FeatureSet struct {
	TransID string `json:"trans_id"`
	UserID  string `json:"user_id"`

	Amount         float64 `json:"amount"`
	Merchant       string  `json:"merchant"`
	DeviceIP       string  `json:"device_ip"`
	AccountAgeDays int     `json:"account_age_days"`
	VIPStatus      string  `json:"vip_status"`
	Country        string  `json:"country"`

	TxnCount1h  int `json:"txn_count_1h"`
	TxnCount24h int `json:"txn_count_24h"`

	IPReputationScore int  `json:"ip_reputation_score"`
	IPIsProxy         bool `json:"ip_is_proxy"`

	ShippingIsFreightForwarder bool `json:"shipping_is_freight_forwarder"`
	ShipBillMismatch           bool `json:"ship_bill_mismatch"`
	DeviceIPMismatch           bool `json:"device_ip_mismatch"`
}

// Builder turns enrichment records into feature sets.
type Builder struct {
	gateway *enrichment.Gateway
}

// NewBuilder creates a feature builder over the enrichment gateway.
func NewBuilder(gateway *enrichment.Gateway) *Builder {
	return &Builder{gateway: gateway}
}

// Build looks up the transaction and joins user, history, and IP intel into
// a feature set. Returns enrichment.ErrNotFound only when the transaction
// itself is unknown; missing sub-lookups degrade to default features.
func (b *Builder) Build(ctx context.Context, transID string) (*FeatureSet, error) {
	t, err := b.gateway.Transaction(ctx, transID)
	if err != nil {
		return nil, err
	}

	fs := &FeatureSet{
		TransID:  transID,
		UserID:   t.UserID,
		Amount:   t.Amount,
		Merchant: t.Merchant,
		DeviceIP: t.DeviceIP,
	}

	// User profile drives account age, VIP tier, country, and home IP.
	// PII fields are never read here.
	var homeIP string
	if u, err := b.gateway.User(ctx, t.UserID); err == nil {
		fs.AccountAgeDays = u.AccountAgeDays
		fs.VIPStatus = u.VIPStatus
		fs.Country = u.Country
		homeIP = u.HomeIP
	}

	if hist, err := b.gateway.UserHistory(ctx, t.UserID); err == nil {
		fs.TxnCount1h = hist.Velocity.TxnCount1h
		fs.TxnCount24h = hist.Velocity.TxnCount24h
	}

	if intel, err := b.gateway.IPIntel(ctx, t.DeviceIP); err == nil {
		fs.IPReputationScore = intel.ReputationScore
		fs.IPIsProxy = intel.IsProxy
	}

	shipping := strings.ToLower(strings.TrimSpace(t.ShippingAddr))
	billing := strings.ToLower(strings.TrimSpace(t.BillingAddr))

	fs.ShippingIsFreightForwarder = strings.Contains(shipping, "freight forwarder") ||
		strings.Contains(shipping, "forwarder")
	fs.ShipBillMismatch = shipping != "" && billing != "" && shipping != billing
	fs.DeviceIPMismatch = homeIP != "" && t.DeviceIP != "" && homeIP != t.DeviceIP

	return fs, nil
}
