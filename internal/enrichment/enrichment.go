// Package enrichment provides key-based lookups over the fraud data estate.
//
// Every entity (transaction, user, IP intel, KYC, disputes) has an explicit
// record type and a found/not-found outcome, so downstream code never
// misreads a missing record as a zero value. User PII is redacted at this
// boundary unless the include-PII flag is set.
package enrichment

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Transaction is an immutable payment transaction record.
type Transaction struct {
	TransID      string    `json:"transId"`
	UserID       string    `json:"userId"`
	Amount       float64   `json:"amount"`
	Merchant     string    `json:"merchant"`
	DeviceIP     string    `json:"deviceIp"`
	ShippingAddr string    `json:"shippingAddr"`
	BillingAddr  string    `json:"billingAddr"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserProfile is the account-level view of a customer.
// Name and Email may be redacted depending on gateway configuration.
type UserProfile struct {
	UserID         string `json:"userId"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	HomeIP         string `json:"homeIp"`
	AccountAgeDays int    `json:"accountAgeDays"`
	VIPStatus      string `json:"vipStatus"`
	Country        string `json:"country"`
}

// Velocity holds trailing-window transaction counts for a user.
type Velocity struct {
	TxnCount1h  int `json:"txnCount1h"`
	TxnCount24h int `json:"txnCount24h"`
}

// UserHistory bundles velocity counts with the most recent transactions.
type UserHistory struct {
	UserID           string        `json:"userId"`
	Velocity         Velocity      `json:"velocity"`
	LastTransactions []Transaction `json:"lastTransactions"`
}

// IPIntel is third-party reputation data for an IP address.
type IPIntel struct {
	IPAddress       string `json:"ipAddress"`
	ReputationScore int    `json:"reputationScore"`
	ISP             string `json:"isp"`
	IsProxy         bool   `json:"isProxy"`
}

// KYCStatus is the latest know-your-customer verification event for a user.
type KYCStatus struct {
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Level     string    `json:"level"`
	EventTime time.Time `json:"eventTime"`
}

// DisputeSummary is the user-level dispute snapshot.
type DisputeSummary struct {
	UserID          string     `json:"userId"`
	DisputeCount90d int        `json:"disputeCount90d"`
	LossAmount90d   float64    `json:"lossAmount90d"`
	LastDisputeDate *time.Time `json:"lastDisputeDate,omitempty"`
}

// Chargeback is a confirmed-loss label on a transaction.
type Chargeback struct {
	TransID        string     `json:"transId"`
	Amount         float64    `json:"amount"`
	ReasonCode     string     `json:"reasonCode,omitempty"`
	ChargebackDate *time.Time `json:"chargebackDate,omitempty"`
}

// SimilarCase is a nearest-neighbour match for operator triage.
type SimilarCase struct {
	TransID  string  `json:"transId"`
	Distance float64 `json:"distance"`
	Reason   string  `json:"reason"`
}

// Store persists and queries enrichment records.
type Store interface {
	GetTransaction(ctx context.Context, transID string) (*Transaction, error)
	GetUser(ctx context.Context, userID string) (*UserProfile, error)
	GetUserHistory(ctx context.Context, userID string) (*UserHistory, error)
	GetIPIntel(ctx context.Context, ip string) (*IPIntel, error)
	GetLatestKYC(ctx context.Context, userID string) (*KYCStatus, error)
	GetDisputes(ctx context.Context, userID string) (*DisputeSummary, error)

	// KPI support
	TransactionVolume(ctx context.Context, since time.Time) (float64, error)
	ChargebackTotal(ctx context.Context) (float64, error)

	// Seeding / ingestion
	PutTransaction(ctx context.Context, t *Transaction) error
	PutUser(ctx context.Context, u *UserProfile) error
	PutIPIntel(ctx context.Context, i *IPIntel) error
	PutKYC(ctx context.Context, k *KYCStatus) error
	PutDisputes(ctx context.Context, d *DisputeSummary) error
	PutChargeback(ctx context.Context, c *Chargeback) error
}

// Gateway wraps a Store and enforces the PII redaction policy.
type Gateway struct {
	store      Store
	includePII bool
}

// NewGateway creates an enrichment gateway. When includePII is false
// (the default posture), user name and email are redacted on the way out.
func NewGateway(store Store, includePII bool) *Gateway {
	return &Gateway{store: store, includePII: includePII}
}

// Transaction looks up a transaction by id.
func (g *Gateway) Transaction(ctx context.Context, transID string) (*Transaction, error) {
	return g.store.GetTransaction(ctx, transID)
}

// User looks up a user profile, redacting PII unless configured otherwise.
func (g *Gateway) User(ctx context.Context, userID string) (*UserProfile, error) {
	u, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if g.includePII {
		return u, nil
	}
	redacted := *u
	redacted.Name = ""
	redacted.Email = MaskEmail(u.Email)
	return &redacted, nil
}

// UserHistory returns velocity counts and recent transactions for a user.
func (g *Gateway) UserHistory(ctx context.Context, userID string) (*UserHistory, error) {
	return g.store.GetUserHistory(ctx, userID)
}

// IPIntel looks up reputation data for an IP address.
func (g *Gateway) IPIntel(ctx context.Context, ip string) (*IPIntel, error) {
	return g.store.GetIPIntel(ctx, ip)
}

// KYC returns the latest KYC event for a user.
func (g *Gateway) KYC(ctx context.Context, userID string) (*KYCStatus, error) {
	return g.store.GetLatestKYC(ctx, userID)
}

// Disputes returns the dispute snapshot for a user.
func (g *Gateway) Disputes(ctx context.Context, userID string) (*DisputeSummary, error) {
	return g.store.GetDisputes(ctx, userID)
}

// SimilarCases is a placeholder for a kNN/ANN based similarity search.
func (g *Gateway) SimilarCases(transID string) []SimilarCase {
	return []SimilarCase{
		{TransID: "TX-888", Distance: 0.24, Reason: "Device reuse + velocity spike"},
		{TransID: "TX-777", Distance: 0.31, Reason: "Proxy IP + high amount"},
	}
}

// Store exposes the underlying store for KPI queries and seeding.
func (g *Gateway) Store() Store {
	return g.store
}

// MaskEmail redacts the local part of an email address, keeping the first
// character (and last, for longer locals) plus the domain.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	local, domain := email[:at], email[at+1:]
	var masked string
	if len(local) <= 2 {
		masked = local[:1] + "*"
	} else {
		masked = local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:]
	}
	return masked + "@" + domain
}
