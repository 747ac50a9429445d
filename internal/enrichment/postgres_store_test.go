//go:build integration

package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbd888/fraudshield/internal/testutil"
)

func setupPostgres(t *testing.T) (*PostgresStore, func()) {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	return NewPostgresStore(db), cleanup
}

func TestPostgresUserRoundTrip(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	u := &UserProfile{
		UserID: "U105", Name: "Alice Smith", Email: "alice@example.com",
		HomeIP: "192.168.1.50", AccountAgeDays: 1400, VIPStatus: "Platinum", Country: "US",
	}
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	got, err := store.GetUser(ctx, "U105")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != u.Name || got.AccountAgeDays != 1400 || got.HomeIP != u.HomeIP {
		t.Errorf("got %+v, want %+v", got, u)
	}

	// Upsert overwrites
	u.VIPStatus = "Gold"
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("PutUser upsert: %v", err)
	}
	got, _ = store.GetUser(ctx, "U105")
	if got.VIPStatus != "Gold" {
		t.Errorf("upsert did not overwrite, got %q", got.VIPStatus)
	}
}

func TestPostgresTransactionNotFound(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	_, err := store.GetTransaction(context.Background(), "TX-404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresUserHistoryVelocity(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	txns := []struct {
		id  string
		age time.Duration
	}{
		{"TX-1", 10 * time.Minute}, // within 1h and 24h
		{"TX-2", 30 * time.Minute}, // within 1h and 24h
		{"TX-3", 5 * time.Hour},    // within 24h only
		{"TX-4", 48 * time.Hour},   // outside both
	}
	for _, tx := range txns {
		if err := store.PutTransaction(ctx, &Transaction{
			TransID: tx.id, UserID: "U105", Amount: 100,
			Merchant: "BestBuy", Timestamp: now.Add(-tx.age),
		}); err != nil {
			t.Fatalf("PutTransaction %s: %v", tx.id, err)
		}
	}

	hist, err := store.GetUserHistory(ctx, "U105")
	if err != nil {
		t.Fatalf("GetUserHistory: %v", err)
	}
	if hist.Velocity.TxnCount1h != 2 {
		t.Errorf("TxnCount1h = %d, want 2", hist.Velocity.TxnCount1h)
	}
	if hist.Velocity.TxnCount24h != 3 {
		t.Errorf("TxnCount24h = %d, want 3", hist.Velocity.TxnCount24h)
	}
	if len(hist.LastTransactions) == 0 {
		t.Error("expected recent transactions in history")
	}
	// Newest first
	if hist.LastTransactions[0].TransID != "TX-1" {
		t.Errorf("first transaction = %s, want TX-1", hist.LastTransactions[0].TransID)
	}
}

func TestPostgresLatestKYCWins(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := store.PutKYC(ctx, &KYCStatus{UserID: "U105", Status: "PENDING", Level: "L1", EventTime: older}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutKYC(ctx, &KYCStatus{UserID: "U105", Status: "VERIFIED", Level: "L2", EventTime: newer}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetLatestKYC(ctx, "U105")
	if err != nil {
		t.Fatalf("GetLatestKYC: %v", err)
	}
	if got.Status != "VERIFIED" || got.Level != "L2" {
		t.Errorf("got %+v, want latest VERIFIED/L2 event", got)
	}
}

func TestPostgresIPIntelAndDisputes(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.PutIPIntel(ctx, &IPIntel{
		IPAddress: "45.22.19.11", ReputationScore: 95, ISP: "Hostinger", IsProxy: true,
	}); err != nil {
		t.Fatal(err)
	}
	intel, err := store.GetIPIntel(ctx, "45.22.19.11")
	if err != nil {
		t.Fatalf("GetIPIntel: %v", err)
	}
	if !intel.IsProxy || intel.ReputationScore != 95 {
		t.Errorf("got %+v", intel)
	}

	lastDispute := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.PutDisputes(ctx, &DisputeSummary{
		UserID: "U105", DisputeCount90d: 2, LossAmount90d: 150.50, LastDisputeDate: &lastDispute,
	}); err != nil {
		t.Fatal(err)
	}
	d, err := store.GetDisputes(ctx, "U105")
	if err != nil {
		t.Fatalf("GetDisputes: %v", err)
	}
	if d.DisputeCount90d != 2 || d.LossAmount90d != 150.50 {
		t.Errorf("got %+v", d)
	}
	if d.LastDisputeDate == nil {
		t.Error("expected last dispute date")
	}
}

func TestPostgresKPIAggregates(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, tx := range []Transaction{
		{TransID: "TX-10", UserID: "U1", Amount: 1000, Timestamp: now.Add(-time.Hour)},
		{TransID: "TX-11", UserID: "U2", Amount: 2500, Timestamp: now.Add(-2 * time.Hour)},
		{TransID: "TX-12", UserID: "U3", Amount: 9000, Timestamp: now.Add(-60 * 24 * time.Hour)}, // outside window
	} {
		if err := store.PutTransaction(ctx, &tx); err != nil {
			t.Fatal(err)
		}
	}

	volume, err := store.TransactionVolume(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("TransactionVolume: %v", err)
	}
	if volume != 3500 {
		t.Errorf("volume = %v, want 3500", volume)
	}

	cbDate := now.AddDate(0, 0, -5)
	if err := store.PutChargeback(ctx, &Chargeback{
		TransID: "TX-10", Amount: 250, ReasonCode: "10.4", ChargebackDate: &cbDate,
	}); err != nil {
		t.Fatal(err)
	}
	// Placeholder without a date must not count as a realized loss.
	if err := store.PutChargeback(ctx, &Chargeback{TransID: "TX-11", Amount: 999}); err != nil {
		t.Fatal(err)
	}

	total, err := store.ChargebackTotal(ctx)
	if err != nil {
		t.Fatalf("ChargebackTotal: %v", err)
	}
	if total != 250 {
		t.Errorf("chargeback total = %v, want 250", total)
	}
}
