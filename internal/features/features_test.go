package features

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbd888/fraudshield/internal/enrichment"
)

func newGateway(t *testing.T) (*enrichment.Gateway, *enrichment.MemoryStore) {
	t.Helper()
	store := enrichment.NewMemoryStore()
	return enrichment.NewGateway(store, false), store
}

func TestBuild_UnknownTransaction(t *testing.T) {
	gw, _ := newGateway(t)
	b := NewBuilder(gw)

	_, err := b.Build(context.Background(), "TX-404")
	if !errors.Is(err, enrichment.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBuild_FullJoin(t *testing.T) {
	ctx := context.Background()
	gw, store := newGateway(t)

	if err := store.PutUser(ctx, &enrichment.UserProfile{
		UserID: "U105", Name: "Alice Smith", Email: "alice@ex.com",
		HomeIP: "192.168.1.50", AccountAgeDays: 1400, VIPStatus: "Platinum", Country: "US",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutTransaction(ctx, &enrichment.Transaction{
		TransID: "TX-999", UserID: "U105", Amount: 2800, Merchant: "BestBuy",
		DeviceIP: "45.22.19.11", ShippingAddr: "Freight Forwarder, DE",
		BillingAddr: "Alice Smith, US", Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutIPIntel(ctx, &enrichment.IPIntel{
		IPAddress: "45.22.19.11", ReputationScore: 95, ISP: "Hostinger", IsProxy: true,
	}); err != nil {
		t.Fatal(err)
	}

	fs, err := NewBuilder(gw).Build(ctx, "TX-999")
	if err != nil {
		t.Fatal(err)
	}

	if fs.UserID != "U105" || fs.Amount != 2800 || fs.Merchant != "BestBuy" {
		t.Errorf("transaction features = %+v", fs)
	}
	if fs.AccountAgeDays != 1400 || fs.VIPStatus != "Platinum" || fs.Country != "US" {
		t.Errorf("user features = %+v", fs)
	}
	if fs.TxnCount1h != 1 {
		t.Errorf("txn_count_1h = %d, want 1", fs.TxnCount1h)
	}
	if !fs.IPIsProxy || fs.IPReputationScore != 95 {
		t.Errorf("ip features = %+v", fs)
	}
	if !fs.ShippingIsFreightForwarder {
		t.Error("shipping_is_freight_forwarder = false")
	}
	if !fs.ShipBillMismatch {
		t.Error("ship_bill_mismatch = false")
	}
	if !fs.DeviceIPMismatch {
		t.Error("device_ip_mismatch = false")
	}
}

func TestBuild_MissingSubLookupsDegrade(t *testing.T) {
	ctx := context.Background()
	gw, store := newGateway(t)

	// No user, no IP intel: only the transaction exists.
	if err := store.PutTransaction(ctx, &enrichment.Transaction{
		TransID: "TX-1", UserID: "U-ghost", Amount: 50, DeviceIP: "8.8.8.8",
		Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	fs, err := NewBuilder(gw).Build(ctx, "TX-1")
	if err != nil {
		t.Fatalf("missing sub-lookups must not fail the build: %v", err)
	}
	if fs.AccountAgeDays != 0 || fs.IPIsProxy || fs.IPReputationScore != 0 {
		t.Errorf("degraded features = %+v, want zero values", fs)
	}
	// No home IP on record means no mismatch signal.
	if fs.DeviceIPMismatch {
		t.Error("device_ip_mismatch = true without a known home IP")
	}
}

func TestBuild_AddressComparison(t *testing.T) {
	tests := []struct {
		name         string
		shipping     string
		billing      string
		wantMismatch bool
		wantFF       bool
	}{
		{"identical", "12 Main St, US", "12 Main St, US", false, false},
		{"case and whitespace insensitive", "  12 Main St, US ", "12 MAIN ST, US", false, false},
		{"different", "Elm St, DE", "Main St, US", true, false},
		{"empty shipping is not a mismatch", "", "Main St, US", false, false},
		{"forwarder keyword", "Parcel Forwarder Depot, DE", "Main St, US", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gw, store := newGateway(t)
			if err := store.PutTransaction(ctx, &enrichment.Transaction{
				TransID: "TX-1", UserID: "U1", ShippingAddr: tt.shipping, BillingAddr: tt.billing,
				Timestamp: time.Now().UTC(),
			}); err != nil {
				t.Fatal(err)
			}

			fs, err := NewBuilder(gw).Build(ctx, "TX-1")
			if err != nil {
				t.Fatal(err)
			}
			if fs.ShipBillMismatch != tt.wantMismatch {
				t.Errorf("ship_bill_mismatch = %v, want %v", fs.ShipBillMismatch, tt.wantMismatch)
			}
			if fs.ShippingIsFreightForwarder != tt.wantFF {
				t.Errorf("shipping_is_freight_forwarder = %v, want %v", fs.ShippingIsFreightForwarder, tt.wantFF)
			}
		})
	}
}
