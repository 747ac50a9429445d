// Command seed loads the demo dataset into the database.
//
// The dataset is a single suspicious transaction: a long-standing verified
// account suddenly shipping a high-value electronics order to a freight
// forwarder abroad, placed through a datacenter proxy. Useful for exercising
// the decision and investigation endpoints end to end.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/mbd888/fraudshield/internal/enrichment"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	store := enrichment.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	if err := seed(ctx, store); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Println("Seeded demo dataset: user U105, transaction TX-999")
}

func seed(ctx context.Context, store enrichment.Store) error {
	if err := store.PutUser(ctx, &enrichment.UserProfile{
		UserID:         "U105",
		Name:           "Alice Smith",
		Email:          "alice.smith@example.com",
		HomeIP:         "192.168.1.50",
		AccountAgeDays: 1400,
		VIPStatus:      "Platinum",
		Country:        "US",
	}); err != nil {
		return err
	}

	if err := store.PutTransaction(ctx, &enrichment.Transaction{
		TransID:      "TX-999",
		UserID:       "U105",
		Amount:       2800,
		Merchant:     "BestBuy",
		DeviceIP:     "45.22.19.11",
		ShippingAddr: "Freight Forwarder, DE",
		BillingAddr:  "Alice Smith, US",
		Timestamp:    time.Now().UTC(),
	}); err != nil {
		return err
	}

	// The device IP is a known datacenter proxy; the home IP is clean.
	if err := store.PutIPIntel(ctx, &enrichment.IPIntel{
		IPAddress:       "45.22.19.11",
		ReputationScore: 95,
		ISP:             "Hostinger",
		IsProxy:         true,
	}); err != nil {
		return err
	}
	if err := store.PutIPIntel(ctx, &enrichment.IPIntel{
		IPAddress:       "192.168.1.50",
		ReputationScore: 5,
		ISP:             "Comcast",
		IsProxy:         false,
	}); err != nil {
		return err
	}

	if err := store.PutKYC(ctx, &enrichment.KYCStatus{
		UserID:    "U105",
		Status:    "VERIFIED",
		Level:     "L2",
		EventTime: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		return err
	}

	// Clean dispute history, no resolved chargebacks yet.
	if err := store.PutDisputes(ctx, &enrichment.DisputeSummary{UserID: "U105"}); err != nil {
		return err
	}
	return store.PutChargeback(ctx, &enrichment.Chargeback{
		TransID:    "TX-999",
		Amount:     0,
		ReasonCode: "",
	})
}
