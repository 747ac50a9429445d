//go:build integration

package audit

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

func TestPostgresInsertAndGetByTransID(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := &Event{
		EventID: "evt_001", TransID: "TX-999", Decision: "CHALLENGE",
		RiskScore: 0.61, ModelVersion: "heuristic_baseline_v2", Timestamp: now.Add(-time.Hour),
	}
	second := &Event{
		EventID: "evt_002", TransID: "TX-999", Decision: "DENY",
		RiskScore: 0.93, ModelVersion: "heuristic_baseline_v2", Timestamp: now,
	}
	for _, e := range []*Event{first, second} {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s: %v", e.EventID, err)
		}
	}

	// Latest event for the transaction wins.
	got, err := store.GetByTransID(ctx, "TX-999")
	if err != nil {
		t.Fatalf("GetByTransID: %v", err)
	}
	if got.EventID != "evt_002" || got.Decision != "DENY" {
		t.Errorf("got %+v, want latest event evt_002", got)
	}
	if got.RiskScore != 0.93 {
		t.Errorf("risk score = %v, want 0.93", got.RiskScore)
	}
}

func TestPostgresGetByTransIDNotFound(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	_, err := store.GetByTransID(context.Background(), "TX-404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresListWindow(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	events := []*Event{
		{EventID: "evt_a", TransID: "TX-1", Decision: "ALLOW", RiskScore: 0.1, ModelVersion: "v", Timestamp: now.Add(-10 * 24 * time.Hour)},
		{EventID: "evt_b", TransID: "TX-2", Decision: "CHALLENGE", RiskScore: 0.7, ModelVersion: "v", Timestamp: now.Add(-time.Hour)},
		{EventID: "evt_c", TransID: "TX-3", Decision: "DENY", RiskScore: 0.95, ModelVersion: "v", Timestamp: now},
		{EventID: "evt_d", TransID: "TX-4", Decision: "ALLOW", RiskScore: 0.2, ModelVersion: "v", Timestamp: now.Add(-40 * 24 * time.Hour)},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListWindow(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (evt_d outside window)", len(got))
	}
	// Newest first
	if got[0].EventID != "evt_c" || got[1].EventID != "evt_b" || got[2].EventID != "evt_a" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].EventID, got[1].EventID, got[2].EventID)
	}
}

func TestPostgresDuplicateEventIDRejected(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	e := &Event{
		EventID: "evt_dup", TransID: "TX-1", Decision: "ALLOW",
		RiskScore: 0.1, ModelVersion: "v", Timestamp: time.Now().UTC(),
	}
	if err := store.Insert(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, e); err == nil {
		t.Error("expected primary-key violation on duplicate event id")
	}
}
