package fraudshield

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDecide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/decision" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "k-123" {
			t.Errorf("X-API-Key = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["transaction_id"] != "TX-999" {
			t.Errorf("transaction_id = %q", body["transaction_id"])
		}
		_ = json.NewEncoder(w).Encode(DecisionPacket{
			TransactionID: "TX-999",
			Decision:      Challenge,
			RiskScore:     0.61,
			RuleHits:      []string{"RULE_PROXY_SIGNAL"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAPIKey("k-123"))
	packet, err := c.Decide(context.Background(), "TX-999")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if packet.Decision != Challenge || packet.RiskScore != 0.61 {
		t.Errorf("got %+v", packet)
	}
}

func TestDecideNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "transaction_not_found",
			"message": "No transaction with id TX-404",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Decide(context.Background(), "TX-404")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if !apiErr.IsNotFound() || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("got %+v", apiErr)
	}
}

func TestInvestigateUnavailableCarriesPacket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "investigation_unavailable",
			"message": "Investigation capability is not enabled on this deployment",
			"decision_packet": DecisionPacket{
				TransactionID: "TX-999",
				Decision:      Challenge,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Investigate(context.Background(), "TX-999")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !apiErr.IsUnavailable() {
		t.Errorf("IsUnavailable = false for %q", apiErr.Code)
	}
	if apiErr.Packet == nil || apiErr.Packet.Decision != Challenge {
		t.Error("expected decision packet on unavailable error")
	}
}

func TestKPIsWindowQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("window_days"); got != "7" {
			t.Errorf("window_days = %q", got)
		}
		_ = json.NewEncoder(w).Encode(KPIReport{WindowDays: 7, TotalEvents: 3})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	report, err := c.KPIs(context.Background(), 7)
	if err != nil {
		t.Fatalf("KPIs: %v", err)
	}
	if report.TotalEvents != 3 {
		t.Errorf("got %+v", report)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Decide(context.Background(), "TX-1")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Code != "http_error" || apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("got %+v", apiErr)
	}
}
