package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/fraudshield/internal/config"
	"github.com/mbd888/fraudshield/internal/decision"
	"github.com/mbd888/fraudshield/internal/enrichment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal in-memory config for testing
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:              "0",
		Env:               "development",
		LogLevel:          "error",
		LogsPath:          t.TempDir(),
		ReportsPath:       t.TempDir(),
		ModelRegistryPath: t.TempDir(),
		CORSAllowOrigins:  config.DefaultCORSAllowOrigins,
		RateLimitRPS:      100,
	}
}

// newTestServer creates a server with in-memory storage
func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// seedDemo loads the canonical suspicious-transaction scenario into the store.
func seedDemo(t *testing.T, s *Server) {
	t.Helper()
	ctx := context.Background()
	store := s.Gateway().Store()

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
}

func doJSON(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	s.router.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/health/live", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/health/ready", "", nil)
	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t, nil)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"POST:/decision",
		"POST:/investigate",
		"GET:/kpis",
		"GET:/case/:transId",
		"GET:/ws",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Decision endpoint
// ---------------------------------------------------------------------------

func TestDecisionEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	seedDemo(t, s)

	w := doJSON(s, "POST", "/decision", `{"transaction_id":"TX-999"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["decision"] != decision.Challenge {
		t.Errorf("Expected CHALLENGE, got %v", resp["decision"])
	}
	if resp["transaction_id"] != "TX-999" {
		t.Errorf("Expected TX-999, got %v", resp["transaction_id"])
	}
	score, _ := resp["risk_score"].(float64)
	if score <= 0 || score >= 1 {
		t.Errorf("risk_score out of range: %v", resp["risk_score"])
	}
	if id, _ := resp["decision_event_id"].(string); !strings.HasPrefix(id, "evt_") {
		t.Errorf("decision_event_id = %v", resp["decision_event_id"])
	}
}

func TestDecisionEndpointUnknownTransaction(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "POST", "/decision", `{"transaction_id":"TX-404"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "transaction_not_found" {
		t.Errorf("Expected transaction_not_found, got %v", resp["error"])
	}
}

func TestDecisionEndpointMissingBody(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "POST", "/decision", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestDecisionEndpointMalformedID(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "POST", "/decision", `{"transaction_id":"TX 999; DROP"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Investigate endpoint
// ---------------------------------------------------------------------------

func TestInvestigateDisabledReturnsConflict(t *testing.T) {
	s := newTestServer(t, nil) // InvestigationEnabled is false
	seedDemo(t, s)

	w := doJSON(s, "POST", "/investigate", `{"transaction_id":"TX-999"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["error"] != "investigation_unavailable" {
		t.Errorf("Expected investigation_unavailable, got %v", resp["error"])
	}

	// The decision was still made and must be reported.
	packet, ok := resp["decision_packet"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected decision_packet in response")
	}
	if packet["decision"] != decision.Challenge {
		t.Errorf("Expected CHALLENGE in packet, got %v", packet["decision"])
	}
}

func TestInvestigateMissingCredentialReturnsBadRequest(t *testing.T) {
	cfg := testConfig(t)
	cfg.InvestigationEnabled = true
	cfg.OpenAIBaseURL = config.DefaultOpenAIBaseURL
	cfg.OpenAIModel = "gpt-4o-mini"
	// No OpenAIAPIKey set
	s := newTestServer(t, cfg)
	seedDemo(t, s)

	w := doJSON(s, "POST", "/investigate", `{"transaction_id":"TX-999"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "missing_credential" {
		t.Errorf("Expected missing_credential, got %v", resp["error"])
	}
	if _, ok := resp["decision_packet"].(map[string]interface{}); !ok {
		t.Error("Expected decision_packet in response")
	}
}

// ---------------------------------------------------------------------------
// KPIs endpoint
// ---------------------------------------------------------------------------

func TestKPIsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	seedDemo(t, s)

	// Produce one decision so the window has an event.
	if w := doJSON(s, "POST", "/decision", `{"transaction_id":"TX-999"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("decision failed: %d", w.Code)
	}

	w := doJSON(s, "GET", "/kpis", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["total_events"] != float64(1) {
		t.Errorf("Expected 1 event, got %v", resp["total_events"])
	}
	if resp["challenge_rate"] != float64(1) {
		t.Errorf("Expected challenge_rate 1, got %v", resp["challenge_rate"])
	}
}

func TestKPIsEndpointInvalidWindow(t *testing.T) {
	s := newTestServer(t, nil)

	for _, q := range []string{"0", "-1", "366", "abc"} {
		w := doJSON(s, "GET", "/kpis?window_days="+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("window_days=%s: expected 400, got %d", q, w.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// Case endpoint
// ---------------------------------------------------------------------------

func TestCaseEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	seedDemo(t, s)

	w := doJSON(s, "GET", "/case/TX-999", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	tx, ok := resp["transaction"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected transaction in case bundle")
	}
	if tx["trans_id"] != "TX-999" {
		t.Errorf("Expected TX-999, got %v", tx["trans_id"])
	}
}

func TestCaseEndpointUnknown(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/case/TX-404", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestCaseEndpointMalformedID(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/case/TX.999", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// API key auth
// ---------------------------------------------------------------------------

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKey = "test-secret"
	s := newTestServer(t, cfg)
	seedDemo(t, s)

	// No key: rejected
	w := doJSON(s, "POST", "/decision", `{"transaction_id":"TX-999"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	// Wrong key: rejected
	w = doJSON(s, "POST", "/decision", `{"transaction_id":"TX-999"}`,
		map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	// Correct key: allowed
	w = doJSON(s, "POST", "/decision", `{"transaction_id":"TX-999"}`,
		map[string]string{"X-API-Key": "test-secret"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d: %s", w.Code, w.Body.String())
	}

	// Health is never behind the key
	w = doJSON(s, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for /health without key, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Metrics & 404
// ---------------------------------------------------------------------------

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "fraudshield_") {
		t.Error("Expected fraudshield metrics in exposition")
	}
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/nonexistent", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, "GET", "/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID response header")
	}

	w = doJSON(s, "GET", "/health", "", map[string]string{"X-Request-ID": "req-abc"})
	if got := w.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("Expected propagated request id, got %q", got)
	}
}
