// Package fraudshield implements a typed Go client for the FraudShield
// decisioning API. This is the foundation for service-to-service callers.
package fraudshield

import "fmt"

// Decision outcomes returned by the service.
const (
	Allow     = "ALLOW"
	Challenge = "CHALLENGE"
	Deny      = "DENY"
)

// DecisionPacket is the result of one decision call.
type DecisionPacket struct {
	TransactionID   string   `json:"transaction_id"`
	ModelVersion    string   `json:"model_version"`
	RiskScore       float64  `json:"risk_score"`
	Decision        string   `json:"decision"`
	ReasonCodes     []string `json:"reason_codes"`
	RuleHits        []string `json:"rule_hits"`
	DecisionEventID string   `json:"decision_event_id"`
	AuditLogPath    string   `json:"audit_log_path"`
}

// AgentOutputs holds the per-agent findings from an investigation.
type AgentOutputs struct {
	DataSentry      map[string]any `json:"data_sentry"`
	ThreatIntel     map[string]any `json:"threat_intel"`
	ComplianceGuard map[string]any `json:"compliance_guard"`
	RCAWriterMD     string         `json:"rca_writer_md"`
}

// InvestigationResult carries the agent artifacts for one investigated case.
type InvestigationResult struct {
	DecisionPacket
	ArtifactsDir string        `json:"artifacts_dir"`
	AgentOutputs *AgentOutputs `json:"agent_outputs"`
}

// KPIReport is the portfolio aggregate over a trailing window.
type KPIReport struct {
	WindowDays       int     `json:"window_days"`
	TotalEvents      int     `json:"total_events"`
	DeclineRate      float64 `json:"decline_rate"`
	ChallengeRate    float64 `json:"challenge_rate"`
	AllowRate        float64 `json:"allow_rate"`
	TotalVolume      float64 `json:"total_volume"`
	ChargebackAmount float64 `json:"chargeback_amount"`
	LossRateProxy    float64 `json:"loss_rate_proxy"`
}

// Error is a structured error response from the service.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	// Packet is populated when the service made a decision but a later
	// step (such as investigation) could not run.
	Packet *DecisionPacket `json:"decision_packet,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnavailable reports whether the error means the investigation
// capability is not enabled on the target deployment.
func (e *Error) IsUnavailable() bool {
	return e.Code == "investigation_unavailable"
}

// IsNotFound reports whether the error means the transaction is unknown.
func (e *Error) IsNotFound() bool {
	return e.Code == "transaction_not_found"
}
