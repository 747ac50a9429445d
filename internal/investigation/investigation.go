// Package investigation runs the optional multi-agent case investigation.
//
// Four analyst agents run sequentially against a chat-completions endpoint,
// each grounded on enrichment data injected into its prompt: a data sentry
// (internal evidence), threat intel (IP reputation), compliance guard
// (KYC/disputes), and an RCA writer (markdown narrative). Agent output is
// explanatory only; the deterministic decision is never revisited here.
//
// The capability is optional: the service is only constructed when enabled,
// and a missing API credential is a typed error. A single misbehaving agent
// degrades to a marker payload rather than failing the case.
package investigation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbd888/fraudshield/internal/enrichment"
	"github.com/mbd888/fraudshield/internal/logging"
	"github.com/mbd888/fraudshield/internal/metrics"
)

var (
	// ErrUnavailable means the investigation capability is not enabled.
	ErrUnavailable = errors.New("investigation capability unavailable")
	// ErrMissingCredential means the capability is enabled but no API key
	// is configured.
	ErrMissingCredential = errors.New("missing API credential for investigation")
)

// Completer produces one assistant completion for a system+user exchange.
// *ChatClient satisfies it; tests substitute a stub.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// AgentOutputs collects the four agents' products.
type AgentOutputs struct {
	DataSentry      map[string]any `json:"data_sentry"`
	ThreatIntel     map[string]any `json:"threat_intel"`
	ComplianceGuard map[string]any `json:"compliance_guard"`
	RCAWriterMD     string         `json:"rca_writer_md"`
}

// Result is one completed investigation.
type Result struct {
	ArtifactsDir string        `json:"artifacts_dir"`
	Agents       *AgentOutputs `json:"agent_outputs"`
}

// Service orchestrates the agent pipeline and artifact writes.
type Service struct {
	llm           Completer
	gateway       *enrichment.Gateway
	reportsPath   string
	hasCredential bool
}

// NewService creates the investigation capability. hasCredential reflects
// whether an API key is configured; when false, Run returns
// ErrMissingCredential without contacting the endpoint.
func NewService(llm Completer, gateway *enrichment.Gateway, reportsPath string, hasCredential bool) *Service {
	return &Service{
		llm:           llm,
		gateway:       gateway,
		reportsPath:   reportsPath,
		hasCredential: hasCredential,
	}
}

// Run investigates one transaction. packet is the already-finalized decision
// packet; it is injected into prompts as context and never modified.
func (s *Service) Run(ctx context.Context, transID string, packet any) (*Result, error) {
	if !s.hasCredential {
		return nil, ErrMissingCredential
	}

	t, err := s.gateway.Transaction(ctx, transID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction for investigation: %w", err)
	}

	promptCtx := mustJSON(map[string]any{
		"transaction_id":  transID,
		"decision_packet": packet,
		"pii_note":        "PII redacted unless INCLUDE_PII=true",
	})

	history, _ := s.gateway.UserHistory(ctx, t.UserID)
	ipIntel, _ := s.gateway.IPIntel(ctx, t.DeviceIP)
	kyc, _ := s.gateway.KYC(ctx, t.UserID)
	disputes, _ := s.gateway.Disputes(ctx, t.UserID)
	similar := s.gateway.SimilarCases(transID)

	evidenceBlob := mustJSON(map[string]any{
		"transaction":   t,
		"user_history":  history,
		"similar_cases": similar,
	})
	intelBlob := mustJSON(map[string]any{"ip_intel": ipIntel})
	complianceBlob := mustJSON(map[string]any{"kyc": kyc, "disputes": disputes})

	out := &AgentOutputs{
		DataSentry: s.jsonAgent(ctx, "data_sentry",
			"You are a risk investigator focused on verifiable internal facts. Produce evidence JSON using only retrieved tool data.",
			"Return ONLY valid JSON:\n"+
				`{ "transaction": {...}, "user_history": {...}, "similar_cases": {...}, "observations": [ {"key":"...","value":"...","evidence":"..."} ] }`+"\n"+
				"No markdown.\n\nContext:\n"+promptCtx+"\n\nEvidence Inputs:\n"+evidenceBlob),
		ThreatIntel: s.jsonAgent(ctx, "threat_intel",
			"You are a threat intel analyst for proxy and datacenter risk. Produce intel JSON from IP intel and flags.",
			"Return ONLY valid JSON:\n"+
				`{ "ip_intel": {...}, "flags": ["proxy", ...], "notes": "..." }`+"\n"+
				"No markdown.\n\nContext:\n"+promptCtx+"\n\nIntel Inputs:\n"+intelBlob),
		ComplianceGuard: s.jsonAgent(ctx, "compliance_guard",
			"You are an AML/KYC specialist ensuring audit-ready compliance review. Use KYC and disputes evidence to produce compliance JSON. No decisioning.",
			"Return ONLY valid JSON:\n"+
				`{ "evidence_sources": {"kyc": {...}, "disputes": {...}}, "policy_concerns": [ {"policy_area":"KYC|AML|DISPUTES|OTHER","summary":"...","severity":"low|medium|high"} ], "required_actions": ["..."], "constraints": "Only mention concerns supported by evidence_sources or context." }`+"\n"+
				"No markdown.\n\nContext:\n"+promptCtx+"\n\nCompliance Inputs:\n"+complianceBlob),
	}

	rca, err := s.llm.Complete(ctx, "You are a senior fraud operations writer.",
		"Write MARKDOWN ONLY with these sections:\n"+
			"### Summary\n### Evidence (bullets)\n### Model & Rules\n### Recommended Next Steps\n### Escalation Notes\n\n"+
			"Explicitly state: ML+Rules made the decision; this narrative is explanatory only.\n\nContext:\n"+promptCtx)
	if err != nil {
		logging.L(ctx).Warn("rca agent failed", "trans_id", transID, "error", err)
		rca = "### Summary\n\nRCA generation failed: " + err.Error()
	}
	out.RCAWriterMD = strings.TrimSpace(rca)

	dir := filepath.Join(s.reportsPath, "cases", transID)
	if err := s.writeArtifacts(dir, out); err != nil {
		metrics.InvestigationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.InvestigationsTotal.WithLabelValues("completed").Inc()
	return &Result{ArtifactsDir: dir, Agents: out}, nil
}

// jsonAgent runs one JSON-producing agent. Transport failures and unparseable
// output both degrade to marker payloads.
func (s *Service) jsonAgent(ctx context.Context, name, system, user string) map[string]any {
	text, err := s.llm.Complete(ctx, system, user)
	if err != nil {
		logging.L(ctx).Warn("agent failed", "agent", name, "error", err)
		return map[string]any{"_error": "agent_failed", "message": err.Error()}
	}
	payload, outcome := ExtractJSON(text)
	if outcome == ExtractFailed {
		logging.L(ctx).Warn("agent output unparseable", "agent", name)
	}
	return payload
}

func (s *Service) writeArtifacts(dir string, out *AgentOutputs) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	files := map[string]any{
		"evidence.json":   out.DataSentry,
		"intel.json":      out.ThreatIntel,
		"compliance.json": out.ComplianceGuard,
	}
	for name, payload := range files {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o640); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "case_summary.md"), []byte(out.RCAWriterMD+"\n"), 0o640); err != nil {
		return fmt.Errorf("failed to write case_summary.md: %w", err)
	}
	return nil
}

// mustJSON renders prompt context; marshal failures degrade to "{}" since
// prompts are best-effort context, not data of record.
func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
