package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/fraudshield/internal/enrichment"
	"github.com/mbd888/fraudshield/internal/investigation"
	"github.com/mbd888/fraudshield/internal/logging"
	"github.com/mbd888/fraudshield/internal/traces"
	"github.com/mbd888/fraudshield/internal/validation"
	"github.com/mbd888/fraudshield/internal/workflow"
)

// DecisionRequest is the body of POST /decision and POST /investigate.
type DecisionRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// InvestigateResponse carries the decision packet plus the artifacts the
// agent pipeline produced.
type InvestigateResponse struct {
	*workflow.DecisionPacket
	ArtifactsDir string                      `json:"artifacts_dir"`
	AgentOutputs *investigation.AgentOutputs `json:"agent_outputs"`
}

func bindDecisionRequest(c *gin.Context) (string, bool) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "transaction_id is required",
		})
		return "", false
	}
	if errs := validation.Validate(
		validation.ValidTransID("transaction_id", req.TransactionID),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"details": errs,
		})
		return "", false
	}
	return req.TransactionID, true
}

// decisionHandler runs the decision pipeline for one transaction.
// POST /decision
func (s *Server) decisionHandler(c *gin.Context) {
	transID, ok := bindDecisionRequest(c)
	if !ok {
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "decision", traces.TransID(transID))
	defer span.End()

	packet, err := s.workflow.Decide(ctx, transID)
	if err != nil {
		if errors.Is(err, enrichment.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "transaction_not_found",
				"message": "No transaction with id " + transID,
			})
			return
		}
		logging.L(ctx).Error("decision failed", "trans_id", transID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "decision_failed",
			"message": "Failed to produce a decision",
		})
		return
	}

	span.SetAttributes(traces.Decision(packet.Decision), traces.RiskScore(packet.RiskScore))
	c.JSON(http.StatusOK, packet)
}

// investigateHandler runs the decision pipeline and then the agent
// investigation. The decision packet is returned even when the investigation
// itself cannot run, so callers always see the decision that was made.
// POST /investigate
func (s *Server) investigateHandler(c *gin.Context) {
	transID, ok := bindDecisionRequest(c)
	if !ok {
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "investigate", traces.TransID(transID))
	defer span.End()

	packet, result, err := s.workflow.Investigate(ctx, transID)
	if err != nil {
		switch {
		case errors.Is(err, enrichment.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "transaction_not_found",
				"message": "No transaction with id " + transID,
			})
		case errors.Is(err, investigation.ErrUnavailable):
			c.JSON(http.StatusConflict, gin.H{
				"error":           "investigation_unavailable",
				"message":         "Investigation capability is not enabled on this deployment",
				"decision_packet": packet,
			})
		case errors.Is(err, investigation.ErrMissingCredential):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":           "missing_credential",
				"message":         "OPENAI_API_KEY is not configured",
				"decision_packet": packet,
			})
		default:
			logging.L(ctx).Error("investigation failed", "trans_id", transID, "error", err)
			resp := gin.H{
				"error":   "investigation_failed",
				"message": "Failed to complete the investigation",
			}
			if packet != nil {
				resp["decision_packet"] = packet
			}
			c.JSON(http.StatusInternalServerError, resp)
		}
		return
	}

	span.SetAttributes(traces.Decision(packet.Decision), traces.RiskScore(packet.RiskScore))
	c.JSON(http.StatusOK, InvestigateResponse{
		DecisionPacket: packet,
		ArtifactsDir:   result.ArtifactsDir,
		AgentOutputs:   result.Agents,
	})
}

// kpisHandler aggregates portfolio KPIs over a trailing window.
// GET /kpis?window_days=30
func (s *Server) kpisHandler(c *gin.Context) {
	windowDays := 30
	if raw := c.Query("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_window",
				"message": "window_days must be an integer between 1 and 365",
			})
			return
		}
		windowDays = n
	}

	report, err := s.kpis.Compute(c.Request.Context(), windowDays)
	if err != nil {
		logging.L(c.Request.Context()).Error("kpi aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "kpi_failed",
			"message": "Failed to aggregate KPIs",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// caseHandler returns the redacted case bundle for an operator console.
// GET /case/:transId
func (s *Server) caseHandler(c *gin.Context) {
	transID := c.Param("transId")

	bundle, err := s.workflow.Case(c.Request.Context(), transID)
	if err != nil {
		if errors.Is(err, enrichment.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "transaction_not_found",
				"message": "No transaction with id " + transID,
			})
			return
		}
		logging.L(c.Request.Context()).Error("case lookup failed", "trans_id", transID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "case_failed",
			"message": "Failed to load case bundle",
		})
		return
	}

	c.JSON(http.StatusOK, bundle)
}
