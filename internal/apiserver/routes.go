package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bkoehler/netverdict/internal/engine"
	"github.com/bkoehler/netverdict/internal/explain"
)

// registerHandlers registers all HTTP handlers.
func (s *Server) registerHandlers() {
	s.router.HandleFunc("/v1/analyze", s.withMethod(http.MethodPost, s.handleAnalyze))
	s.router.HandleFunc("/v1/rules", s.withMethod(http.MethodGet, s.handleRules))
	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.HandleFunc("/readyz", s.handleReady)
}

type analyzeRequest struct {
	Signals map[string]any `json:"signals"`
}

type analyzeResponse struct {
	AnalysisID  string        `json:"analysis_id"`
	Result      engine.Result `json:"result"`
	Explanation string        `json:"explanation"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	eng := s.currentEngine()
	if eng == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "no rule set loaded yet")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body: "+err.Error())
		return
	}
	if req.Signals == nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "missing 'signals' object")
		return
	}
	signals := engine.Signals(req.Signals)

	_, span := s.tracer.Start(r.Context(), "netverdict.analyze")
	defer span.End()

	var result engine.Result
	key, cacheable := fingerprint(signals)
	if cached, ok := s.cache.get(key); cacheable && ok {
		s.metrics.cacheHit()
		result = cached
	} else {
		s.metrics.cacheMiss()
		result = eng.Analyze(signals)
		if cacheable {
			s.cache.add(key, result)
		}
	}

	span.SetAttributes(
		attribute.Int("signals.count", len(signals)),
		attribute.String("verdict.primary_cause", result.PrimaryCause),
		attribute.Int("verdict.confidence_percent", result.ConfidencePercent),
	)

	writeJSON(w, http.StatusOK, analyzeResponse{
		AnalysisID:  uuid.NewString(),
		Result:      result,
		Explanation: explain.Format(result),
	})
}

type rulesResponse struct {
	Version            int      `json:"version"`
	Hypotheses         []string `json:"hypotheses"`
	EliminationRuleIDs []string `json:"elimination_rule_ids"`
	ScoringRuleIDs     []string `json:"scoring_rule_ids"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	eng := s.currentEngine()
	if eng == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "no rule set loaded yet")
		return
	}
	rs := eng.RuleSet()

	resp := rulesResponse{
		Version:            rs.Version,
		Hypotheses:         rs.Hypotheses.Names(),
		EliminationRuleIDs: make([]string, 0, len(rs.EliminationRules)),
		ScoringRuleIDs:     make([]string, 0, len(rs.ScoringRules)),
	}
	for _, rule := range rs.EliminationRules {
		resp.EliminationRuleIDs = append(resp.EliminationRuleIDs, rule.ID)
	}
	for _, rule := range rs.ScoringRules {
		resp.ScoringRuleIDs = append(resp.ScoringRuleIDs, rule.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.currentEngine() == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "no rule set loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
