package api

import (
	"net/http"
	"strings"

	models "tradescout/database/models_pkg"
)

// handleCurrentPerformance returns the all-time snapshot
func (s *Server) handleCurrentPerformance(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.performance.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute performance", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleQuarterlyReport generates and stores the current quarter's report
func (s *Server) handleQuarterlyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.performance.GenerateQuarterlyReport(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to generate report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handlePerformanceHistory lists stored reports of one period type
func (s *Server) handlePerformanceHistory(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToUpper(r.URL.Query().Get("period"))
	if raw == "" {
		raw = string(models.PeriodQuarterly)
	}
	period, ok := models.ParsePeriodType(raw)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid period", nil)
		return
	}

	minLimit, maxLimit := 1, maxListLimit
	limit := getIntParam(r, "limit", defaultListLimit, &minLimit, &maxLimit)

	history, err := s.performance.History(r.Context(), period, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"reports": history,
		"count":   len(history),
	})
}

// handleRiskStatus returns the risk gate's inputs and verdict
func (s *Server) handleRiskStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.risk.Status(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to evaluate risk", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
