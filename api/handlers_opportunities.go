package api

import (
	"net/http"
	"strings"
)

// handleScan runs an alerting scan over the watchlist
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	signals, err := s.opportunities.ScanAndAlert(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "scan failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": signals,
		"count":         len(signals),
	})
}

// handleAnalyzeSymbol scores one symbol without alerting
func (s *Server) handleAnalyzeSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		respondWithError(w, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	signal, setup, err := s.opportunities.AnalyzeSymbol(r.Context(), symbol)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "analysis failed", err)
		return
	}
	if signal == nil {
		respondWithError(w, http.StatusNotFound, "no quote or metrics for "+symbol, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signal": signal,
		"setup":  setup,
	})
}
