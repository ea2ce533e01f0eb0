package api

import (
	"net/http"
	"time"
)

// handleHealth reports service status and whether new trades are allowed
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{
		"status": "UP",
		"date":   time.Now().In(s.loc).Format("2006-01-02"),
	}

	tracked, err := s.maintenance.StocksTracked(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("health: failed to count tracked stocks")
		resp["status"] = "DEGRADED"
	} else {
		resp["stocks_tracked"] = tracked
	}

	risk, err := s.risk.Status(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("health: risk status unavailable")
		resp["status"] = "DEGRADED"
	} else {
		resp["can_trade"] = risk.CanTrade
		resp["risk"] = risk
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleInitialize backfills history for the watchlist
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	result, err := s.maintenance.LoadInitialData(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "initial load failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"result": result,
	})
}

// handleUpdate runs daily maintenance now
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	result, err := s.maintenance.RunDailyMaintenance(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "maintenance failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"result": result,
	})
}
