package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
)

type closeTradeRequest struct {
	ExitPrice      decimal.Decimal `json:"exit_price"`
	ExitReason     string          `json:"exit_reason"`
	LessonsLearned string          `json:"lessons_learned,omitempty"`
}

// handleListTrades lists the trade journal, optionally filtered by status
func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	var status models.TradeStatus
	if raw := strings.ToUpper(r.URL.Query().Get("status")); raw != "" {
		status = models.TradeStatus(raw)
		switch status {
		case models.TradeStatusOpen, models.TradeStatusClosed, models.TradeStatusCancelled:
		default:
			respondWithError(w, http.StatusBadRequest, "invalid status", nil)
			return
		}
	}

	minLimit, maxLimit := 1, maxListLimit
	limit := getIntParam(r, "limit", defaultListLimit, &minLimit, &maxLimit)

	trades, err := s.opportunities.ListTrades(r.Context(), status, limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// handleOpenTrade records a manually confirmed entry
func (s *Server) handleOpenTrade(w http.ResponseWriter, r *http.Request) {
	var req types.OpenTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		respondWithError(w, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	trade, err := s.opportunities.OpenTrade(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// handleCloseTrade exits an OPEN trade
func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid trade id", nil)
		return
	}

	var req closeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	reason, ok := models.ParseExitReason(strings.ToUpper(req.ExitReason))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid exit_reason", nil)
		return
	}

	trade, err := s.opportunities.CloseTrade(r.Context(), id, req.ExitPrice, reason, req.LessonsLearned)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// handleCancelTrade abandons an OPEN trade
func (s *Server) handleCancelTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid trade id", nil)
		return
	}

	trade, err := s.opportunities.CancelTrade(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}
