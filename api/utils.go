package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"tradescout/database"
	models "tradescout/database/models_pkg"
)

const (
	defaultListLimit = database.DefaultLimit
	maxListLimit     = database.MaxLimit
)

// getIntParam retrieves an integer query parameter with default value and optional range validation
func getIntParam(r *http.Request, key string, defaultVal int, minVal, maxVal *int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}

	if minVal != nil && val < *minVal {
		return defaultVal
	}
	if maxVal != nil && val > *maxVal {
		return defaultVal
	}

	return val
}

// pathID parses the {id} path value
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to encode response")
	}
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	event := log.Warn()
	if code >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Int("status", code).Msg(message)
	writeJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors to status codes
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case database.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, models.ErrTradeNotOpen), errors.Is(err, models.ErrRiskLimitReached):
		respondWithError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, models.ErrInvalidEntryPrice),
		errors.Is(err, models.ErrInvalidExitPrice),
		errors.Is(err, models.ErrInvalidSize):
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal error", err)
	}
}
