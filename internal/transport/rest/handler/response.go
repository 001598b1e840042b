package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"sketchrooms/internal/service"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps the game error taxonomy onto HTTP statuses
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var gerr *service.GameError
	if !errors.As(err, &gerr) {
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if errors.Is(gerr, service.ErrNotMember) {
		writeError(w, http.StatusForbidden, gerr.Error())
		return
	}

	switch gerr.Kind() {
	case service.ErrValidation:
		writeError(w, http.StatusBadRequest, gerr.Error())
	case service.ErrNotFound:
		writeError(w, http.StatusNotFound, gerr.Error())
	case service.ErrContention:
		writeError(w, http.StatusConflict, "Please retry")
	default:
		writeError(w, http.StatusConflict, gerr.Error())
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
