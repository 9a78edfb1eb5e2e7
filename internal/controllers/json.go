package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/codescanai/codescan/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes v with the given status. Encode failures after the
// header is out can only be logged.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError translates err through the public taxonomy, so clients see
// stable statuses and messages and nothing internal leaks.
func respondError(w http.ResponseWriter, err error) {
	status, msg := models.PublicError(err)
	respondJSON(w, status, errorResponse{Error: msg})
}
