package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chatq/assist-backend/internal/core"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// respondError maps the service error taxonomy onto HTTP status codes.
// Unclassified errors become opaque 500s so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrForbidden):
		respondJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body", core.ErrValidation)
	}
	return nil
}
