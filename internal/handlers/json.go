package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/notification"
	"github.com/nutripanel/nutripanel-api/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the core error vocabulary onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr      *scheduling.ValidationError
		notifValidationErr *notification.ValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notifValidationErr):
		http.Error(w, notifValidationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, scheduling.ErrConflict):
		http.Error(w, "Requested slot conflicts with an existing appointment", http.StatusConflict)
	case errors.Is(err, scheduling.ErrNotFound), errors.Is(err, notification.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
