package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/consultly/consultly-server/cmd/models"
)

const DateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a server fault and reported without detail.
func WriteError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, models.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, models.ErrSlotUnavailable):
		WriteJSON(w, http.StatusConflict, errorResponse{Error: "slot unavailable"})
	case errors.Is(err, models.ErrInvalidTransition):
		WriteJSON(w, http.StatusConflict, errorResponse{Error: "invalid transition"})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// DateOnly truncates t to midnight UTC, the canonical form for slot dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into its canonical midnight-UTC form.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}
