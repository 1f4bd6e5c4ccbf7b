package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edvisory/exam-engine/internal/attempt"
	"github.com/edvisory/exam-engine/internal/catalog"
)

// writeError maps the engine's error taxonomy onto HTTP statuses. Nothing
// about the underlying record leaks: bodies carry only the sentinel message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attempt.ErrNotFound),
		errors.Is(err, attempt.ErrQuestionNotFound),
		errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, attempt.ErrUnauthenticated):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, attempt.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, attempt.ErrFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, attempt.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, attempt.ErrInvalidAnswer):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
