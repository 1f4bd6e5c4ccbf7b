package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/edvisory/exam-engine/internal/attempt"
	"github.com/edvisory/exam-engine/internal/catalog"
	"github.com/edvisory/exam-engine/internal/rbac"

	"github.com/go-chi/chi/v5"
)

// GET /tests?q=...&limit=...&offset=...
func ListTestsHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListTests(r.Context(), catalog.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// GET /tests/{testID}
// Candidates get the sanitized view; administrators get answer keys too.
func GetTestHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testID")
		var (
			t   catalog.Test
			err error
		)
		if rbac.RoleFromContext(r.Context()) == attempt.RoleAdmin {
			t, err = store.GetTestAdmin(r.Context(), id)
		} else {
			t, err = store.GetTest(r.Context(), id)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(t)
	}
}

// PUT /tests/{testID}  (admin): full test definition upsert, so the service
// is seedable. Authoring UX lives elsewhere.
func PutTestHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t catalog.Test
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		t.ID = chi.URLParam(r, "testID")
		if err := store.PutTest(r.Context(), t); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
