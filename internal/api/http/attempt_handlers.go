package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/edvisory/exam-engine/internal/attempt"
	authmw "github.com/edvisory/exam-engine/internal/auth/middleware"
	"github.com/edvisory/exam-engine/internal/rbac"

	"github.com/go-chi/chi/v5"
)

// POST /attempts  { "test_id": "..." }
func StartAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TestID string `json:"test_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.TestID == "" {
			http.Error(w, "test_id required", http.StatusBadRequest)
			return
		}
		a, err := svc.Start(r.Context(), authmw.SubjectFromContext(r.Context()), req.TestID)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Get(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()),
			rbac.RoleFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

// GET /attempts?test_id=...&user_id=...&status=...&limit=50&offset=0
// Candidates only ever see their own attempts; user_id is forced to the
// subject unless the caller is an administrator.
func ListAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := authmw.SubjectFromContext(r.Context())

		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if role != attempt.RoleAdmin {
			userID = sub
		}

		list, err := svc.List(r.Context(), attempt.ListOpts{
			TestID: strings.TrimSpace(r.URL.Query().Get("test_id")),
			UserID: userID,
			Status: attempt.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
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

// POST /attempts/{attemptID}/answers
// { "question_id": "...", "value": <json>, "time_spent_sec": 12 }
func SubmitAnswerHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID   string          `json:"question_id"`
			Value        json.RawMessage `json:"value"`
			TimeSpentSec int64           `json:"time_spent_sec"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		a, err := svc.SubmitAnswer(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()),
			attempt.SubmitAnswerInput{
				QuestionID:   req.QuestionID,
				Value:        req.Value,
				TimeSpentSec: req.TimeSpentSec,
			})
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
	}
}

// PATCH /attempts/{attemptID}
// { "current_section": 1, "current_question": 4, "status": "completed" }
func UpdateProgressHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CurrentSection  *int    `json:"current_section"`
			CurrentQuestion *int    `json:"current_question"`
			Status          *string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		in := attempt.UpdateProgressInput{
			CurrentSection:  req.CurrentSection,
			CurrentQuestion: req.CurrentQuestion,
		}
		if req.Status != nil {
			st := attempt.Status(*req.Status)
			in.Status = &st
		}
		a, err := svc.UpdateProgress(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()), in)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
	}
}

// POST /attempts/{attemptID}/finalize
func FinalizeAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Finalize(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
	}
}

// DELETE /attempts/{attemptID}
func DeleteAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(),
			chi.URLParam(r, "attemptID"),
			authmw.SubjectFromContext(r.Context()),
			rbac.RoleFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
