package http

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyhall/studyhall-lms/internal/quiz"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

func StartAttemptHandler(svc *quiz.AttemptService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		a, err := svc.Start(r.Context(), chi.URLParam(r, "quizID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, a)
	}
}

type submitReq struct {
	Answers []quiz.AnswerInput `json:"answers"`
}

func SubmitAttemptHandler(svc *quiz.AttemptService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		res, err := svc.Submit(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()), req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// GET /quizzes/attempts/my: the caller's attempts, newest first.
func MyAttemptsHandler(svc *quiz.AttemptService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := svc.ListForUser(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		if !seesAnswers(r) {
			for i := range list {
				sanitizeAttempt(&list[i])
			}
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

// GET /quizzes/attempts/{attemptID}: owner-only, unless the caller holds
// attempt:view-all.
func GetAttemptHandler(svc *quiz.AttemptService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "attemptID")
		var (
			a   quiz.Attempt
			err error
		)
		if rbac.Has(rbac.RoleFromContext(ctx), "attempt:view-all") {
			a, err = svc.GetAny(ctx, id)
		} else {
			a, err = svc.Get(ctx, id, rbac.SubjectFromContext(ctx))
		}
		if err != nil {
			writeError(w, err)
			return
		}
		if !seesAnswers(r) {
			sanitizeAttempt(&a)
		}
		writeJSON(w, nethttp.StatusOK, a)
	}
}

// sanitizeAttempt strips answer keys from the attempt's embedded quiz.
func sanitizeAttempt(a *quiz.Attempt) {
	if a.Quiz != nil {
		s := a.Quiz.Sanitized()
		a.Quiz = &s
	}
}
