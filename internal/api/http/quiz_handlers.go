package http

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studyhall/studyhall-lms/internal/quiz"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

var validate = validator.New()

type questionReq struct {
	Text    string   `json:"text" validate:"required"`
	Type    string   `json:"type" validate:"required,oneof=multiple_choice true_false"`
	Options []string `json:"options"`
	Answer  string   `json:"answer" validate:"required"`
	Order   int      `json:"order" validate:"gte=0"`
}

type createQuizReq struct {
	Title        string        `json:"title" validate:"required"`
	CourseID     string        `json:"course_id" validate:"required"`
	TimeLimitMin int           `json:"time_limit_min" validate:"gte=0"`
	Questions    []questionReq `json:"questions" validate:"required,min=1,dive"`
}

func CreateQuizHandler(svc *quiz.CatalogService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req createQuizReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		q, err := svc.Create(r.Context(), rbac.SubjectFromContext(r.Context()), quiz.QuizDraft{
			Title:        req.Title,
			CourseID:     req.CourseID,
			TimeLimitMin: req.TimeLimitMin,
			Questions:    toDrafts(req.Questions),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, q)
	}
}

func ListQuizzesHandler(svc *quiz.CatalogService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, sanitizeAll(r, list))
	}
}

func ListCourseQuizzesHandler(svc *quiz.CatalogService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := svc.ListByCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, sanitizeAll(r, list))
	}
}

func GetQuizHandler(svc *quiz.CatalogService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		q, err := svc.Get(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if !seesAnswers(r) {
			q = q.Sanitized()
		}
		writeJSON(w, nethttp.StatusOK, q)
	}
}

type updateQuizReq struct {
	Title        *string       `json:"title"`
	TimeLimitMin *int          `json:"time_limit_min"`
	Questions    []questionReq `json:"questions"` // non-null replaces the whole set
}

func UpdateQuizHandler(svc *quiz.CatalogService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req updateQuizReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		patch := quiz.QuizPatch{Title: req.Title, TimeLimitMin: req.TimeLimitMin}
		if req.Questions != nil {
			for _, qr := range req.Questions {
				if err := validate.Struct(qr); err != nil {
					nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
					return
				}
			}
			patch.Questions = toDrafts(req.Questions)
		}
		q, err := svc.Update(r.Context(), rbac.SubjectFromContext(r.Context()), chi.URLParam(r, "quizID"), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, q)
	}
}

func DeleteQuizHandler(svc *quiz.CatalogService) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := svc.Delete(r.Context(), rbac.SubjectFromContext(r.Context()), chi.URLParam(r, "quizID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func toDrafts(reqs []questionReq) []quiz.QuestionDraft {
	out := make([]quiz.QuestionDraft, 0, len(reqs))
	for _, qr := range reqs {
		out = append(out, quiz.QuestionDraft{
			Text:    qr.Text,
			Type:    qr.Type,
			Options: qr.Options,
			Answer:  qr.Answer,
			Order:   qr.Order,
		})
	}
	return out
}

func seesAnswers(r *nethttp.Request) bool {
	return rbac.Has(rbac.RoleFromContext(r.Context()), "quiz:view-answers")
}

func sanitizeAll(r *nethttp.Request, list []quiz.Quiz) []quiz.Quiz {
	if seesAnswers(r) {
		return list
	}
	out := make([]quiz.Quiz, 0, len(list))
	for _, q := range list {
		out = append(out, q.Sanitized())
	}
	return out
}
