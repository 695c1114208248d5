package http

import (
	"encoding/json"
	nethttp "net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studyhall/studyhall-lms/internal/course"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

func CreateCourseHandler(store *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
			nethttp.Error(w, "title required", nethttp.StatusBadRequest)
			return
		}
		c, err := store.Create(r.Context(), req.Title, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, c)
	}
}

func ListCoursesHandler(store *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

// POST /courses/{courseID}/enroll {"user_id": "..."}. user_id defaults to
// the caller, so students can self-enroll where policy allows it.
func EnrollHandler(store *course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if req.UserID == "" {
			req.UserID = rbac.SubjectFromContext(r.Context())
		}
		if err := store.Enroll(r.Context(), chi.URLParam(r, "courseID"), req.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
