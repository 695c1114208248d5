package http

import (
	"encoding/json"
	"errors"
	nethttp "net/http"

	"github.com/studyhall/studyhall-lms/internal/course"
	"github.com/studyhall/studyhall-lms/internal/quiz"
)

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the business-rule taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an infrastructure fault and stays a 500.
func writeError(w nethttp.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound),
		errors.Is(err, quiz.ErrAttemptNotFound),
		errors.Is(err, course.ErrCourseNotFound):
		nethttp.Error(w, err.Error(), nethttp.StatusNotFound)
	case errors.Is(err, quiz.ErrNotCourseOwner),
		errors.Is(err, quiz.ErrNotEnrolled),
		errors.Is(err, quiz.ErrNotAttemptOwner):
		nethttp.Error(w, err.Error(), nethttp.StatusForbidden)
	case errors.Is(err, quiz.ErrAttemptActive),
		errors.Is(err, quiz.ErrAttemptCompleted),
		errors.Is(err, quiz.ErrDuplicateAnswer),
		errors.Is(err, quiz.ErrQuizHasAttempts),
		errors.Is(err, quiz.ErrNoQuestions):
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
	default:
		nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
	}
}
