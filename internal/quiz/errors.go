package quiz

import "errors"

// Business-rule violations. These are terminal for the request: callers
// surface them immediately and never retry. Infrastructure faults (store
// unavailable) pass through untyped.
var (
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")

	ErrNotCourseOwner  = errors.New("requester does not own the course")
	ErrNotEnrolled     = errors.New("user is not enrolled in the course")
	ErrNotAttemptOwner = errors.New("can only access own attempts")

	ErrAttemptActive    = errors.New("user already has an active attempt")
	ErrAttemptCompleted = errors.New("attempt already completed")
	ErrDuplicateAnswer  = errors.New("duplicate answer for the same question")
	ErrQuizHasAttempts  = errors.New("quiz has recorded attempts")
	ErrNoQuestions      = errors.New("quiz needs at least one question")
)
