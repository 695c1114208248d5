package quiz

import "context"

// Store is the persistence boundary for the quiz catalog and attempts.
// Implementations: SQLStore (sqlite/postgres) and the in-memory store used
// in tests.
type Store interface {
	// Catalog. Questions travel inside the Quiz, sorted ascending by Order.
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context) ([]Quiz, error)
	ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error)
	// UpdateQuiz rewrites the quiz row; when replaceQuestions is true the
	// stored question set is deleted and q.Questions inserted in its place.
	UpdateQuiz(ctx context.Context, q Quiz, replaceQuestions bool) (Quiz, error)
	// DeleteQuiz removes the quiz and its questions. Deletion is restricted:
	// ErrQuizHasAttempts when any attempt references the quiz.
	DeleteQuiz(ctx context.Context, id string) error

	// Attempts. CreateAttempt is the atomic insert-if-no-active operation:
	// it fails with ErrAttemptActive when the (quiz, user) pair already has
	// an attempt with no completion timestamp, even under concurrent calls.
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	// GetAttempt embeds the quiz (with answer keys) and the answer set.
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// ListAttemptsByUser returns the user's attempts newest-started first
	// (ties broken by ascending id), with quiz and answers embedded.
	ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error)
	// CompleteAttempt persists the answer set and closes the attempt in one
	// transaction, guarded so an already-completed attempt is never touched:
	// of two concurrent calls exactly one lands its answers and score, the
	// other gets ErrAttemptCompleted and writes nothing.
	CompleteAttempt(ctx context.Context, attemptID string, completedAt int64, score int, answers []Answer) (Attempt, error)
}

// AccessPolicy answers ownership questions for catalog mutation. Supplied
// externally; the services never see a concrete identity provider.
type AccessPolicy interface {
	OwnsCourse(ctx context.Context, userID, courseID string) (bool, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Enrollments answers "is user U enrolled in course C".
type Enrollments interface {
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
}

// EventSink receives lifecycle events (AttemptStarted, AttemptSubmitted).
type EventSink interface {
	Append(ctx context.Context, typ, key string, data any) error
}
