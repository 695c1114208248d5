package quiz

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/studyhall/studyhall-lms/internal/grading"
)

// AttemptService drives the attempt state machine:
//
//	[no attempt] --Start--> [active] --Submit--> [completed]  (terminal)
//
// Enrollment is a precondition of Start; the single-active-attempt rule is
// enforced atomically by the store (partial unique index), not by a
// check-then-insert in this layer.
type AttemptService struct {
	store       Store
	enrollments Enrollments
	events      EventSink
	passPercent float64
	now         func() int64
}

func NewAttemptService(store Store, enrollments Enrollments, events EventSink, passPercent float64) *AttemptService {
	if passPercent <= 0 {
		passPercent = grading.DefaultPassPercent
	}
	return &AttemptService{
		store:       store,
		enrollments: enrollments,
		events:      events,
		passPercent: passPercent,
		now:         func() int64 { return time.Now().Unix() },
	}
}

func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (Attempt, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, q.CourseID)
	if err != nil {
		return Attempt{}, err
	}
	if !enrolled {
		return Attempt{}, ErrNotEnrolled
	}
	a, err := s.store.CreateAttempt(ctx, Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: s.now(),
	})
	if err != nil {
		return Attempt{}, err
	}
	s.emit(ctx, "AttemptStarted", a.ID, map[string]any{"quiz_id": quizID, "user_id": userID})
	return a, nil
}

// Submit scores the submission against the quiz's current questions and
// closes the attempt. The answers and the completion land in a single
// guarded store transaction, so of two concurrent submits exactly one
// persists its answer set and score; the other loses wholesale with
// ErrAttemptCompleted and writes nothing.
// One answer per question: a submission carrying the same question twice is
// rejected outright rather than producing multiple answer rows.
func (s *AttemptService) Submit(ctx context.Context, attemptID, userID string, inputs []AnswerInput) (Result, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if a.UserID != userID {
		return Result{}, ErrNotAttemptOwner
	}
	if a.Completed() {
		return Result{}, ErrAttemptCompleted
	}

	seen := make(map[string]struct{}, len(inputs))
	answers := make([]Answer, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.QuestionID]; dup {
			return Result{}, ErrDuplicateAnswer
		}
		seen[in.QuestionID] = struct{}{}
		answers = append(answers, Answer{
			ID:         uuid.NewString(),
			AttemptID:  attemptID,
			QuestionID: in.QuestionID,
			Response:   in.Response,
		})
	}

	questions := make([]grading.GradedQuestion, 0, len(a.Quiz.Questions))
	for _, q := range a.Quiz.Questions {
		questions = append(questions, grading.GradedQuestion{ID: q.ID, Answer: q.Answer})
	}
	given := make([]grading.GivenAnswer, 0, len(answers))
	for _, ans := range answers {
		given = append(given, grading.GivenAnswer{QuestionID: ans.QuestionID, Response: ans.Response})
	}
	res, marks := grading.Score(questions, given, s.passPercent)
	for i := range answers {
		answers[i].IsCorrect = marks[i].Correct
	}

	if _, err := s.store.CompleteAttempt(ctx, attemptID, s.now(), res.Score, answers); err != nil {
		return Result{}, err
	}
	s.emit(ctx, "AttemptSubmitted", attemptID, map[string]any{
		"quiz_id": a.QuizID, "user_id": userID, "score": res.Score, "max_score": res.MaxScore, "passed": res.Passed,
	})
	return Result{QuizID: a.QuizID, Result: res}, nil
}

func (s *AttemptService) ListForUser(ctx context.Context, userID string) ([]Attempt, error) {
	return s.store.ListAttemptsByUser(ctx, userID)
}

// Get is owner-scoped: learners see only their own attempts.
func (s *AttemptService) Get(ctx context.Context, attemptID, userID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, ErrNotAttemptOwner
	}
	return a, nil
}

// GetAny skips the owner check, for callers holding attempt:view-all.
func (s *AttemptService) GetAny(ctx context.Context, attemptID string) (Attempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

// emit is best-effort: the event log feeds downstream consumers and must
// never fail an already-committed lifecycle transition.
func (s *AttemptService) emit(ctx context.Context, typ, key string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		log.Printf("eventlog append %s %s: %v", typ, key, err)
	}
}
