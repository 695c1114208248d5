package quiz_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/studyhall/studyhall-lms/internal/db"
	"github.com/studyhall/studyhall-lms/internal/quiz"
)

// openTestDB gives every test its own shared-cache in-memory sqlite with
// the real schema, so the partial unique index is exercised for real.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func seedQuiz(t *testing.T, store *quiz.SQLStore) quiz.Quiz {
	t.Helper()
	quizID := uuid.NewString()
	q := quiz.Quiz{
		ID:       quizID,
		CourseID: "c1",
		Title:    "SQL basics",
		Questions: []quiz.Question{
			{ID: uuid.NewString(), QuizID: quizID, Text: "Q1", Type: quiz.TypeMultipleChoice, Options: []string{"A", "B"}, Answer: "A", Order: 1},
			{ID: uuid.NewString(), QuizID: quizID, Text: "Q2", Type: quiz.TypeTrueFalse, Options: []string{"true", "false"}, Answer: "true", Order: 2},
		},
		CreatedAt: 1700000000,
	}
	created, err := store.CreateQuiz(context.Background(), q)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return created
}

func TestSQLStoreQuizRoundTrip(t *testing.T) {
	store := quiz.NewSQLStore(openTestDB(t))
	ctx := context.Background()
	q := seedQuiz(t, store)

	got, err := store.GetQuiz(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "SQL basics" || len(got.Questions) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Questions[0].Order != 1 || got.Questions[1].Order != 2 {
		t.Fatalf("questions out of order: %+v", got.Questions)
	}
	if got.Questions[0].Options[1] != "B" {
		t.Fatalf("options lost: %+v", got.Questions[0].Options)
	}

	if _, err := store.GetQuiz(ctx, "ghost"); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}

	byCourse, err := store.ListQuizzesByCourse(ctx, "c1")
	if err != nil || len(byCourse) != 1 {
		t.Fatalf("list by course: %v, n=%d", err, len(byCourse))
	}
	if n, _ := store.ListQuizzesByCourse(ctx, "other"); len(n) != 0 {
		t.Fatalf("foreign course must list nothing, got %d", len(n))
	}
}

func TestSQLStoreReplaceQuestions(t *testing.T) {
	store := quiz.NewSQLStore(openTestDB(t))
	ctx := context.Background()
	q := seedQuiz(t, store)

	q.Title = "renamed"
	q.Questions = []quiz.Question{
		{ID: uuid.NewString(), QuizID: q.ID, Text: "only", Type: quiz.TypeTrueFalse, Options: []string{"true", "false"}, Answer: "false", Order: 1},
	}
	got, err := store.UpdateQuiz(ctx, q, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "renamed" || len(got.Questions) != 1 || got.Questions[0].Text != "only" {
		t.Fatalf("replace failed: %+v", got)
	}
}

func TestSQLStoreActiveAttemptUnique(t *testing.T) {
	store := quiz.NewSQLStore(openTestDB(t))
	ctx := context.Background()
	q := seedQuiz(t, store)

	first := quiz.Attempt{ID: uuid.NewString(), QuizID: q.ID, UserID: "stu1", StartedAt: 100}
	if _, err := store.CreateAttempt(ctx, first); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	second := quiz.Attempt{ID: uuid.NewString(), QuizID: q.ID, UserID: "stu1", StartedAt: 101}
	if _, err := store.CreateAttempt(ctx, second); !errors.Is(err, quiz.ErrAttemptActive) {
		t.Fatalf("err = %v, want ErrAttemptActive (partial index)", err)
	}

	// Completing the active attempt frees the slot.
	done, err := store.CompleteAttempt(ctx, first.ID, 200, 1, []quiz.Answer{
		{ID: uuid.NewString(), AttemptID: first.ID, QuestionID: q.Questions[0].ID, Response: "A", IsCorrect: true},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(done.Answers) != 1 || !done.Answers[0].IsCorrect {
		t.Fatalf("answers not persisted with the close: %+v", done.Answers)
	}
	if _, err := store.CreateAttempt(ctx, second); err != nil {
		t.Fatalf("start after completion: %v", err)
	}
}

func TestSQLStoreCompleteAttemptGuard(t *testing.T) {
	store := quiz.NewSQLStore(openTestDB(t))
	ctx := context.Background()
	q := seedQuiz(t, store)

	a := quiz.Attempt{ID: uuid.NewString(), QuizID: q.ID, UserID: "stu1", StartedAt: 100}
	if _, err := store.CreateAttempt(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	done, err := store.CompleteAttempt(ctx, a.ID, 200, 0, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed() || *done.Score != 0 || *done.CompletedAt != 200 {
		t.Fatalf("attempt not closed: %+v", done)
	}

	late := []quiz.Answer{
		{ID: uuid.NewString(), AttemptID: a.ID, QuestionID: q.Questions[0].ID, Response: "A", IsCorrect: true},
	}
	if _, err := store.CompleteAttempt(ctx, a.ID, 300, 9, late); !errors.Is(err, quiz.ErrAttemptCompleted) {
		t.Fatalf("err = %v, want ErrAttemptCompleted", err)
	}
	again, _ := store.GetAttempt(ctx, a.ID)
	if *again.Score != 0 || *again.CompletedAt != 200 {
		t.Fatalf("completed attempt mutated: %+v", again)
	}
	if len(again.Answers) != 0 {
		t.Fatalf("losing close must insert no answer rows, found %d", len(again.Answers))
	}

	if _, err := store.CompleteAttempt(ctx, "ghost", 1, 0, nil); !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestSQLStoreDeleteQuizRestricted(t *testing.T) {
	store := quiz.NewSQLStore(openTestDB(t))
	ctx := context.Background()
	q := seedQuiz(t, store)

	a := quiz.Attempt{ID: uuid.NewString(), QuizID: q.ID, UserID: "stu1", StartedAt: 100}
	if _, err := store.CreateAttempt(ctx, a); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if err := store.DeleteQuiz(ctx, q.ID); !errors.Is(err, quiz.ErrQuizHasAttempts) {
		t.Fatalf("err = %v, want ErrQuizHasAttempts", err)
	}

	clean := seedQuizWithCourse(t, store, "c2")
	if err := store.DeleteQuiz(ctx, clean.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetQuiz(ctx, clean.ID); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound after delete", err)
	}
}

func TestSQLStoreListAttemptsNewestFirst(t *testing.T) {
	store := quiz.NewSQLStore(openTestDB(t))
	ctx := context.Background()
	q1 := seedQuiz(t, store)
	q2 := seedQuizWithCourse(t, store, "c2")

	old := quiz.Attempt{ID: uuid.NewString(), QuizID: q1.ID, UserID: "stu1", StartedAt: 100}
	recent := quiz.Attempt{ID: uuid.NewString(), QuizID: q2.ID, UserID: "stu1", StartedAt: 200}
	for _, a := range []quiz.Attempt{old, recent} {
		if _, err := store.CreateAttempt(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := store.ListAttemptsByUser(ctx, "stu1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != recent.ID || list[1].ID != old.ID {
		t.Fatalf("not newest first: %+v", list)
	}
	if list[0].Quiz == nil || list[0].Quiz.ID != q2.ID {
		t.Fatalf("quiz not embedded: %+v", list[0])
	}
}

func seedQuizWithCourse(t *testing.T, store *quiz.SQLStore, courseID string) quiz.Quiz {
	t.Helper()
	quizID := uuid.NewString()
	created, err := store.CreateQuiz(context.Background(), quiz.Quiz{
		ID:       quizID,
		CourseID: courseID,
		Title:    "quiz " + courseID,
		Questions: []quiz.Question{
			{ID: uuid.NewString(), QuizID: quizID, Text: "Q", Type: quiz.TypeTrueFalse, Options: []string{"true", "false"}, Answer: "true", Order: 1},
		},
		CreatedAt: 1700000001,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return created
}
