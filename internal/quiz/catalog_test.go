package quiz_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/studyhall/studyhall-lms/internal/quiz"
)

/* ---------------- fakes for the authorization/enrollment ports ---------------- */

type fakePolicy struct {
	admins map[string]bool
	owners map[string]string // courseID -> ownerID
}

func (f *fakePolicy) OwnsCourse(_ context.Context, userID, courseID string) (bool, error) {
	return f.owners[courseID] == userID, nil
}

func (f *fakePolicy) IsAdmin(_ context.Context, userID string) (bool, error) {
	return f.admins[userID], nil
}

type fakeEnrollments struct {
	enrolled map[string]bool // courseID|userID
}

func (f *fakeEnrollments) IsEnrolled(_ context.Context, userID, courseID string) (bool, error) {
	return f.enrolled[courseID+"|"+userID], nil
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEvents) Append(_ context.Context, typ, _ string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, typ)
	return nil
}

func threeQuestionDraft(courseID string) quiz.QuizDraft {
	return quiz.QuizDraft{
		Title:    "Go basics",
		CourseID: courseID,
		Questions: []quiz.QuestionDraft{
			{Text: "Q1", Type: quiz.TypeMultipleChoice, Options: []string{"A", "B"}, Answer: "A", Order: 1},
			{Text: "Q2", Type: quiz.TypeMultipleChoice, Options: []string{"A", "B"}, Answer: "B", Order: 2},
			{Text: "Q3", Type: quiz.TypeTrueFalse, Options: []string{"true", "false"}, Answer: "C", Order: 3},
		},
	}
}

func newCatalog() (*quiz.CatalogService, quiz.Store) {
	store := quiz.NewInMemoryStore()
	authz := &fakePolicy{
		admins: map[string]bool{"root": true},
		owners: map[string]string{"c1": "teach1", "c2": "teach2"},
	}
	return quiz.NewCatalogService(store, authz), store
}

/* ---------------- tests ---------------- */

func TestCreateQuizRequiresCourseOwnership(t *testing.T) {
	svc, store := newCatalog()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "teach2", threeQuestionDraft("c1")); !errors.Is(err, quiz.ErrNotCourseOwner) {
		t.Fatalf("err = %v, want ErrNotCourseOwner", err)
	}
	list, _ := store.ListQuizzes(ctx)
	if len(list) != 0 {
		t.Fatalf("forbidden create must persist nothing, found %d quizzes", len(list))
	}

	if _, err := svc.Create(ctx, "teach1", threeQuestionDraft("c1")); err != nil {
		t.Fatalf("owner create: %v", err)
	}
	if _, err := svc.Create(ctx, "root", threeQuestionDraft("c2")); err != nil {
		t.Fatalf("admin create on foreign course: %v", err)
	}
}

func TestCreateQuizKeepsDistinctOrder(t *testing.T) {
	svc, _ := newCatalog()
	draft := threeQuestionDraft("c1")
	draft.Questions[0].Order = 30
	draft.Questions[1].Order = 10
	draft.Questions[2].Order = 20

	q, err := svc.Create(context.Background(), "teach1", draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := []int{q.Questions[0].Order, q.Questions[1].Order, q.Questions[2].Order}; got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("questions not sorted by order: %v", got)
	}
	if q.Questions[0].Text != "Q2" {
		t.Fatalf("order 10 should be Q2, got %s", q.Questions[0].Text)
	}
}

func TestCreateQuizRederivesCollidingOrder(t *testing.T) {
	svc, _ := newCatalog()
	draft := threeQuestionDraft("c1")
	for i := range draft.Questions {
		draft.Questions[i].Order = 7
	}
	q, err := svc.Create(context.Background(), "teach1", draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seen := map[int]bool{}
	for _, qq := range q.Questions {
		if seen[qq.Order] {
			t.Fatalf("duplicate order %d survived normalization", qq.Order)
		}
		seen[qq.Order] = true
	}
}

func TestCreateQuizRejectsEmptyQuestionSet(t *testing.T) {
	svc, _ := newCatalog()
	draft := quiz.QuizDraft{Title: "empty", CourseID: "c1"}
	if _, err := svc.Create(context.Background(), "teach1", draft); !errors.Is(err, quiz.ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestUpdateQuizReplacesQuestionSet(t *testing.T) {
	svc, _ := newCatalog()
	ctx := context.Background()
	q, err := svc.Create(ctx, "teach1", threeQuestionDraft("c1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldIDs := map[string]bool{}
	for _, qq := range q.Questions {
		oldIDs[qq.ID] = true
	}

	title := "Go basics v2"
	updated, err := svc.Update(ctx, "teach1", q.ID, quiz.QuizPatch{
		Title: &title,
		Questions: []quiz.QuestionDraft{
			{Text: "New Q", Type: quiz.TypeTrueFalse, Options: []string{"true", "false"}, Answer: "true", Order: 1},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title = %q, want %q", updated.Title, title)
	}
	if len(updated.Questions) != 1 {
		t.Fatalf("question set not replaced, %d questions remain", len(updated.Questions))
	}
	if oldIDs[updated.Questions[0].ID] {
		t.Fatal("replaced question must get a fresh identity")
	}
}

func TestUpdateQuizWithoutQuestionsKeepsSet(t *testing.T) {
	svc, _ := newCatalog()
	ctx := context.Background()
	q, _ := svc.Create(ctx, "teach1", threeQuestionDraft("c1"))

	limit := 45
	updated, err := svc.Update(ctx, "teach1", q.ID, quiz.QuizPatch{TimeLimitMin: &limit})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Questions) != 3 || updated.TimeLimitMin != 45 {
		t.Fatalf("patch without questions must keep the set: %d questions, limit %d",
			len(updated.Questions), updated.TimeLimitMin)
	}
}

func TestUpdateQuizForbiddenForNonOwner(t *testing.T) {
	svc, _ := newCatalog()
	ctx := context.Background()
	q, _ := svc.Create(ctx, "teach1", threeQuestionDraft("c1"))

	title := "hijack"
	if _, err := svc.Update(ctx, "teach2", q.ID, quiz.QuizPatch{Title: &title}); !errors.Is(err, quiz.ErrNotCourseOwner) {
		t.Fatalf("err = %v, want ErrNotCourseOwner", err)
	}
}

func TestDeleteQuizRestrictedWithAttempts(t *testing.T) {
	catalog, store := newCatalog()
	ctx := context.Background()
	q, _ := catalog.Create(ctx, "teach1", threeQuestionDraft("c1"))

	enroll := &fakeEnrollments{enrolled: map[string]bool{"c1|stu1": true}}
	attempts := quiz.NewAttemptService(store, enroll, &fakeEvents{}, 90)
	if _, err := attempts.Start(ctx, q.ID, "stu1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := catalog.Delete(ctx, "teach1", q.ID); !errors.Is(err, quiz.ErrQuizHasAttempts) {
		t.Fatalf("err = %v, want ErrQuizHasAttempts", err)
	}
	if _, err := catalog.Get(ctx, q.ID); err != nil {
		t.Fatalf("quiz must survive a rejected delete: %v", err)
	}
}

func TestDeleteQuizWithoutAttempts(t *testing.T) {
	svc, _ := newCatalog()
	ctx := context.Background()
	q, _ := svc.Create(ctx, "teach1", threeQuestionDraft("c1"))

	if err := svc.Delete(ctx, "teach1", q.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, q.ID); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	svc, _ := newCatalog()
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}
}
