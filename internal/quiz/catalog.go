package quiz

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CatalogService manages quizzes and their questions. Every mutation is
// gated on course ownership (or admin) through the injected AccessPolicy.
type CatalogService struct {
	store Store
	authz AccessPolicy
}

func NewCatalogService(store Store, authz AccessPolicy) *CatalogService {
	return &CatalogService{store: store, authz: authz}
}

func (s *CatalogService) Create(ctx context.Context, requesterID string, draft QuizDraft) (Quiz, error) {
	if err := s.requireCourseOwner(ctx, requesterID, draft.CourseID); err != nil {
		return Quiz{}, err
	}
	if len(draft.Questions) == 0 {
		return Quiz{}, ErrNoQuestions
	}
	q := Quiz{
		ID:           uuid.NewString(),
		CourseID:     draft.CourseID,
		Title:        draft.Title,
		TimeLimitMin: draft.TimeLimitMin,
		Questions:    buildQuestions(draft.Questions),
		CreatedAt:    time.Now().Unix(),
	}
	for i := range q.Questions {
		q.Questions[i].QuizID = q.ID
	}
	return s.store.CreateQuiz(ctx, q)
}

func (s *CatalogService) Get(ctx context.Context, id string) (Quiz, error) {
	return s.store.GetQuiz(ctx, id)
}

func (s *CatalogService) List(ctx context.Context) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

func (s *CatalogService) ListByCourse(ctx context.Context, courseID string) ([]Quiz, error) {
	return s.store.ListQuizzesByCourse(ctx, courseID)
}

func (s *CatalogService) Update(ctx context.Context, requesterID, id string, patch QuizPatch) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if err := s.requireCourseOwner(ctx, requesterID, q.CourseID); err != nil {
		return Quiz{}, err
	}
	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.TimeLimitMin != nil {
		q.TimeLimitMin = *patch.TimeLimitMin
	}
	replace := patch.Questions != nil
	if replace {
		if len(patch.Questions) == 0 {
			return Quiz{}, ErrNoQuestions
		}
		// Full replace under fresh identities: historical answers keep
		// pointing at the retired question rows' IDs and are never
		// re-scored against the new set.
		q.Questions = buildQuestions(patch.Questions)
		for i := range q.Questions {
			q.Questions[i].QuizID = q.ID
		}
	}
	return s.store.UpdateQuiz(ctx, q, replace)
}

func (s *CatalogService) Delete(ctx context.Context, requesterID, id string) error {
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireCourseOwner(ctx, requesterID, q.CourseID); err != nil {
		return err
	}
	return s.store.DeleteQuiz(ctx, id)
}

func (s *CatalogService) requireCourseOwner(ctx context.Context, userID, courseID string) error {
	if ok, err := s.authz.IsAdmin(ctx, userID); err != nil {
		return err
	} else if ok {
		return nil
	}
	ok, err := s.authz.OwnsCourse(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotCourseOwner
	}
	return nil
}

// buildQuestions assigns identities and normalizes order. Caller-supplied
// order values are kept when they are pairwise distinct; otherwise the
// sequence position wins, so (quiz_id, ord) stays unique at the store.
func buildQuestions(drafts []QuestionDraft) []Question {
	distinct := true
	seen := make(map[int]struct{}, len(drafts))
	for _, d := range drafts {
		if _, dup := seen[d.Order]; dup {
			distinct = false
			break
		}
		seen[d.Order] = struct{}{}
	}

	out := make([]Question, 0, len(drafts))
	for i, d := range drafts {
		ord := d.Order
		if !distinct {
			ord = i + 1
		}
		out = append(out, Question{
			ID:      uuid.NewString(),
			Text:    d.Text,
			Type:    d.Type,
			Options: d.Options,
			Answer:  d.Answer,
			Order:   ord,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
