package quiz

import (
	"context"
	"sort"
	"sync"
)

// memoryStore backs unit tests and offline experiments. It honors the same
// contract as SQLStore, including the single-active-attempt insert guard.
type memoryStore struct {
	mu       sync.RWMutex
	quizzes  map[string]Quiz
	attempts map[string]Attempt
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:  map[string]Quiz{},
		attempts: map[string]Attempt{},
	}
}

func (m *memoryStore) CreateQuiz(_ context.Context, q Quiz) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return copyQuiz(q), nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return copyQuiz(q), nil
}

func (m *memoryStore) ListQuizzes(_ context.Context) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(Quiz) bool { return true }), nil
}

func (m *memoryStore) ListQuizzesByCourse(_ context.Context, courseID string) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(q Quiz) bool { return q.CourseID == courseID }), nil
}

func (m *memoryStore) UpdateQuiz(_ context.Context, q Quiz, replaceQuestions bool) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.quizzes[q.ID]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	cur.Title = q.Title
	cur.TimeLimitMin = q.TimeLimitMin
	if replaceQuestions {
		cur.Questions = q.Questions
	}
	m.quizzes[q.ID] = cur
	return copyQuiz(cur), nil
}

func (m *memoryStore) DeleteQuiz(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return ErrQuizNotFound
	}
	for _, a := range m.attempts {
		if a.QuizID == id {
			return ErrQuizHasAttempts
		}
	}
	delete(m.quizzes, id)
	return nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.attempts {
		if cur.QuizID == a.QuizID && cur.UserID == a.UserID && !cur.Completed() {
			return Attempt{}, ErrAttemptActive
		}
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAttemptLocked(id)
}

func (m *memoryStore) ListAttemptsByUser(_ context.Context, userID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for id, a := range m.attempts {
		if a.UserID != userID {
			continue
		}
		full, err := m.getAttemptLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, full)
	}
	// Newest first, ties by ascending id, matching the SQL store's
	// ORDER BY started_at DESC, id.
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) CompleteAttempt(_ context.Context, attemptID string, completedAt int64, score int, answers []Answer) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	// Same compare-and-set as the SQL store's guarded update: the loser of a
	// concurrent submit stores neither its answers nor its score.
	if a.Completed() {
		return Attempt{}, ErrAttemptCompleted
	}
	a.CompletedAt = &completedAt
	a.Score = &score
	a.Answers = make([]Answer, len(answers))
	copy(a.Answers, answers)
	m.attempts[attemptID] = a
	return m.getAttemptLocked(attemptID)
}

func (m *memoryStore) getAttemptLocked(id string) (Attempt, error) {
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if q, ok := m.quizzes[a.QuizID]; ok {
		full := copyQuiz(q)
		a.Quiz = &full
	}
	answers := make([]Answer, len(a.Answers))
	copy(answers, a.Answers)
	a.Answers = answers
	return a, nil
}

func (m *memoryStore) collect(keep func(Quiz) bool) []Quiz {
	out := []Quiz{}
	for _, q := range m.quizzes {
		if keep(q) {
			out = append(out, copyQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyQuiz(q Quiz) Quiz {
	qs := make([]Question, len(q.Questions))
	copy(qs, q.Questions)
	q.Questions = qs
	return q
}
