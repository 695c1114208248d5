package quiz

import "github.com/studyhall/studyhall-lms/internal/grading"

const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
)

type Question struct {
	ID      string   `json:"id"`
	QuizID  string   `json:"quiz_id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"` // multiple_choice | true_false
	Options []string `json:"options"`
	Answer  string   `json:"answer,omitempty"` // stripped before serving to students
	Order   int      `json:"order"`            // unique within the quiz
}

type Quiz struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	Title        string     `json:"title"`
	TimeLimitMin int        `json:"time_limit_min,omitempty"` // advisory only, not enforced
	Questions    []Question `json:"questions"`
	CreatedAt    int64      `json:"created_at,omitempty"`
}

// Sanitized returns a copy with answer keys removed, for serving to learners.
func (q Quiz) Sanitized() Quiz {
	qs := make([]Question, len(q.Questions))
	copy(qs, q.Questions)
	for i := range qs {
		qs[i].Answer = ""
	}
	q.Questions = qs
	return q
}

type Answer struct {
	ID         string `json:"id"`
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Response   string `json:"response"`
	IsCorrect  bool   `json:"is_correct"`
}

// Attempt is one learner's single-pass engagement with a quiz. A nil
// CompletedAt means the attempt is still active; Score is set exactly once,
// at submission, and never changes afterwards.
type Attempt struct {
	ID          string   `json:"id"`
	QuizID      string   `json:"quiz_id"`
	UserID      string   `json:"user_id"`
	StartedAt   int64    `json:"started_at"`
	CompletedAt *int64   `json:"completed_at,omitempty"`
	Score       *int     `json:"score,omitempty"`
	Quiz        *Quiz    `json:"quiz,omitempty"`
	Answers     []Answer `json:"answers,omitempty"`
}

func (a Attempt) Completed() bool { return a.CompletedAt != nil }

// Result is the outcome returned to the learner on submission.
type Result struct {
	QuizID string `json:"quiz_id"`
	grading.Result
}

// QuizDraft is the input to quiz creation.
type QuizDraft struct {
	Title        string          `json:"title"`
	CourseID     string          `json:"course_id"`
	TimeLimitMin int             `json:"time_limit_min"`
	Questions    []QuestionDraft `json:"questions"`
}

type QuestionDraft struct {
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
	Order   int      `json:"order"`
}

// QuizPatch is a partial update. Nil fields are left unchanged. A non-nil
// Questions slice REPLACES the entire question set: existing questions are
// deleted and the new ones inserted under fresh identities. This is a
// destructive full-replace, not a merge.
type QuizPatch struct {
	Title        *string         `json:"title"`
	TimeLimitMin *int            `json:"time_limit_min"`
	Questions    []QuestionDraft `json:"questions"`
}

// AnswerInput is one (question, response) pair of a submission.
type AnswerInput struct {
	QuestionID string `json:"question_id"`
	Response   string `json:"response"`
}
