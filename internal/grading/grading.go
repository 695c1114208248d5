package grading

import "math"

// DefaultPassPercent is the platform-wide passing threshold. It applies
// uniformly to every quiz; there is no per-quiz override. Kept as a single
// named constant so the policy has exactly one point of change (it can be
// overridden at boot via PASS_PERCENT, see internal/config).
const DefaultPassPercent = 90.0

// GradedQuestion is the minimal view of a question needed for scoring.
type GradedQuestion struct {
	ID     string
	Answer string
}

// GivenAnswer is one submitted response.
type GivenAnswer struct {
	QuestionID string
	Response   string
}

// Mark records the per-answer verdict, in submission order.
type Mark struct {
	QuestionID string
	Correct    bool
}

type Result struct {
	Score      int     `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

// Score grades a completed submission. Matching is exact string equality,
// case-sensitive, no trimming. Answers whose QuestionID is not in the quiz
// count zero and do not error. MaxScore is the question count at scoring
// time; an empty quiz scores 0% rather than dividing by zero.
func Score(questions []GradedQuestion, answers []GivenAnswer, passPercent float64) (Result, []Mark) {
	keys := make(map[string]string, len(questions))
	for _, q := range questions {
		keys[q.ID] = q.Answer
	}

	marks := make([]Mark, 0, len(answers))
	correct := 0
	for _, a := range answers {
		key, ok := keys[a.QuestionID]
		hit := ok && a.Response == key
		if hit {
			correct++
		}
		marks = append(marks, Mark{QuestionID: a.QuestionID, Correct: hit})
	}

	res := Result{Score: correct, MaxScore: len(questions)}
	if res.MaxScore > 0 {
		res.Percentage = round2(float64(correct) / float64(res.MaxScore) * 100)
	}
	res.Passed = res.Percentage >= passPercent
	return res, marks
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
