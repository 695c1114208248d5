package quiz

import (
	"context"
	"database/sql"
	"errors"
)

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	// The partial unique index on (quiz_id, user_id) WHERE completed_at IS
	// NULL makes this insert the whole "no second active attempt" guard:
	// a concurrent duplicate loses at the store, not at a racy pre-check.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, quiz_id, user_id, started_at) VALUES ($1,$2,$3,$4)`,
		a.ID, a.QuizID, a.UserID, a.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Attempt{}, ErrAttemptActive
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, quiz_id, user_id, started_at, completed_at, score FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		return Attempt{}, err
	}
	return s.hydrateAttempt(ctx, a)
}

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, user_id, started_at, completed_at, score
		   FROM attempts WHERE user_id=$1 ORDER BY started_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i], err = s.hydrateAttempt(ctx, out[i])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, attemptID string, completedAt int64, score int, answers []Answer) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Guarded close first, answers second, one commit. The WHERE clause makes
	// the close a compare-and-set: a concurrent submit that lost the update
	// rolls back with its answer rows never inserted, so a completed
	// attempt's score, timestamp, and answer set never move.
	res, err := tx.ExecContext(ctx,
		`UPDATE attempts SET completed_at=$1, score=$2 WHERE id=$3 AND completed_at IS NULL`,
		completedAt, score, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM attempts WHERE id=$1`, attemptID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Attempt{}, ErrAttemptNotFound
			}
			return Attempt{}, err
		}
		return Attempt{}, ErrAttemptCompleted
	}
	for _, a := range answers {
		flag := 0
		if a.IsCorrect {
			flag = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (id, attempt_id, question_id, response, is_correct)
			 VALUES ($1,$2,$3,$4,$5)`,
			a.ID, attemptID, a.QuestionID, a.Response, flag); err != nil {
			return Attempt{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) hydrateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	q, err := s.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a.Quiz = &q

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, attempt_id, question_id, response, is_correct
		   FROM answers WHERE attempt_id=$1 ORDER BY id`, a.ID)
	if err != nil {
		return Attempt{}, err
	}
	defer rows.Close()

	a.Answers = []Answer{}
	for rows.Next() {
		var ans Answer
		var flag int
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &ans.Response, &flag); err != nil {
			return Attempt{}, err
		}
		ans.IsCorrect = flag != 0
		a.Answers = append(a.Answers, ans)
	}
	return a, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var completed, score sql.NullInt64
	if err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.StartedAt, &completed, &score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	if completed.Valid {
		v := completed.Int64
		a.CompletedAt = &v
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	return a, nil
}
