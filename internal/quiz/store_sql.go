package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore persists the catalog and attempts over database/sql, working
// against both the sqlite and postgres schemas in internal/db.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, course_id, title, time_limit_min, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		q.ID, q.CourseID, q.Title, q.TimeLimitMin, q.CreatedAt); err != nil {
		return Quiz{}, err
	}
	if err := insertQuestions(ctx, tx, q.ID, q.Questions); err != nil {
		return Quiz{}, err
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}
	return s.GetQuiz(ctx, q.ID)
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, time_limit_min, created_at FROM quizzes WHERE id=$1`, id)
	var q Quiz
	if err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.TimeLimitMin, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	qs, err := s.questionsFor(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	q.Questions = qs
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT id, course_id, title, time_limit_min, created_at FROM quizzes ORDER BY created_at DESC, id`)
}

func (s *SQLStore) ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error) {
	return s.listQuizzes(ctx,
		`SELECT id, course_id, title, time_limit_min, created_at FROM quizzes WHERE course_id=$1 ORDER BY created_at DESC, id`,
		courseID)
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz, replaceQuestions bool) (Quiz, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, time_limit_min=$2 WHERE id=$3`,
		q.Title, q.TimeLimitMin, q.ID)
	if err != nil {
		return Quiz{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Quiz{}, ErrQuizNotFound
	}
	if replaceQuestions {
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, q.ID); err != nil {
			return Quiz{}, err
		}
		if err := insertQuestions(ctx, tx, q.ID, q.Questions); err != nil {
			return Quiz{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}
	return s.GetQuiz(ctx, q.ID)
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var attempts int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id=$1`, id).Scan(&attempts); err != nil {
		return err
	}
	if attempts > 0 {
		return ErrQuizHasAttempts
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuizNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) listQuizzes(ctx context.Context, query string, args ...any) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Title, &q.TimeLimitMin, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		qs, err := s.questionsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Questions = qs
	}
	return out, nil
}

func (s *SQLStore) questionsFor(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, text, qtype, options_json, answer, ord
		   FROM questions WHERE quiz_id=$1 ORDER BY ord`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		var q Question
		var opts string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &opts, &q.Answer, &q.Order); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func insertQuestions(ctx context.Context, tx *sql.Tx, quizID string, qs []Question) error {
	for _, q := range qs {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, text, qtype, options_json, answer, ord)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			q.ID, quizID, q.Text, q.Type, string(opts), q.Answer, q.Order); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation recognizes the partial-index rejection on both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") // sqlite
}
