package course

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrCourseNotFound = errors.New("course not found")

type Course struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner_id"`
	CreatedAt int64  `json:"created_at"`
}

// Store keeps the minimal course and enrollment records the quiz engine
// needs. It doubles as the authorization and enrollment oracle: the quiz
// services consume it through their own small interfaces.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, title, ownerID string) (Course, error) {
	c := Course{
		ID:        uuid.NewString(),
		Title:     title,
		OwnerID:   ownerID,
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, owner_id, created_at) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Title, c.OwnerID, c.CreatedAt)
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, owner_id, created_at FROM courses WHERE id=$1`, id)
	var c Course
	if err := row.Scan(&c.ID, &c.Title, &c.OwnerID, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrCourseNotFound
		}
		return Course{}, err
	}
	return c, nil
}

func (s *Store) List(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, owner_id, created_at FROM courses ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Enroll is idempotent: re-enrolling an already-enrolled user is a no-op.
func (s *Store) Enroll(ctx context.Context, courseID, userID string) error {
	if _, err := s.Get(ctx, courseID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (course_id, user_id, enrolled_at) VALUES ($1,$2,$3)
		 ON CONFLICT DO NOTHING`,
		courseID, userID, time.Now().Unix())
	return err
}

// OwnsCourse implements the quiz services' AccessPolicy port.
func (s *Store) OwnsCourse(ctx context.Context, userID, courseID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM courses WHERE id=$1 AND owner_id=$2`, courseID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id=$1 OR username=$1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == "admin", nil
}

// IsEnrolled implements the quiz services' Enrollments port.
func (s *Store) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM enrollments WHERE course_id=$1 AND user_id=$2`, courseID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
