package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// AvailabilityRepository persists student availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByStudentCourse returns windows ordered by weekday and start time.
func (r *AvailabilityRepository) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.StudentAvailability, error) {
	const query = `SELECT id, student_id, course_id, weekday, start_time, end_time, created_at
FROM student_availabilities WHERE student_id = $1 AND course_id = $2 ORDER BY weekday ASC, start_time ASC, id ASC`
	var windows []models.StudentAvailability
	if err := r.db.SelectContext(ctx, &windows, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list student availability: %w", err)
	}
	return windows, nil
}

// Replace swaps the stored windows of a student-course pair for the provided set.
func (r *AvailabilityRepository) Replace(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string, windows []models.StudentAvailability) error {
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM student_availabilities WHERE student_id = $1 AND course_id = $2`
	if _, err := target.ExecContext(ctx, deleteQuery, studentID, courseID); err != nil {
		return fmt.Errorf("clear student availability: %w", err)
	}

	const insertQuery = `
INSERT INTO student_availabilities (id, student_id, course_id, weekday, start_time, end_time, created_at)
VALUES (:id, :student_id, :course_id, :weekday, :start_time, :end_time, :created_at)`
	now := time.Now().UTC()
	for i := range windows {
		w := &windows[i]
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		w.StudentID = studentID
		w.CourseID = courseID
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, w); err != nil {
			return fmt.Errorf("insert student availability: %w", err)
		}
	}
	return nil
}

// ListStudentsByCourse returns every student that declared availability for the course.
func (r *AvailabilityRepository) ListStudentsByCourse(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT DISTINCT student_id FROM student_availabilities WHERE course_id = $1 ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return ids, nil
}
