package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// StudentScheduleRepository stores generated lesson placements per student and course.
type StudentScheduleRepository struct {
	db *sqlx.DB
}

// NewStudentScheduleRepository constructs the repository.
func NewStudentScheduleRepository(db *sqlx.DB) *StudentScheduleRepository {
	return &StudentScheduleRepository{db: db}
}

func (r *StudentScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Replace drops the previous schedule of the pair and inserts the new rows.
func (r *StudentScheduleRepository) Replace(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string, rows []models.StudentLessonSchedule) error {
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM student_lesson_schedules WHERE student_id = $1 AND course_id = $2`
	if _, err := target.ExecContext(ctx, deleteQuery, studentID, courseID); err != nil {
		return fmt.Errorf("clear student schedule: %w", err)
	}

	const insertQuery = `
INSERT INTO student_lesson_schedules (id, student_id, course_id, lesson_id, position, scheduled_date, start_time, end_time, created_at)
VALUES (:id, :student_id, :course_id, :lesson_id, :position, :scheduled_date, :start_time, :end_time, :created_at)`
	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.StudentID = studentID
		row.CourseID = courseID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, row); err != nil {
			return fmt.Errorf("insert student schedule: %w", err)
		}
	}
	return nil
}

// ListByStudentCourse returns the persisted schedule in placement order.
func (r *StudentScheduleRepository) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.StudentLessonSchedule, error) {
	const query = `SELECT id, student_id, course_id, lesson_id, position, scheduled_date, start_time, end_time, created_at
FROM student_lesson_schedules WHERE student_id = $1 AND course_id = $2 ORDER BY position ASC`
	var rows []models.StudentLessonSchedule
	if err := r.db.SelectContext(ctx, &rows, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list student schedule: %w", err)
	}
	return rows, nil
}

// DeleteByStudentCourse removes the schedule and reports whether any rows existed.
func (r *StudentScheduleRepository) DeleteByStudentCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `DELETE FROM student_lesson_schedules WHERE student_id = $1 AND course_id = $2`
	result, err := r.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return false, fmt.Errorf("delete student schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("student schedule rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteByCourse removes every student schedule of a course.
func (r *StudentScheduleRepository) DeleteByCourse(ctx context.Context, courseID string) (int64, error) {
	const query = `DELETE FROM student_lesson_schedules WHERE course_id = $1`
	result, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete course schedules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("course schedule rows affected: %w", err)
	}
	return affected, nil
}
