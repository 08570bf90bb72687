package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// CourseRepository reads course periods.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID loads a course by id. It returns sql.ErrNoRows when missing.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, date_start, date_finish FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListFinishedBefore returns ids of courses whose period ended before the cutoff.
func (r *CourseRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `SELECT id FROM courses WHERE date_finish < $1 ORDER BY id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, cutoff); err != nil {
		return nil, fmt.Errorf("list finished courses: %w", err)
	}
	return ids, nil
}
