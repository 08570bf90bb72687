package models

import "time"

// StudentLessonSchedule is a persisted lesson placement for a student in a course.
type StudentLessonSchedule struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	LessonID      string    `db:"lesson_id" json:"lesson_id"`
	Position      int       `db:"position" json:"position"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ScheduleRunOutcome labels the result of a scheduling run for metrics.
type ScheduleRunOutcome string

const (
	ScheduleRunSuccess      ScheduleRunOutcome = "success"
	ScheduleRunNoAvailable  ScheduleRunOutcome = "no_availability"
	ScheduleRunUnassignable ScheduleRunOutcome = "unassignable"
	ScheduleRunInvalid      ScheduleRunOutcome = "invalid"
	ScheduleRunTooComplex   ScheduleRunOutcome = "complexity_exceeded"
)
