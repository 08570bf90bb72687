package models

import "time"

// Course carries the scheduling period of a course. Courses are owned by the catalogue service.
type Course struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	DateStart  time.Time `db:"date_start" json:"date_start"`
	DateFinish time.Time `db:"date_finish" json:"date_finish"`
}

// Lesson is a unit of course content that needs a time slot.
type Lesson struct {
	ID              string     `db:"id" json:"id"`
	CourseID        string     `db:"course_id" json:"course_id"`
	Title           string     `db:"title" json:"title"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	AvailableFrom   *time.Time `db:"available_from" json:"available_from,omitempty"`
	Position        int        `db:"position" json:"position"`
}
