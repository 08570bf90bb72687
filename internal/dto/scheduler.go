package dto

import "time"

// AvailabilityWindowRequest describes one recurring weekly window.
type AvailabilityWindowRequest struct {
	Weekday   *int   `json:"weekday" validate:"required,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

// ReplaceAvailabilityRequest replaces every window a student has for a course.
// An empty list removes all availability.
type ReplaceAvailabilityRequest struct {
	Windows []AvailabilityWindowRequest `json:"windows" validate:"max=64,dive"`
}

// AvailabilityWindowResponse is a stored window.
type AvailabilityWindowResponse struct {
	ID        string `json:"id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ScheduledLesson is one lesson placement.
type ScheduledLesson struct {
	LessonID        string `json:"lessonId"`
	Title           string `json:"title,omitempty"`
	Position        int    `json:"position"`
	Date            string `json:"date"`
	Weekday         int    `json:"weekday"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
}

// StudentScheduleResponse returns a student's schedule for a course.
type StudentScheduleResponse struct {
	StudentID   string            `json:"studentId"`
	CourseID    string            `json:"courseId"`
	CourseStart string            `json:"courseStart,omitempty"`
	CourseEnd   string            `json:"courseEnd,omitempty"`
	Persisted   bool              `json:"persisted"`
	Lessons     []ScheduledLesson `json:"lessons"`
	GeneratedAt *time.Time        `json:"generatedAt,omitempty"`
}

// ClearScheduleResponse reports whether anything was removed.
type ClearScheduleResponse struct {
	Cleared bool `json:"cleared"`
}

// RebuildCourseResponse reports how many student schedules were queued.
type RebuildCourseResponse struct {
	CourseID string `json:"courseId"`
	Enqueued int    `json:"enqueued"`
}

// ScheduleExportQuery selects the export format.
type ScheduleExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
