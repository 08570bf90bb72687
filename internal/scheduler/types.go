package scheduler

import (
	"fmt"
	"time"
)

// DefaultMaxIterations bounds the candidate evaluations of a single run.
const DefaultMaxIterations = 200000

// AvailabilityWindow is one recurring weekly slot during which the student can take lessons.
type AvailabilityWindow struct {
	Weekday time.Weekday
	Start   Clock
	End     Clock
}

// Span returns the window length in minutes.
func (w AvailabilityWindow) Span() int {
	return int(w.End - w.Start)
}

func (w AvailabilityWindow) String() string {
	return fmt.Sprintf("%s %s-%s", w.Weekday, w.Start, w.End)
}

// LessonItem is one unit of work to place.
type LessonItem struct {
	ID              string
	DurationMinutes int
	EarliestDate    time.Time
}

// CoursePeriod is the half-open [Start, Finish) date range of a course.
type CoursePeriod struct {
	Start  time.Time
	Finish time.Time
}

// Days returns the number of calendar days covered by the period.
func (p CoursePeriod) Days() int {
	return int(DateOf(p.Finish).Sub(DateOf(p.Start)).Hours() / 24)
}

// Assignment places a lesson on a concrete date and time range.
type Assignment struct {
	LessonID    string
	Date        time.Time
	Start       Clock
	End         Clock
	WindowIndex int
}

// StartsAt returns the absolute start instant in UTC.
func (a Assignment) StartsAt() time.Time {
	return a.Start.On(a.Date)
}

// EndsAt returns the absolute end instant in UTC.
func (a Assignment) EndsAt() time.Time {
	return a.End.On(a.Date)
}

// Options tunes a scheduling run.
type Options struct {
	MaxIterations            int
	RejectOverlappingWindows bool
}

// DefaultOptions returns the options used when callers have no configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations:            DefaultMaxIterations,
		RejectOverlappingWindows: true,
	}
}
