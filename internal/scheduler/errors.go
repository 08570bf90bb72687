package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAvailability is returned when the student has no availability windows for the course.
	ErrNoAvailability = errors.New("no availability windows")
	// ErrComplexityExceeded is returned when the run hits the iteration ceiling.
	ErrComplexityExceeded = errors.New("schedule complexity exceeded")
	// ErrOverlappingWindows is returned when two windows on the same weekday intersect.
	ErrOverlappingWindows = errors.New("overlapping availability windows")
	// ErrInvalidPeriod is returned when the course period is empty or unset.
	ErrInvalidPeriod = errors.New("invalid course period")
)

// UnassignableLessonError identifies a lesson that fits no window occurrence before the course ends.
type UnassignableLessonError struct {
	LessonID string
}

func (e *UnassignableLessonError) Error() string {
	return fmt.Sprintf("lesson %s could not be scheduled", e.LessonID)
}

// InvalidLessonError rejects a lesson before scheduling starts.
type InvalidLessonError struct {
	LessonID string
	Reason   string
}

func (e *InvalidLessonError) Error() string {
	return fmt.Sprintf("invalid lesson %s: %s", e.LessonID, e.Reason)
}

// InvalidWindowError rejects a malformed availability window.
type InvalidWindowError struct {
	Index  int
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid availability window #%d: %s", e.Index, e.Reason)
}

// OverlapError details which windows collide. It matches ErrOverlappingWindows with errors.Is.
type OverlapError struct {
	First  AvailabilityWindow
	Second AvailabilityWindow
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %s and %s", ErrOverlappingWindows, e.First, e.Second)
}

// Is lets errors.Is(err, ErrOverlappingWindows) match.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlappingWindows
}
