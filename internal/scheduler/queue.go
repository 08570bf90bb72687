package scheduler

import "sort"

// NewQueue validates lessons and returns a copy ordered by earliest date.
// Ties keep their input order and duplicate ids are kept as separate items.
func NewQueue(lessons []LessonItem) ([]LessonItem, error) {
	queue := make([]LessonItem, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson.DurationMinutes <= 0 {
			return nil, &InvalidLessonError{LessonID: lesson.ID, Reason: "duration_minutes must be positive"}
		}
		if lesson.EarliestDate.IsZero() {
			return nil, &InvalidLessonError{LessonID: lesson.ID, Reason: "earliest date is missing"}
		}
		lesson.EarliestDate = DateOf(lesson.EarliestDate)
		queue = append(queue, lesson)
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].EarliestDate.Before(queue[j].EarliestDate)
	})
	return queue, nil
}
