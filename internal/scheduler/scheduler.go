// Package scheduler places course lessons into a student's recurring weekly
// availability. It is a pure computation: no I/O, no shared state between runs.
package scheduler

import "time"

type candidate struct {
	cursor *cursor
	week   int
	date   time.Time
	start  Clock
}

func (c candidate) before(other candidate) bool {
	if !c.date.Equal(other.date) {
		return c.date.Before(other.date)
	}
	return c.start < other.start
}

type run struct {
	period     CoursePeriod
	cursors    []*cursor
	iterations int
	limit      int
}

// Schedule assigns every lesson the earliest feasible slot across all windows.
// Either every lesson is placed or an error is returned with no assignments.
func Schedule(windows []AvailabilityWindow, lessons []LessonItem, period CoursePeriod, opts Options) ([]Assignment, error) {
	if period.Start.IsZero() || period.Finish.IsZero() || !DateOf(period.Finish).After(DateOf(period.Start)) {
		return nil, ErrInvalidPeriod
	}
	if len(windows) == 0 {
		return nil, ErrNoAvailability
	}
	if err := ValidateWindows(windows, opts.RejectOverlappingWindows); err != nil {
		return nil, err
	}
	queue, err := NewQueue(lessons)
	if err != nil {
		return nil, err
	}

	limit := opts.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	period = CoursePeriod{Start: DateOf(period.Start), Finish: DateOf(period.Finish)}
	r := &run{
		period:  period,
		cursors: newCursors(windows, period),
		limit:   limit,
	}

	assignments := make([]Assignment, 0, len(queue))
	for _, lesson := range queue {
		assignment, err := r.place(lesson)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

func (r *run) place(lesson LessonItem) (Assignment, error) {
	var (
		best  candidate
		found bool
	)
	for _, c := range r.cursors {
		cand, ok, err := r.candidateFor(c, lesson)
		if err != nil {
			return Assignment{}, err
		}
		// strict comparison keeps the lowest window index on ties
		if ok && (!found || cand.before(best)) {
			best, found = cand, true
		}
	}
	if !found {
		return Assignment{}, &UnassignableLessonError{LessonID: lesson.ID}
	}

	best.cursor.advance(best.week, best.start, lesson.DurationMinutes)
	return Assignment{
		LessonID:    lesson.ID,
		Date:        best.date,
		Start:       best.start,
		End:         best.start.Add(lesson.DurationMinutes),
		WindowIndex: best.cursor.index,
	}, nil
}

// candidateFor walks c forward without mutating it until an occurrence can
// hold the lesson or the course period ends.
func (r *run) candidateFor(c *cursor, lesson LessonItem) (candidate, bool, error) {
	if c.window.Span() < lesson.DurationMinutes {
		return candidate{}, false, nil
	}
	week, start := c.week, c.next
	for {
		r.iterations++
		if r.iterations > r.limit {
			return candidate{}, false, ErrComplexityExceeded
		}

		date := c.occurrence(week)
		if !date.Before(r.period.Finish) {
			return candidate{}, false, nil
		}
		if date.Before(lesson.EarliestDate) {
			days := int(lesson.EarliestDate.Sub(date).Hours() / 24)
			week += (days + 6) / 7
			start = c.window.Start
			continue
		}
		if start.Add(lesson.DurationMinutes) > c.window.End {
			week++
			start = c.window.Start
			continue
		}
		return candidate{cursor: c, week: week, date: date, start: start}, true, nil
	}
}
