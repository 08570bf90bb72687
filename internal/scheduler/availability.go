package scheduler

import (
	"sort"
	"time"
)

// cursor tracks how much of a window's weekly occurrences has been consumed.
// It only ever moves forward.
type cursor struct {
	index  int
	window AvailabilityWindow
	anchor time.Time
	week   int
	next   Clock
}

func (c *cursor) occurrence(week int) time.Time {
	return c.anchor.AddDate(0, 0, 7*week)
}

// advance consumes minutes starting at start in the given week and rolls
// to the following week once the window is exhausted.
func (c *cursor) advance(week int, start Clock, minutes int) {
	c.week = week
	c.next = start.Add(minutes)
	if c.next >= c.window.End {
		c.week++
		c.next = c.window.Start
	}
}

// ValidateWindows checks every window and, when requested, rejects same-weekday overlaps.
func ValidateWindows(windows []AvailabilityWindow, rejectOverlaps bool) error {
	for i, w := range windows {
		if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
			return &InvalidWindowError{Index: i, Reason: "weekday must be between 0 and 6"}
		}
		if !w.Start.Valid() || !w.End.Valid() {
			return &InvalidWindowError{Index: i, Reason: "time of day out of range"}
		}
		if w.End <= w.Start {
			return &InvalidWindowError{Index: i, Reason: "end_time must be after start_time"}
		}
	}
	if !rejectOverlaps {
		return nil
	}

	byDay := make(map[time.Weekday][]AvailabilityWindow, 7)
	for _, w := range windows {
		byDay[w.Weekday] = append(byDay[w.Weekday], w)
	}
	for _, day := range byDay {
		sort.SliceStable(day, func(i, j int) bool { return day[i].Start < day[j].Start })
		for i := 1; i < len(day); i++ {
			if day[i].Start < day[i-1].End {
				return &OverlapError{First: day[i-1], Second: day[i]}
			}
		}
	}
	return nil
}

// newCursors anchors every window to its first occurrence on or after the period start.
func newCursors(windows []AvailabilityWindow, period CoursePeriod) []*cursor {
	start := DateOf(period.Start)
	cursors := make([]*cursor, 0, len(windows))
	for i, w := range windows {
		offset := (int(w.Weekday) - int(start.Weekday()) + 7) % 7
		cursors = append(cursors, &cursor{
			index:  i,
			window: w,
			anchor: start.AddDate(0, 0, offset),
			next:   w.Start,
		})
	}
	return cursors
}
