package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func window(day time.Weekday, start, end string) AvailabilityWindow {
	s, err := ParseClock(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseClock(end)
	if err != nil {
		panic(err)
	}
	return AvailabilityWindow{Weekday: day, Start: s, End: e}
}

func summerPeriod(t *testing.T) CoursePeriod {
	return CoursePeriod{Start: mustDate(t, "2025-06-23"), Finish: mustDate(t, "2025-09-01")}
}

func assertSlot(t *testing.T, a Assignment, date, start, end string) {
	t.Helper()
	assert.Equal(t, mustDate(t, date), a.Date, "date")
	assert.Equal(t, start, a.Start.String(), "start")
	assert.Equal(t, end, a.End.String(), "end")
}

func TestScheduleSingleLessonThursday(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 60, EarliestDate: mustDate(t, "2025-06-26")}}
	windows := []AvailabilityWindow{window(time.Thursday, "10:00", "12:00")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assertSlot(t, result[0], "2025-06-26", "10:00", "11:00")
}

func TestScheduleNinetyMinuteLessonFriday(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 90, EarliestDate: mustDate(t, "2025-06-27")}}
	windows := []AvailabilityWindow{window(time.Friday, "09:00", "12:00")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assertSlot(t, result[0], "2025-06-27", "09:00", "10:30")
}

func TestSchedulePacksSameDay(t *testing.T) {
	earliest := mustDate(t, "2025-06-26")
	lessons := []LessonItem{
		{ID: "l1", DurationMinutes: 60, EarliestDate: earliest},
		{ID: "l2", DurationMinutes: 60, EarliestDate: earliest},
	}
	windows := []AvailabilityWindow{window(time.Thursday, "10:00", "12:30")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assertSlot(t, result[0], "2025-06-26", "10:00", "11:00")
	assertSlot(t, result[1], "2025-06-26", "11:00", "12:00")
}

func TestScheduleSkipsWindowTooShort(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 60, EarliestDate: mustDate(t, "2025-06-26")}}
	windows := []AvailabilityWindow{
		window(time.Thursday, "09:00", "09:30"),
		window(time.Thursday, "10:00", "11:30"),
	}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assertSlot(t, result[0], "2025-06-26", "10:00", "11:00")
	assert.Equal(t, 1, result[0].WindowIndex)
}

func TestScheduleRollsToNextWeek(t *testing.T) {
	earliest := mustDate(t, "2025-06-26")
	lessons := []LessonItem{
		{ID: "l1", DurationMinutes: 60, EarliestDate: earliest},
		{ID: "l2", DurationMinutes: 60, EarliestDate: earliest},
	}
	windows := []AvailabilityWindow{window(time.Thursday, "10:00", "11:00")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assertSlot(t, result[0], "2025-06-26", "10:00", "11:00")
	assertSlot(t, result[1], "2025-07-03", "10:00", "11:00")
}

func TestScheduleWindowShorterThanAnyLesson(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 60, EarliestDate: mustDate(t, "2025-06-27")}}
	windows := []AvailabilityWindow{window(time.Friday, "10:00", "10:30")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, result)
	var unassignable *UnassignableLessonError
	require.True(t, errors.As(err, &unassignable))
	assert.Equal(t, "l1", unassignable.LessonID)
}

func TestScheduleWithoutWindows(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 60, EarliestDate: mustDate(t, "2025-06-26")}}

	_, err := Schedule(nil, lessons, summerPeriod(t), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoAvailability)
}

func TestScheduleFailsWhenCourseEndsBeforeNextOccurrence(t *testing.T) {
	earliest := mustDate(t, "2025-06-26")
	lessons := []LessonItem{
		{ID: "l1", DurationMinutes: 60, EarliestDate: earliest},
		{ID: "l2", DurationMinutes: 60, EarliestDate: earliest},
	}
	windows := []AvailabilityWindow{window(time.Thursday, "10:00", "11:00")}
	period := CoursePeriod{Start: mustDate(t, "2025-06-23"), Finish: mustDate(t, "2025-07-03")}

	result, err := Schedule(windows, lessons, period, DefaultOptions())
	assert.Nil(t, result)
	var unassignable *UnassignableLessonError
	require.True(t, errors.As(err, &unassignable))
	assert.Equal(t, "l2", unassignable.LessonID)
}

func TestScheduleHonoursEarliestDate(t *testing.T) {
	lessons := []LessonItem{
		{ID: "late", DurationMinutes: 45, EarliestDate: mustDate(t, "2025-07-15")},
		{ID: "early", DurationMinutes: 45, EarliestDate: mustDate(t, "2025-06-23")},
	}
	windows := []AvailabilityWindow{window(time.Monday, "16:00", "17:00")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "early", result[0].LessonID)
	assertSlot(t, result[0], "2025-06-23", "16:00", "16:45")
	assert.Equal(t, "late", result[1].LessonID)
	assertSlot(t, result[1], "2025-07-21", "16:00", "16:45")
}

func TestSchedulePicksEarliestAcrossWindows(t *testing.T) {
	earliest := mustDate(t, "2025-06-23")
	lessons := []LessonItem{
		{ID: "l1", DurationMinutes: 60, EarliestDate: earliest},
		{ID: "l2", DurationMinutes: 60, EarliestDate: earliest},
		{ID: "l3", DurationMinutes: 60, EarliestDate: earliest},
	}
	windows := []AvailabilityWindow{
		window(time.Wednesday, "18:00", "19:00"),
		window(time.Tuesday, "09:00", "10:00"),
	}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 3)
	assertSlot(t, result[0], "2025-06-24", "09:00", "10:00")
	assertSlot(t, result[1], "2025-06-25", "18:00", "19:00")
	assertSlot(t, result[2], "2025-07-01", "09:00", "10:00")
}

func TestScheduleTieBreaksOnWindowIndex(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 30, EarliestDate: mustDate(t, "2025-06-23")}}
	windows := []AvailabilityWindow{
		window(time.Monday, "10:00", "11:00"),
		window(time.Monday, "10:00", "11:00"),
	}
	opts := DefaultOptions()
	opts.RejectOverlappingWindows = false

	result, err := Schedule(windows, lessons, summerPeriod(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result[0].WindowIndex)
}

func TestScheduleRejectsOverlappingWindows(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 30, EarliestDate: mustDate(t, "2025-06-23")}}
	windows := []AvailabilityWindow{
		window(time.Monday, "10:00", "11:00"),
		window(time.Monday, "10:30", "12:00"),
	}

	_, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	assert.ErrorIs(t, err, ErrOverlappingWindows)
}

func TestScheduleAllowsAdjacentWindows(t *testing.T) {
	windows := []AvailabilityWindow{
		window(time.Monday, "10:00", "11:00"),
		window(time.Monday, "11:00", "12:00"),
	}
	assert.NoError(t, ValidateWindows(windows, true))
}

func TestScheduleRejectsInvalidLesson(t *testing.T) {
	lessons := []LessonItem{
		{ID: "ok", DurationMinutes: 30, EarliestDate: mustDate(t, "2025-06-23")},
		{ID: "bad", DurationMinutes: 0, EarliestDate: mustDate(t, "2025-06-23")},
	}
	windows := []AvailabilityWindow{window(time.Monday, "10:00", "11:00")}

	_, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	var invalid *InvalidLessonError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "bad", invalid.LessonID)
}

func TestScheduleRejectsInvalidWindow(t *testing.T) {
	lessons := []LessonItem{{ID: "l1", DurationMinutes: 30, EarliestDate: mustDate(t, "2025-06-23")}}
	windows := []AvailabilityWindow{{Weekday: time.Monday, Start: NewClock(11, 0), End: NewClock(10, 0)}}

	_, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	var invalid *InvalidWindowError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 0, invalid.Index)
}

func TestScheduleRejectsEmptyPeriod(t *testing.T) {
	day := mustDate(t, "2025-06-23")
	windows := []AvailabilityWindow{window(time.Monday, "10:00", "11:00")}

	_, err := Schedule(windows, nil, CoursePeriod{Start: day, Finish: day}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestScheduleWithoutLessons(t *testing.T) {
	windows := []AvailabilityWindow{window(time.Monday, "10:00", "11:00")}

	result, err := Schedule(windows, nil, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestScheduleKeepsDuplicateLessonIDs(t *testing.T) {
	earliest := mustDate(t, "2025-06-23")
	lessons := []LessonItem{
		{ID: "dup", DurationMinutes: 30, EarliestDate: earliest},
		{ID: "dup", DurationMinutes: 30, EarliestDate: earliest},
	}
	windows := []AvailabilityWindow{window(time.Monday, "10:00", "11:00")}

	result, err := Schedule(windows, lessons, summerPeriod(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assertSlot(t, result[0], "2025-06-23", "10:00", "10:30")
	assertSlot(t, result[1], "2025-06-23", "10:30", "11:00")
}

func TestScheduleComplexityCeiling(t *testing.T) {
	earliest := mustDate(t, "2025-01-06")
	lessons := make([]LessonItem, 0, 50)
	for i := 0; i < 50; i++ {
		lessons = append(lessons, LessonItem{ID: "l", DurationMinutes: 60, EarliestDate: earliest})
	}
	windows := []AvailabilityWindow{window(time.Monday, "10:00", "11:00")}
	period := CoursePeriod{Start: earliest, Finish: mustDate(t, "2030-01-01")}

	_, err := Schedule(windows, lessons, period, Options{MaxIterations: 10})
	assert.ErrorIs(t, err, ErrComplexityExceeded)
}

func TestScheduleProperties(t *testing.T) {
	period := summerPeriod(t)
	windows := []AvailabilityWindow{
		window(time.Monday, "08:00", "09:30"),
		window(time.Monday, "17:00", "18:00"),
		window(time.Wednesday, "12:00", "14:00"),
		window(time.Saturday, "09:00", "09:45"),
	}
	durations := []int{45, 60, 30, 90, 45, 60, 30, 45, 60, 90, 30, 45}
	lessons := make([]LessonItem, 0, len(durations))
	for i, d := range durations {
		lessons = append(lessons, LessonItem{
			ID:              string(rune('a' + i)),
			DurationMinutes: d,
			EarliestDate:    period.Start.AddDate(0, 0, i),
		})
	}

	first, err := Schedule(windows, lessons, period, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, first, len(lessons))

	second, err := Schedule(windows, lessons, period, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical inputs must produce identical output")

	lastEnd := make(map[int]time.Time)
	for i, a := range first {
		w := windows[a.WindowIndex]
		assert.False(t, a.Date.Before(period.Start))
		assert.True(t, a.Date.Before(period.Finish))
		assert.Equal(t, w.Weekday, a.Date.Weekday())
		assert.GreaterOrEqual(t, a.Start, w.Start)
		assert.LessOrEqual(t, a.End, w.End)
		assert.Equal(t, durations[i], int(a.End-a.Start))
		assert.LessOrEqual(t, int(a.End-a.Start), w.Span(), "window shorter than lesson must never be chosen")

		if prev, ok := lastEnd[a.WindowIndex]; ok {
			assert.False(t, a.StartsAt().Before(prev), "cursor must never move backward")
		}
		lastEnd[a.WindowIndex] = a.EndsAt()
	}
}
