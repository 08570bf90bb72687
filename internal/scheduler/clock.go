package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day expressed in minutes since midnight.
type Clock int

// EndOfDay is the latest representable clock value ("24:00").
const EndOfDay Clock = 24 * 60

// NewClock builds a clock from hour and minute components.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM" or "HH:MM:SS". Seconds must be zero; "24:00" is accepted as end of day.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	values := make([]int, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", raw)
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q: %w", raw, err)
		}
		values[i] = v
	}
	if len(values) == 3 && values[2] != 0 {
		return 0, fmt.Errorf("time of day %q must not carry seconds", raw)
	}
	if values[1] > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	c := NewClock(values[0], values[1])
	if !c.Valid() {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return c, nil
}

// ClockOf extracts the time of day from t in its own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

// Valid reports whether c lies within [00:00, 24:00].
func (c Clock) Valid() bool {
	return c >= 0 && c <= EndOfDay
}

// Add returns c shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int {
	return int(c)
}

// On combines the clock with a calendar date.
func (c Clock) On(date time.Time) time.Time {
	d := DateOf(date)
	return d.Add(time.Duration(c) * time.Minute)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}
