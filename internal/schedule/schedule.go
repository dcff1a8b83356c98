package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Grace periods around a session's nominal start.
const (
	EarlyGraceMinutes = 15
	LateGraceMinutes  = 10
)

// Status is the timeliness of a scan relative to a session start.
type Status string

const (
	StatusEarly  Status = "early"
	StatusOnTime Status = "onTime"
	StatusLate   Status = "late"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusEarly, StatusOnTime, StatusLate:
		return true
	default:
		return false
	}
}

// Entry is one weekly recurring session of a course.
type Entry struct {
	DayOfWeek int    `json:"day_of_week" yaml:"day_of_week" db:"day_of_week" validate:"min=1,max=7"`
	StartTime string `json:"start_time" yaml:"start_time" db:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" yaml:"end_time" db:"end_time" validate:"required,clock"`
	Location  string `json:"location" yaml:"location" db:"location"`
}

// Classification is the result of matching an instant against a schedule.
type Classification struct {
	Status Status
	Entry  Entry
	// Index is the position of Entry in the schedule that was classified.
	Index int
}

var errBadClock = errors.New("expected HH:MM")

// ParseClock converts a 24-hour "HH:MM" (or "H:MM") string to minutes after midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: %w", s, errBadClock)
	}
	h, err := clockField(hh, 23)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	m, err := clockField(mm, 59)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return h*60 + m, nil
}

func clockField(s string, max int) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, errBadClock
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errBadClock
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("%d out of range 0-%d", v, max)
	}
	return v, nil
}

// Weekday returns the day of week of t with 1 meaning Sunday.
func Weekday(t time.Time) int {
	return int(t.Weekday()) + 1
}

// SessionDate formats the calendar date of t in t's location.
func SessionDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Classify finds the first entry whose admissible window contains at and
// reports how early or late at is relative to that entry's start. The
// admissible window is [start-EarlyGraceMinutes, end], inclusive. Entries
// with unparseable times are skipped. The day and minute are read from at's
// own location, so callers convert to the local calendar first.
func Classify(entries []Entry, at time.Time) (Classification, bool) {
	weekday := Weekday(at)
	minute := at.Hour()*60 + at.Minute()

	for i, e := range entries {
		if e.DayOfWeek != weekday {
			continue
		}
		start, err := ParseClock(e.StartTime)
		if err != nil {
			continue
		}
		end, err := ParseClock(e.EndTime)
		if err != nil {
			continue
		}
		if minute < start-EarlyGraceMinutes || minute > end {
			continue
		}
		c := Classification{Entry: e, Index: i}
		switch {
		case minute < start:
			c.Status = StatusEarly
		case minute <= start+LateGraceMinutes:
			c.Status = StatusOnTime
		default:
			c.Status = StatusLate
		}
		return c, true
	}
	return Classification{}, false
}
