package schedule

import "time"

// Occurrences counts the sessions the schedule holds between from and to,
// both dates inclusive. Entries with unparseable times are not counted.
func Occurrences(entries []Entry, from, to time.Time) int {
	perDay := make(map[int]int, 7)
	for _, e := range entries {
		if _, err := ParseClock(e.StartTime); err != nil {
			continue
		}
		if _, err := ParseClock(e.EndTime); err != nil {
			continue
		}
		perDay[e.DayOfWeek]++
	}
	if len(perDay) == 0 {
		return 0
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, from.Location())
	total := 0
	for !day.After(last) {
		total += perDay[Weekday(day)]
		day = day.AddDate(0, 0, 1)
	}
	return total
}
