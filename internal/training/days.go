package training

import "time"

// DayKey names a day of the week in lower case, e.g. "monday".
type DayKey string

const (
	Monday    DayKey = "monday"
	Tuesday   DayKey = "tuesday"
	Wednesday DayKey = "wednesday"
	Thursday  DayKey = "thursday"
	Friday    DayKey = "friday"
	Saturday  DayKey = "saturday"
	Sunday    DayKey = "sunday"
)

const daysPerWeek = 7

// Week lists the days in calendar order starting from Monday.
func Week() []DayKey {
	return []DayKey{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Valid reports whether d names a day of the week.
func (d DayKey) Valid() bool {
	return d.index() >= 0
}

// index returns the position of d in the Monday-first week or -1.
func (d DayKey) index() int {
	for i, day := range Week() {
		if day == d {
			return i
		}
	}
	return -1
}

// WeekStart returns Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + daysPerWeek - 1) % daysPerWeek
	year, month, day := t.AddDate(0, 0, -offset).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// WeekVariation derives the 0..2 rotation seed from the ISO week number.
func WeekVariation(weekStart time.Time) int {
	_, week := weekStart.UTC().ISOWeek()
	return week % variations
}
