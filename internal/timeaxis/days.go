package timeaxis

import (
	"time"

	"github.com/dukerupert/timegrid/internal/model"
)

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := DayStart(t, t.Location())
	diff := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -diff)
}

// WeekDays returns the seven days of t's week.
func WeekDays(t time.Time, weekStart time.Weekday) []time.Time {
	first := StartOfWeek(t, weekStart)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// MonthGrid returns whole weeks covering t's month, including leading and
// trailing days from the neighbouring months.
func MonthGrid(t time.Time, weekStart time.Weekday) []time.Time {
	loc := t.Location()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := StartOfWeek(first, weekStart)
	end := StartOfWeek(last, weekStart).AddDate(0, 0, 6)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// TimeSlots returns the 96 quarter-hour slots of t's day.
func TimeSlots(t time.Time) []time.Time {
	start := DayStart(t, t.Location())
	slots := make([]time.Time, 0, HoursPerDay*4)
	for i := 0; i < HoursPerDay*4; i++ {
		slots = append(slots, start.Add(time.Duration(i*15)*time.Minute))
	}
	return slots
}

// Shift moves t by n periods of the given view.
func Shift(view model.View, t time.Time, n int) time.Time {
	switch view {
	case model.ViewMonth:
		return addMonths(t, n)
	case model.ViewWeek:
		return t.AddDate(0, 0, 7*n)
	default:
		return t.AddDate(0, 0, n)
	}
}

// VisibleDays lists the days a view renders around t.
func VisibleDays(view model.View, t time.Time, weekStart time.Weekday) []time.Time {
	switch view {
	case model.ViewMonth:
		return MonthGrid(t, weekStart)
	case model.ViewWeek:
		return WeekDays(t, weekStart)
	default:
		return []time.Time{DayStart(t, t.Location())}
	}
}

// addMonths clamps to the last day of the target month, so Jan 31 + 1 is
// Feb 28/29 rather than early March.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return target.AddDate(0, 0, day-1)
}
