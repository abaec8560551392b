// Package timeaxis converts between pixel offsets on a day's vertical time
// axis and timestamps, snaps timestamps to a minute grid, and buckets
// timestamps into local calendar days. All functions are pure.
package timeaxis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
)

const (
	// DefaultPixelsPerHour is the height of one hour on the time axis.
	DefaultPixelsPerHour = 60.0
	// DefaultSnapMinutes is the grid used when snapping drag results.
	DefaultSnapMinutes = 15
	// HoursPerDay is the extent of the rendered day.
	HoursPerDay = 24
)

var ErrInvalidTimestamp = errors.New("invalid timestamp")

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values with an offset are
// taken as-is; values without one are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// DayStart returns local midnight of the day t falls on in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayKey is the YYYY-MM-DD bucket of t in loc. Every "same day" decision in
// the module goes through this function.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}

// SameDay reports whether a and b share a local day bucket.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayKey(a, loc) == DayKey(b, loc)
}

// minutesBetween counts whole minutes from a to b, truncated toward zero.
func minutesBetween(a, b time.Time) float64 {
	return math.Trunc(b.Sub(a).Minutes())
}

// PositionOf places an event on the axis that starts at dayStart. Height is
// floored at a quarter hour so empty or inverted intervals stay clickable.
func PositionOf(e model.CalendarEvent, dayStart time.Time, pixelsPerHour float64) model.Position {
	top := minutesBetween(dayStart, e.Start) / 60 * pixelsPerHour
	height := minutesBetween(e.Start, e.End) / 60 * pixelsPerHour
	return model.Position{
		Top:    top,
		Height: math.Max(height, pixelsPerHour/4),
	}
}

// TimeAtPosition is the inverse of PositionOf's top: dayStart + y/pph hours.
func TimeAtPosition(y float64, dayStart time.Time, pixelsPerHour float64) time.Time {
	hours := y / pixelsPerHour
	return dayStart.Add(time.Duration(hours * float64(time.Hour)))
}

// SnapToGrid rounds the minute component of t to the nearest multiple of
// intervalMinutes, half up. Seconds are dropped and hour/day rollover is
// carried, so 10:53 on a 15 minute grid becomes 11:00. intervalMinutes <= 0
// falls back to DefaultSnapMinutes.
func SnapToGrid(t time.Time, intervalMinutes int) time.Time {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultSnapMinutes
	}
	m := t.Minute()
	snapped := (2*m + intervalMinutes) / (2 * intervalMinutes) * intervalMinutes
	// Step back from t itself; rebuilding the hour with time.Date picks the
	// first occurrence of a repeated wall hour.
	hour := t.Add(-(time.Duration(m)*time.Minute + time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())))
	return hour.Add(time.Duration(snapped) * time.Minute)
}

// NowOffset is the y offset of the "now" indicator for today's column.
func NowOffset(now time.Time, pixelsPerHour float64) float64 {
	dayStart := DayStart(now, now.Location())
	return minutesBetween(dayStart, now) / 60 * pixelsPerHour
}

// DayHeight is the pixel extent of a full rendered day.
func DayHeight(pixelsPerHour float64) float64 {
	return HoursPerDay * pixelsPerHour
}
