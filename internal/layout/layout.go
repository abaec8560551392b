// Package layout assigns side-by-side columns to overlapping events of a
// single day and turns them into renderer placements.
//
// Grouping is greedy: events are visited in start order and each joins the
// first existing group holding any member it overlaps. Columns are the
// insertion index within the group and the group size is every member's
// column count. This is not a minimum colouring: when A overlaps B and B
// overlaps C but A and C are disjoint, all three still get a third of the
// width. The result is deterministic and costs O(n*g) for n events and g
// groups, which is fine for one day's events.
package layout

import (
	"slices"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/timeaxis"
)

// Overlaps is the half-open interval test: aStart < bEnd && aEnd > bStart.
func Overlaps(a, b model.CalendarEvent) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Assign maps event ids to their column within the overlap group. The
// caller passes events already filtered to one local day.
func Assign(events []model.CalendarEvent) map[string]model.Assignment {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.CalendarEvent) int {
		return a.Start.Compare(b.Start)
	})

	var groups [][]model.CalendarEvent
	for _, e := range sorted {
		placed := false
		for i, group := range groups {
			if overlapsAny(e, group) {
				groups[i] = append(group, e)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []model.CalendarEvent{e})
		}
	}

	out := make(map[string]model.Assignment, len(sorted))
	for _, group := range groups {
		for i, e := range group {
			out[e.ID] = model.Assignment{Column: i, TotalColumns: len(group)}
		}
	}
	return out
}

func overlapsAny(e model.CalendarEvent, group []model.CalendarEvent) bool {
	for _, member := range group {
		if Overlaps(e, member) {
			return true
		}
	}
	return false
}

// PlaceDay combines vertical positions and column assignments for the
// events of the day starting at dayStart, returned in the caller's order.
func PlaceDay(events []model.CalendarEvent, dayStart time.Time, pixelsPerHour float64) []model.Placement {
	columns := Assign(events)
	placements := make([]model.Placement, 0, len(events))
	for _, e := range events {
		a, ok := columns[e.ID]
		if !ok || a.TotalColumns < 1 {
			a = model.Assignment{Column: 0, TotalColumns: 1}
		}
		placements = append(placements, model.Placement{
			Event:        e,
			Position:     timeaxis.PositionOf(e, dayStart, pixelsPerHour),
			Assignment:   a,
			LeftPercent:  float64(a.Column) * 100 / float64(a.TotalColumns),
			WidthPercent: 100 / float64(a.TotalColumns),
		})
	}
	return placements
}
