package handler

import (
	"net/http"
	"time"

	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/layout"
	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/timeaxis"
)

// LayoutHandler serves ready-to-draw geometry for the three views.
type LayoutHandler struct {
	store         *calendar.Store
	pixelsPerHour float64
}

func NewLayoutHandler(s *calendar.Store, pixelsPerHour float64) *LayoutHandler {
	if pixelsPerHour <= 0 {
		pixelsPerHour = timeaxis.DefaultPixelsPerHour
	}
	return &LayoutHandler{store: s, pixelsPerHour: pixelsPerHour}
}

type dayColumn struct {
	Date       string            `json:"date"`
	Height     float64           `json:"height"`
	Placements []model.Placement `json:"placements"`
}

type monthCell struct {
	Date    string                `json:"date"`
	InMonth bool                  `json:"in_month"`
	Today   bool                  `json:"today"`
	Events  []model.CalendarEvent `json:"events"`
}

func (h *LayoutHandler) date(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	d, err := dateParam(r, "date", h.store.Location(), h.store.State().CurrentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD format")
		return time.Time{}, false
	}
	return d.In(h.store.Location()), true
}

func (h *LayoutHandler) column(day time.Time) dayColumn {
	loc := h.store.Location()
	start := timeaxis.DayStart(day, loc)
	placements := layout.PlaceDay(h.store.EventsForDate(start), start, h.pixelsPerHour)
	if placements == nil {
		placements = []model.Placement{}
	}
	return dayColumn{
		Date:       timeaxis.DayKey(start, loc),
		Height:     timeaxis.DayHeight(h.pixelsPerHour),
		Placements: placements,
	}
}

func (h *LayoutHandler) Day(w http.ResponseWriter, r *http.Request) {
	d, ok := h.date(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.column(d))
}

func (h *LayoutHandler) Week(w http.ResponseWriter, r *http.Request) {
	d, ok := h.date(w, r)
	if !ok {
		return
	}
	days := timeaxis.WeekDays(d, h.store.WeekStart())
	cols := make([]dayColumn, len(days))
	for i, day := range days {
		cols[i] = h.column(day)
	}
	writeJSON(w, http.StatusOK, cols)
}

func (h *LayoutHandler) Month(w http.ResponseWriter, r *http.Request) {
	d, ok := h.date(w, r)
	if !ok {
		return
	}
	loc := h.store.Location()
	today := time.Now()
	days := timeaxis.MonthGrid(d, h.store.WeekStart())
	cells := make([]monthCell, len(days))
	for i, day := range days {
		events := h.store.EventsForDate(day)
		if events == nil {
			events = []model.CalendarEvent{}
		}
		cells[i] = monthCell{
			Date:    timeaxis.DayKey(day, loc),
			InMonth: day.Month() == d.Month(),
			Today:   timeaxis.SameDay(day, today, loc),
			Events:  events,
		}
	}
	writeJSON(w, http.StatusOK, cells)
}

// Slots lists the quarter-hour slot start times of the day.
func (h *LayoutHandler) Slots(w http.ResponseWriter, r *http.Request) {
	d, ok := h.date(w, r)
	if !ok {
		return
	}
	slots := timeaxis.TimeSlots(d)
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}
