package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/timeaxis"
)

// CalendarEventHandler is the editor form boundary. Titles and interval
// order are checked here; the store takes what it is given.
type CalendarEventHandler struct {
	store  *calendar.Store
	logger *slog.Logger
}

func NewCalendarEventHandler(s *calendar.Store, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{store: s, logger: logger}
}

func (h *CalendarEventHandler) parseTimes(w http.ResponseWriter, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := timeaxis.ParseTimestamp(startStr, h.store.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be an ISO-8601 timestamp")
		return time.Time{}, time.Time{}, false
	}
	end, err := timeaxis.ParseTimestamp(endStr, h.store.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be an ISO-8601 timestamp")
		return time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if _, _, ok := h.parseTimes(w, in.Start, in.End); !ok {
		return
	}
	if in.Color == "" {
		in.Color = model.Palette[0].Value
	}

	id, err := h.store.AddEvent(in)
	if err != nil {
		h.logger.Error("add event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	event, _ := h.store.Event(id)
	writeJSON(w, http.StatusCreated, event)
}

// List serves ?start=&end= range queries and ?date= day queries.
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := h.store.Location()

	var events []model.CalendarEvent
	switch {
	case q.Get("date") != "":
		date, err := timeaxis.ParseTimestamp(q.Get("date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD format")
			return
		}
		events = h.store.EventsForDate(date)
	case q.Get("start") != "" || q.Get("end") != "":
		start, err := timeaxis.ParseTimestamp(q.Get("start"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
			return
		}
		end, err := timeaxis.ParseTimestamp(q.Get("end"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
			return
		}
		events = h.store.EventsInRange(start, end)
	default:
		events = h.store.Events()
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.store.Event(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update applies a partial update. The resulting interval is validated
// against the stored event's other end when only one end changes.
func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := h.store.Event(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var u model.EventUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	if u.Empty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		u.Title = &title
	}
	if u.Start != nil || u.End != nil {
		startStr := existing.Start.Format(time.RFC3339Nano)
		endStr := existing.End.Format(time.RFC3339Nano)
		if u.Start != nil {
			startStr = *u.Start
		}
		if u.End != nil {
			endStr = *u.End
		}
		if _, _, ok := h.parseTimes(w, startStr, endStr); !ok {
			return
		}
	}

	if err := h.store.UpdateEvent(id, u); err != nil {
		h.logger.Error("update event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	event, ok := h.store.Event(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.store.Event(id); !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	h.store.DeleteEvent(id)
	w.WriteHeader(http.StatusNoContent)
}

// Palette lists the colours offered by the editor.
func (h *CalendarEventHandler) Palette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Palette)
}
