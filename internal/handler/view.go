package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/timeaxis"
)

// ViewHandler drives navigation and the editor modal.
type ViewHandler struct {
	store *calendar.Store
}

func NewViewHandler(s *calendar.Store) *ViewHandler {
	return &ViewHandler{store: s}
}

type stateResponse struct {
	model.ViewState
	Creating    bool     `json:"creating"`
	VisibleDays []string `json:"visible_days"`
}

func (h *ViewHandler) writeState(w http.ResponseWriter) {
	st := h.store.State()
	days := h.store.VisibleDays()
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = timeaxis.DayKey(d, h.store.Location())
	}
	writeJSON(w, http.StatusOK, stateResponse{ViewState: st, Creating: st.Creating(), VisibleDays: keys})
}

func (h *ViewHandler) State(w http.ResponseWriter, r *http.Request) {
	h.writeState(w)
}

func (h *ViewHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := model.ParseView(req.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, "view must be month, week or day")
		return
	}
	h.store.SetView(v)
	h.writeState(w)
}

func (h *ViewHandler) SetDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := timeaxis.ParseTimestamp(req.Date, h.store.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD format")
		return
	}
	h.store.SetCurrentDate(date)
	h.writeState(w)
}

func (h *ViewHandler) Today(w http.ResponseWriter, r *http.Request) {
	h.store.GoToToday()
	h.writeState(w)
}

// Navigate moves by ?step=n periods of the current view; step defaults to 1.
func (h *ViewHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	step := 1
	if s := r.URL.Query().Get("step"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "step must be an integer")
			return
		}
		step = n
	}
	h.store.Navigate(step)
	h.writeState(w)
}

// OpenModal opens the editor on an existing event, or on the create flow
// when no event_id is given.
func (h *ViewHandler) OpenModal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID string `json:"event_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EventID != "" {
		if _, ok := h.store.Event(req.EventID); !ok {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
	}
	h.store.OpenEventModal(req.EventID)
	h.writeState(w)
}

func (h *ViewHandler) CloseModal(w http.ResponseWriter, r *http.Request) {
	h.store.CloseEventModal()
	h.writeState(w)
}

// Now reports the current time and the now-line offset on the time axis.
func (h *ViewHandler) Now(pixelsPerHour float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().In(h.store.Location())
		writeJSON(w, http.StatusOK, map[string]any{
			"now":    now,
			"offset": timeaxis.NowOffset(now, pixelsPerHour),
		})
	}
}
