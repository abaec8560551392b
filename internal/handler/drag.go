package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/interaction"
	"github.com/dukerupert/timegrid/internal/model"
)

// DragHandler relays pointer events from a time grid to the drag-to-create
// state machine. Day indexes refer to the store's visible days.
type DragHandler struct {
	drag   *interaction.DragCreator
	store  *calendar.Store
	logger *slog.Logger
}

func NewDragHandler(d *interaction.DragCreator, s *calendar.Store, logger *slog.Logger) *DragHandler {
	return &DragHandler{drag: d, store: s, logger: logger}
}

type dragResponse struct {
	State   interaction.DragState `json:"state"`
	Preview *dragPreview          `json:"preview,omitempty"`
}

type dragPreview struct {
	model.Position
	DayIndex int `json:"day_index"`
}

func (h *DragHandler) writeDrag(w http.ResponseWriter, status int) {
	resp := dragResponse{State: h.drag.State()}
	if pos, day, ok := h.drag.Preview(); ok {
		resp.Preview = &dragPreview{Position: pos, DayIndex: day}
	}
	writeJSON(w, status, resp)
}

func (h *DragHandler) State(w http.ResponseWriter, r *http.Request) {
	h.writeDrag(w, http.StatusOK)
}

// Down starts a drag. Month view has no time axis to drag on.
func (h *DragHandler) Down(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DayIndex int                `json:"day_index"`
		Y        float64            `json:"y"`
		Button   interaction.Button `json:"button"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if h.store.State().View == model.ViewMonth {
		writeError(w, http.StatusConflict, "drag to create needs the week or day view")
		return
	}

	if !h.drag.State().Dragging {
		h.drag.SetDays(h.store.VisibleDays())
	}
	if !h.drag.PointerDown(req.DayIndex, req.Y, req.Button) {
		writeError(w, http.StatusConflict, "drag not started")
		return
	}
	h.writeDrag(w, http.StatusOK)
}

func (h *DragHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Y float64 `json:"y"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.drag.PointerMove(req.Y)
	h.writeDrag(w, http.StatusOK)
}

// Up commits the drag and returns the created event.
func (h *DragHandler) Up(w http.ResponseWriter, r *http.Request) {
	id, err := h.drag.PointerUp()
	if err != nil {
		h.logger.Error("commit drag", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	if id == "" {
		writeError(w, http.StatusConflict, "no drag in progress")
		return
	}
	event, _ := h.store.Event(id)
	writeJSON(w, http.StatusCreated, event)
}

func (h *DragHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.drag.Cancel()})
}
