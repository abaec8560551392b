package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/ics"
)

type ICSHandler struct {
	store        *calendar.Store
	defaultColor string
	logger       *slog.Logger
}

func NewICSHandler(s *calendar.Store, defaultColor string, logger *slog.Logger) *ICSHandler {
	return &ICSHandler{store: s, defaultColor: defaultColor, logger: logger}
}

func (h *ICSHandler) Export(w http.ResponseWriter, r *http.Request) {
	body := ics.Export(h.store.Events(), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.Write([]byte(body))
}

func (h *ICSHandler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	res, err := ics.Import(body, h.store, h.defaultColor)
	switch {
	case errors.Is(err, ics.ErrEmptyCalendar):
		writeError(w, http.StatusBadRequest, "calendar has no events")
		return
	case err != nil && len(res.Imported) == 0:
		h.logger.Warn("ics import failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid calendar")
		return
	case err != nil:
		h.logger.Error("ics import stopped", "imported", len(res.Imported), "error", err)
		writeError(w, http.StatusInternalServerError, "import stopped part way")
		return
	}
	if res.Imported == nil {
		res.Imported = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}
