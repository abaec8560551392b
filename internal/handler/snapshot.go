package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/timegrid/internal/backup"
	"github.com/dukerupert/timegrid/internal/model"
)

// SnapshotHandler exposes encrypted backups of the calendar.
type SnapshotHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewSnapshotHandler(m *backup.Manager, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{manager: m, logger: logger}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *SnapshotHandler) writeBackupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
	case errors.Is(err, backup.ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, "snapshot not found")
	case errors.Is(err, backup.ErrNotCompleted):
		writeError(w, http.StatusConflict, "snapshot is not complete")
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func (h *SnapshotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.manager.List(limit)
	if err != nil {
		h.writeBackupError(w, "list snapshots", err)
		return
	}
	if list == nil {
		list = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SnapshotHandler) Create(w http.ResponseWriter, r *http.Request) {
	sn, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.writeBackupError(w, "create snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, sn)
}

func (h *SnapshotHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.manager.Restore(r.Context(), id); err != nil {
		h.writeBackupError(w, "restore snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *SnapshotHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	data, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.writeBackupError(w, "download snapshot", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="snapshot-`+strconv.FormatInt(id, 10)+`.json.enc"`)
	w.Write(data)
}
