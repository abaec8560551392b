package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/timegrid/internal/backup"
	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/config"
	"github.com/dukerupert/timegrid/internal/handler"
	"github.com/dukerupert/timegrid/internal/interaction"
	"github.com/dukerupert/timegrid/internal/middleware"
	"github.com/dukerupert/timegrid/internal/store"
	ws "github.com/dukerupert/timegrid/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	calendar      *calendar.Store
	eventH        *handler.CalendarEventHandler
	viewH         *handler.ViewHandler
	layoutH       *handler.LayoutHandler
	dragH         *handler.DragHandler
	icsH          *handler.ICSHandler
	snapshotH     *handler.SnapshotHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	cfg           *config.Config
	logger        *slog.Logger
}

// New hydrates the calendar from the database and wires every handler to it.
func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	cal, err := calendar.New(store.NewSlotStore(db), calendar.Options{
		StorageKey: cfg.StorageKey,
		Location:   cfg.Location(),
		WeekStart:  cfg.FirstWeekday(),
		Logger:     logger.With("component", "calendar"),
		OnChange:   hub.Notify,
	})
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Passphrase:    cfg.Backup.Passphrase,
		Prefix:        cfg.Backup.Prefix,
		Schedule:      cfg.Backup.Schedule,
		RetentionDays: cfg.Backup.RetentionDays,
	}, cal, store.NewSnapshotStore(db), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "snapshot_status",
			Entity: "snapshot",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	drag := interaction.NewDragCreator(cal, interaction.DragConfig{
		PixelsPerHour: cfg.PixelsPerHour,
		SnapMinutes:   cfg.SnapMinutes,
		DefaultTitle:  cfg.DefaultTitle,
		DefaultColor:  cfg.DefaultColor,
	})

	return &Server{
		db:            db,
		hub:           hub,
		calendar:      cal,
		eventH:        handler.NewCalendarEventHandler(cal, logger.With("component", "calendar_event")),
		viewH:         handler.NewViewHandler(cal),
		layoutH:       handler.NewLayoutHandler(cal, cfg.PixelsPerHour),
		dragH:         handler.NewDragHandler(drag, cal, logger.With("component", "drag")),
		icsH:          handler.NewICSHandler(cal, cfg.DefaultColor, logger.With("component", "ics")),
		snapshotH:     handler.NewSnapshotHandler(backupMgr, logger.With("component", "snapshot")),
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Calendar returns the event store.
func (s *Server) Calendar() *calendar.Store {
	return s.calendar
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	s.registerRoutes(mux)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.Recoverer(s.logger)(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"events":  s.calendar.Len(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.cfg.RateLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Events
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PATCH /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("GET /api/colors", s.eventH.Palette)

	// Navigation and modal
	mux.HandleFunc("GET /api/state", s.viewH.State)
	mux.HandleFunc("PUT /api/view", s.viewH.SetView)
	mux.HandleFunc("PUT /api/date", s.viewH.SetDate)
	mux.HandleFunc("POST /api/today", s.viewH.Today)
	mux.HandleFunc("POST /api/navigate", s.viewH.Navigate)
	mux.HandleFunc("POST /api/modal", s.viewH.OpenModal)
	mux.HandleFunc("DELETE /api/modal", s.viewH.CloseModal)
	mux.HandleFunc("GET /api/now", s.viewH.Now(s.cfg.PixelsPerHour))

	// Layout
	mux.HandleFunc("GET /api/layout/day", s.layoutH.Day)
	mux.HandleFunc("GET /api/layout/week", s.layoutH.Week)
	mux.HandleFunc("GET /api/layout/month", s.layoutH.Month)
	mux.HandleFunc("GET /api/slots", s.layoutH.Slots)

	// Drag to create
	mux.HandleFunc("GET /api/drag", s.dragH.State)
	mux.HandleFunc("POST /api/drag/down", s.dragH.Down)
	mux.HandleFunc("POST /api/drag/move", s.dragH.Move)
	mux.HandleFunc("POST /api/drag/up", s.dragH.Up)
	mux.HandleFunc("POST /api/drag/cancel", s.dragH.Cancel)

	// iCalendar
	mux.HandleFunc("GET /api/calendar.ics", s.icsH.Export)
	mux.HandleFunc("POST /api/calendar.ics", s.rateLimitedHandler(s.icsH.Import))

	// Snapshots
	mux.HandleFunc("GET /api/snapshots", s.snapshotH.List)
	mux.HandleFunc("GET /api/snapshots/status", s.snapshotH.Status)
	mux.HandleFunc("POST /api/snapshots", s.rateLimitedHandler(s.snapshotH.Create))
	mux.HandleFunc("GET /api/snapshots/{id}/download", s.snapshotH.Download)
	mux.HandleFunc("POST /api/snapshots/{id}/restore", s.rateLimitedHandler(s.snapshotH.Restore))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.Origins))
}
