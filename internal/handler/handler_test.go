package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/timegrid/internal/backup"
	"github.com/dukerupert/timegrid/internal/calendar"
	"github.com/dukerupert/timegrid/internal/interaction"
	"github.com/dukerupert/timegrid/internal/model"
)

var testNow = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) *calendar.Store {
	t.Helper()
	s, err := calendar.New(nil, calendar.Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func doRequest(t *testing.T, h http.HandlerFunc, method, target, body string, pathValues ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func addEvent(t *testing.T, s *calendar.Store, title, start, end string) string {
	t.Helper()
	id, err := s.AddEvent(model.EventInput{Title: title, Start: start, End: end, Color: "#3b82f6"})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	return id
}

func TestCreateEvent(t *testing.T) {
	s := setupStore(t)
	h := NewCalendarEventHandler(s, discardLogger())

	rec := doRequest(t, h.Create, "POST", "/api/events",
		`{"title":"  Standup ","start":"2024-01-01T09:00:00Z","end":"2024-01-01T09:15:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	got := decode[model.CalendarEvent](t, rec)
	if got.ID == "" || got.Title != "Standup" {
		t.Errorf("event = %+v", got)
	}
	if got.Color != "#3b82f6" {
		t.Errorf("color = %q, want default blue", got.Color)
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1", s.Len())
	}
}

func TestCreateEventValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"blank title", `{"title":"  ","start":"2024-01-01T09:00:00Z","end":"2024-01-01T10:00:00Z"}`},
		{"bad start", `{"title":"x","start":"tomorrow","end":"2024-01-01T10:00:00Z"}`},
		{"bad end", `{"title":"x","start":"2024-01-01T09:00:00Z","end":""}`},
		{"end before start", `{"title":"x","start":"2024-01-01T10:00:00Z","end":"2024-01-01T09:00:00Z"}`},
		{"zero length", `{"title":"x","start":"2024-01-01T10:00","end":"2024-01-01T10:00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStore(t)
			h := NewCalendarEventHandler(s, discardLogger())
			rec := doRequest(t, h.Create, "POST", "/api/events", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if s.Len() != 0 {
				t.Errorf("store len = %d, want 0", s.Len())
			}
		})
	}
}

func TestListEvents(t *testing.T) {
	s := setupStore(t)
	h := NewCalendarEventHandler(s, discardLogger())
	addEvent(t, s, "A", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")
	addEvent(t, s, "B", "2024-01-02T09:00:00Z", "2024-01-02T10:00:00Z")

	tests := []struct {
		target string
		want   int
	}{
		{"/api/events", 2},
		{"/api/events?date=2024-01-02", 1},
		{"/api/events?start=2024-01-01T10:00:00Z&end=2024-01-03", 1},
		{"/api/events?start=2024-02-01&end=2024-03-01", 0},
	}
	for _, tt := range tests {
		rec := doRequest(t, h.List, "GET", tt.target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.target, rec.Code)
		}
		if got := decode[[]model.CalendarEvent](t, rec); len(got) != tt.want {
			t.Errorf("%s: len = %d, want %d", tt.target, len(got), tt.want)
		}
	}

	rec := doRequest(t, h.List, "GET", "/api/events?start=nope&end=2024-01-01", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start: status = %d, want 400", rec.Code)
	}
}

func TestGetEventNotFound(t *testing.T) {
	h := NewCalendarEventHandler(setupStore(t), discardLogger())
	rec := doRequest(t, h.Get, "GET", "/api/events/x", "", "id", "x")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateEvent(t *testing.T) {
	s := setupStore(t)
	h := NewCalendarEventHandler(s, discardLogger())
	id := addEvent(t, s, "A", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")

	rec := doRequest(t, h.Update, "PATCH", "/api/events/"+id, `{"title":"Renamed"}`, "id", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[model.CalendarEvent](t, rec); got.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", got.Title)
	}

	// Only the start moves, past the stored end.
	rec = doRequest(t, h.Update, "PATCH", "/api/events/"+id, `{"start":"2024-01-01T11:00:00Z"}`, "id", id)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("start past end: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, h.Update, "PATCH", "/api/events/"+id, `{}`, "id", id)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty update: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, h.Update, "PATCH", "/api/events/missing", `{"title":"x"}`, "id", "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", rec.Code)
	}
}

func TestDeleteEvent(t *testing.T) {
	s := setupStore(t)
	h := NewCalendarEventHandler(s, discardLogger())
	id := addEvent(t, s, "A", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")

	rec := doRequest(t, h.Delete, "DELETE", "/api/events/"+id, "", "id", id)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	rec = doRequest(t, h.Delete, "DELETE", "/api/events/"+id, "", "id", id)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

type stateBody struct {
	View            string   `json:"view"`
	CurrentDate     string   `json:"current_date"`
	SelectedEventID string   `json:"selected_event_id"`
	ModalOpen       bool     `json:"modal_open"`
	Creating        bool     `json:"creating"`
	VisibleDays     []string `json:"visible_days"`
}

func TestViewTransitions(t *testing.T) {
	s := setupStore(t)
	h := NewViewHandler(s)

	st := decode[stateBody](t, doRequest(t, h.State, "GET", "/api/state", ""))
	if st.View != "month" || len(st.VisibleDays)%7 != 0 {
		t.Errorf("initial state = %+v", st)
	}

	st = decode[stateBody](t, doRequest(t, h.SetView, "PUT", "/api/view", `{"view":"Week"}`))
	if st.View != "week" || len(st.VisibleDays) != 7 || st.VisibleDays[0] != "2023-12-31" {
		t.Errorf("week state = %+v", st)
	}

	st = decode[stateBody](t, doRequest(t, h.Navigate, "POST", "/api/navigate?step=-1", ""))
	if st.VisibleDays[0] != "2023-12-24" {
		t.Errorf("after navigate back, first day = %s, want 2023-12-24", st.VisibleDays[0])
	}

	st = decode[stateBody](t, doRequest(t, h.Today, "POST", "/api/today", ""))
	if st.VisibleDays[0] != "2023-12-31" {
		t.Errorf("after today, first day = %s, want 2023-12-31", st.VisibleDays[0])
	}

	st = decode[stateBody](t, doRequest(t, h.SetDate, "PUT", "/api/date", `{"date":"2024-03-15"}`))
	if !strings.HasPrefix(st.CurrentDate, "2024-03-15") {
		t.Errorf("current date = %s", st.CurrentDate)
	}

	if rec := doRequest(t, h.SetView, "PUT", "/api/view", `{"view":"year"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid view: status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, h.Navigate, "POST", "/api/navigate?step=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid step: status = %d, want 400", rec.Code)
	}
}

func TestModal(t *testing.T) {
	s := setupStore(t)
	h := NewViewHandler(s)
	id := addEvent(t, s, "A", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")

	st := decode[stateBody](t, doRequest(t, h.OpenModal, "POST", "/api/modal", ""))
	if !st.ModalOpen || !st.Creating {
		t.Errorf("create flow state = %+v", st)
	}

	st = decode[stateBody](t, doRequest(t, h.OpenModal, "POST", "/api/modal", `{"event_id":"`+id+`"}`))
	if !st.ModalOpen || st.Creating || st.SelectedEventID != id {
		t.Errorf("edit flow state = %+v", st)
	}

	st = decode[stateBody](t, doRequest(t, h.CloseModal, "DELETE", "/api/modal", ""))
	if st.ModalOpen || st.SelectedEventID != "" {
		t.Errorf("closed state = %+v", st)
	}

	if rec := doRequest(t, h.OpenModal, "POST", "/api/modal", `{"event_id":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown event: status = %d, want 404", rec.Code)
	}
}

func TestDayLayout(t *testing.T) {
	s := setupStore(t)
	h := NewLayoutHandler(s, 60)
	addEvent(t, s, "A", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")
	addEvent(t, s, "B", "2024-01-01T09:30:00Z", "2024-01-01T10:30:00Z")
	addEvent(t, s, "C", "2024-01-02T09:00:00Z", "2024-01-02T10:00:00Z")

	rec := doRequest(t, h.Day, "GET", "/api/layout/day?date=2024-01-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	col := decode[dayColumn](t, rec)
	if col.Date != "2024-01-01" || col.Height != 1440 {
		t.Errorf("column = %+v", col)
	}
	if len(col.Placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(col.Placements))
	}
	for _, p := range col.Placements {
		if p.WidthPercent != 50 || p.TotalColumns != 2 {
			t.Errorf("placement %s = %+v, want half width of 2 columns", p.Event.Title, p)
		}
	}
	if col.Placements[0].Top != 540 {
		t.Errorf("top = %v, want 540", col.Placements[0].Top)
	}
}

func TestWeekAndMonthLayout(t *testing.T) {
	s := setupStore(t)
	h := NewLayoutHandler(s, 60)
	addEvent(t, s, "A", "2024-01-03T09:00:00Z", "2024-01-03T10:00:00Z")

	week := decode[[]dayColumn](t, doRequest(t, h.Week, "GET", "/api/layout/week?date=2024-01-03", ""))
	if len(week) != 7 || week[0].Date != "2023-12-31" {
		t.Fatalf("week = %d columns starting %s", len(week), week[0].Date)
	}
	if len(week[3].Placements) != 1 {
		t.Errorf("wednesday placements = %d, want 1", len(week[3].Placements))
	}

	month := decode[[]monthCell](t, doRequest(t, h.Month, "GET", "/api/layout/month?date=2024-01-15", ""))
	if len(month) != 35 {
		t.Fatalf("month cells = %d, want 35", len(month))
	}
	if month[0].InMonth || !month[1].InMonth {
		t.Errorf("in_month flags wrong: %+v %+v", month[0], month[1])
	}
	if len(month[3].Events) != 1 {
		t.Errorf("jan 3 events = %d, want 1", len(month[4].Events))
	}

	slots := decode[[]string](t, doRequest(t, h.Slots, "GET", "/api/slots?date=2024-01-03", ""))
	if len(slots) != 96 || slots[1] != "2024-01-03T00:15:00Z" {
		t.Errorf("slots = %d, second %v", len(slots), slots[1])
	}

	if rec := doRequest(t, h.Day, "GET", "/api/layout/day?date=bad", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestDragCreate(t *testing.T) {
	s := setupStore(t)
	s.SetView(model.ViewWeek)
	h := NewDragHandler(interaction.NewDragCreator(s, interaction.DragConfig{}), s, discardLogger())

	rec := doRequest(t, h.Down, "POST", "/api/drag/down", `{"day_index":1,"y":120}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("down: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, h.Move, "POST", "/api/drag/move", `{"y":130}`)
	drag := decode[dragResponse](t, rec)
	if !drag.State.Dragging || drag.Preview == nil || drag.Preview.Height != 10 {
		t.Errorf("drag after move = %+v", drag)
	}

	rec = doRequest(t, h.Up, "POST", "/api/drag/up", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("up: status = %d: %s", rec.Code, rec.Body.String())
	}
	ev := decode[model.CalendarEvent](t, rec)
	wantStart := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(wantStart) || !ev.End.Equal(wantStart.Add(15*time.Minute)) {
		t.Errorf("event = %v..%v, want 02:00..02:15", ev.Start, ev.End)
	}
	if ev.Title != "New Event" {
		t.Errorf("title = %q", ev.Title)
	}

	if rec := doRequest(t, h.Up, "POST", "/api/drag/up", ""); rec.Code != http.StatusConflict {
		t.Errorf("idle up: status = %d, want 409", rec.Code)
	}
}

func TestDragRejectedInMonthView(t *testing.T) {
	s := setupStore(t)
	h := NewDragHandler(interaction.NewDragCreator(s, interaction.DragConfig{}), s, discardLogger())

	if rec := doRequest(t, h.Down, "POST", "/api/drag/down", `{"day_index":0,"y":10}`); rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestDragCancel(t *testing.T) {
	s := setupStore(t)
	s.SetView(model.ViewDay)
	h := NewDragHandler(interaction.NewDragCreator(s, interaction.DragConfig{}), s, discardLogger())

	doRequest(t, h.Down, "POST", "/api/drag/down", `{"day_index":0,"y":60}`)
	got := decode[map[string]bool](t, doRequest(t, h.Cancel, "POST", "/api/drag/cancel", ""))
	if !got["cancelled"] {
		t.Error("expected cancelled = true")
	}
	if s.Len() != 0 {
		t.Errorf("store len = %d, want 0", s.Len())
	}
}

func TestICSExportImport(t *testing.T) {
	src := setupStore(t)
	addEvent(t, src, "Planning", "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z")
	export := doRequest(t, NewICSHandler(src, "", discardLogger()).Export, "GET", "/api/calendar.ics", "")
	if ct := export.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(export.Body.String(), "SUMMARY:Planning") {
		t.Errorf("export missing event: %s", export.Body.String())
	}

	dst := setupStore(t)
	req := httptest.NewRequest("POST", "/api/calendar.ics", bytes.NewReader(export.Body.Bytes()))
	rec := httptest.NewRecorder()
	NewICSHandler(dst, "#3b82f6", discardLogger()).Import(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: status = %d: %s", rec.Code, rec.Body.String())
	}
	if dst.Len() != 1 {
		t.Errorf("imported = %d, want 1", dst.Len())
	}

	rec = doRequest(t, NewICSHandler(dst, "", discardLogger()).Import, "POST", "/api/calendar.ics", "not a calendar")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("garbage import: status = %d, want 400", rec.Code)
	}
}

func TestSnapshotsNotConfigured(t *testing.T) {
	h := NewSnapshotHandler(backup.NewManager(backup.Config{}, setupStore(t), nil, nil), discardLogger())

	if rec := doRequest(t, h.Create, "POST", "/api/snapshots", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("create: status = %d, want 503", rec.Code)
	}
	if rec := doRequest(t, h.Restore, "POST", "/api/snapshots/1/restore", "", "id", "1"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("restore: status = %d, want 503", rec.Code)
	}
	if rec := doRequest(t, h.Restore, "POST", "/api/snapshots/x/restore", "", "id", "x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
	st := decode[backup.Status](t, doRequest(t, h.Status, "GET", "/api/snapshots/status", ""))
	if st.State != backup.StateDisabled {
		t.Errorf("state = %q, want disabled", st.State)
	}
}
