// Package calendar holds the canonical event collection and the view and
// selection state of the calendar surface.
//
// A Store is created once by the application root and passed to every
// consumer. It hydrates from a Persister on creation and writes the events
// and view back after every mutating call. A failed write is logged and
// dropped: the in-memory state stays authoritative for the session.
//
// The store performs no validation of titles, colours or interval order.
// Callers that edit events are expected to check title != "" and
// end > start before calling AddEvent or UpdateEvent.
package calendar

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/timeaxis"
	"github.com/google/uuid"
)

// DefaultStorageKey names the slot the store persists to.
const DefaultStorageKey = "timegrid-calendar-storage"

var ErrMalformedState = errors.New("malformed calendar state")

// Persister is a durable key-value slot. Load returns (nil, nil) when the
// slot has never been written.
type Persister interface {
	Load(name string) ([]byte, error)
	Save(name string, value []byte) error
}

// Change describes a mutation, for live renderers.
type Change struct {
	Entity string
	Action string
	ID     string
}

const (
	EntityEvent = "calendar_event"
	EntityView  = "view"

	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionChanged  = "changed"
	ActionRestored = "restored"
)

type Options struct {
	StorageKey string
	Location   *time.Location
	WeekStart  time.Weekday
	Now        func() time.Time
	// NewSuffix returns the random part of event ids.
	NewSuffix func() string
	Logger    *slog.Logger
	OnChange  func(Change)
}

type Store struct {
	mu     sync.Mutex
	events []model.CalendarEvent
	state  model.ViewState

	persister  Persister
	key        string
	loc        *time.Location
	weekStart  time.Weekday
	now        func() time.Time
	newSuffix  func() string
	lastMillis int64
	logger     *slog.Logger
	onChange   func(Change)
}

// New creates a store and hydrates it from the persister. A slot that is
// missing or malformed yields an empty collection in month view; an error
// reading the slot is returned so the caller does not overwrite data it
// could not see.
func New(p Persister, opts Options) (*Store, error) {
	s := &Store{
		persister: p,
		key:       opts.StorageKey,
		loc:       opts.Location,
		weekStart: opts.WeekStart,
		now:       opts.Now,
		newSuffix: opts.NewSuffix,
		logger:    opts.Logger,
		onChange:  opts.OnChange,
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newSuffix == nil {
		s.newSuffix = randomSuffix
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.state = model.ViewState{
		View:        model.ViewMonth,
		CurrentDate: s.today(),
	}

	if p == nil {
		return s, nil
	}
	data, err := p.Load(s.key)
	if err != nil {
		return nil, fmt.Errorf("load calendar state: %w", err)
	}
	if data == nil {
		return s, nil
	}
	st, err := decodeState(data)
	if err != nil {
		s.logger.Warn("ignoring persisted calendar state", "key", s.key, "error", err)
		return s, nil
	}
	s.events = st.Events
	s.state.View = st.View
	s.logger.Info("calendar hydrated", "key", s.key, "events", len(s.events), "view", st.View)
	return s, nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

func (s *Store) today() time.Time {
	return timeaxis.DayStart(s.now(), s.loc)
}

// Location is the zone used for day bucketing.
func (s *Store) Location() *time.Location { return s.loc }

// WeekStart is the first weekday of week and month grids.
func (s *Store) WeekStart() time.Weekday { return s.weekStart }

// nextID combines a clock reading that never goes backwards with a random
// suffix, and retries in the unlikely case the result is already taken.
// Callers hold s.mu.
func (s *Store) nextID() string {
	ms := s.now().UnixMilli()
	if ms <= s.lastMillis {
		ms = s.lastMillis + 1
	}
	s.lastMillis = ms
	prefix := strconv.FormatInt(ms, 10) + "-"
	for {
		id := prefix + s.newSuffix()
		if s.indexLocked(id) < 0 {
			return id
		}
	}
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.events, func(e model.CalendarEvent) bool { return e.ID == id })
}

// persistLocked writes events and view. Callers hold s.mu.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	data, err := encodeState(s.events, s.state.View)
	if err != nil {
		s.logger.Warn("encode calendar state", "error", err)
		return
	}
	if err := s.persister.Save(s.key, data); err != nil {
		s.logger.Warn("persist calendar state", "key", s.key, "error", err)
	}
}

func (s *Store) notify(c Change) {
	if s.onChange != nil {
		s.onChange(c)
	}
}

// AddEvent stores a new event and returns its fresh id. Start and End must
// parse as ISO-8601; nothing else is checked.
func (s *Store) AddEvent(in model.EventInput) (string, error) {
	start, err := timeaxis.ParseTimestamp(in.Start, s.loc)
	if err != nil {
		return "", fmt.Errorf("parse start: %w", err)
	}
	end, err := timeaxis.ParseTimestamp(in.End, s.loc)
	if err != nil {
		return "", fmt.Errorf("parse end: %w", err)
	}

	s.mu.Lock()
	id := s.nextID()
	s.events = append(s.events, model.CalendarEvent{
		ID:          id,
		Title:       in.Title,
		Start:       start,
		End:         end,
		Color:       in.Color,
		Description: in.Description,
	})
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Change{Entity: EntityEvent, Action: ActionCreated, ID: id})
	return id, nil
}

// UpdateEvent merges the non-nil fields of u into the event with the given
// id. An unknown id is a silent no-op: editors may submit against a record
// that was deleted meanwhile, and that staleness is tolerated rather than
// reported. Only a malformed timestamp returns an error.
func (s *Store) UpdateEvent(id string, u model.EventUpdate) error {
	var start, end time.Time
	var err error
	if u.Start != nil {
		if start, err = timeaxis.ParseTimestamp(*u.Start, s.loc); err != nil {
			return fmt.Errorf("parse start: %w", err)
		}
	}
	if u.End != nil {
		if end, err = timeaxis.ParseTimestamp(*u.End, s.loc); err != nil {
			return fmt.Errorf("parse end: %w", err)
		}
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	e := &s.events[i]
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Start != nil {
		e.Start = start
	}
	if u.End != nil {
		e.End = end
	}
	if u.Color != nil {
		e.Color = *u.Color
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Change{Entity: EntityEvent, Action: ActionUpdated, ID: id})
	return nil
}

// DeleteEvent removes the event and clears the selection if it pointed at
// it. The modal flag is left alone. Unknown ids are ignored.
func (s *Store) DeleteEvent(id string) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.events = slices.Delete(s.events, i, i+1)
	if s.state.SelectedEventID == id {
		s.state.SelectedEventID = ""
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Change{Entity: EntityEvent, Action: ActionDeleted, ID: id})
}

// Event looks an event up by id.
func (s *Store) Event(id string) (model.CalendarEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.CalendarEvent{}, false
	}
	return s.events[i], true
}

// Events returns a copy of the collection in insertion order.
func (s *Store) Events() []model.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Len is the number of stored events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// EventsForDate returns events whose start falls on date's local day. An
// event running past midnight belongs only to its start day.
func (s *Store) EventsForDate(date time.Time) []model.CalendarEvent {
	key := timeaxis.DayKey(date, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CalendarEvent
	for _, e := range s.events {
		if timeaxis.DayKey(e.Start, s.loc) == key {
			out = append(out, e)
		}
	}
	return out
}

// EventsInRange returns events intersecting [start, end): the event starts
// inside the range, ends inside it, or spans it. For well-formed events
// this is the half-open test eventStart < end && eventEnd > start.
func (s *Store) EventsInRange(start, end time.Time) []model.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CalendarEvent
	for _, e := range s.events {
		startsIn := !e.Start.Before(start) && e.Start.Before(end)
		endsIn := e.End.After(start) && !e.End.After(end)
		spans := e.Start.Before(start) && e.End.After(end)
		if startsIn || endsIn || spans {
			out = append(out, e)
		}
	}
	return out
}

// State returns the current navigation and selection state.
func (s *Store) State() model.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) setState(fn func(*model.ViewState)) {
	s.mu.Lock()
	fn(&s.state)
	s.persistLocked()
	s.mu.Unlock()
	s.notify(Change{Entity: EntityView, Action: ActionChanged})
}

func (s *Store) SetView(v model.View) {
	s.setState(func(st *model.ViewState) { st.View = v })
}

func (s *Store) SetCurrentDate(t time.Time) {
	s.setState(func(st *model.ViewState) { st.CurrentDate = t })
}

// GoToToday focuses local midnight of the current day.
func (s *Store) GoToToday() {
	today := s.today()
	s.setState(func(st *model.ViewState) { st.CurrentDate = today })
}

// Navigate moves the focused date by n periods of the current view.
func (s *Store) Navigate(n int) {
	s.setState(func(st *model.ViewState) {
		st.CurrentDate = timeaxis.Shift(st.View, st.CurrentDate, n)
	})
}

// OpenEventModal opens the editor. An empty id starts the create flow, a
// non-empty id edits that event.
func (s *Store) OpenEventModal(id string) {
	s.setState(func(st *model.ViewState) {
		st.SelectedEventID = id
		st.ModalOpen = true
	})
}

// CloseEventModal closes the editor and clears the selection.
func (s *Store) CloseEventModal() {
	s.setState(func(st *model.ViewState) {
		st.SelectedEventID = ""
		st.ModalOpen = false
	})
}

// VisibleDays lists the days rendered by the current view.
func (s *Store) VisibleDays() []time.Time {
	st := s.State()
	return timeaxis.VisibleDays(st.View, st.CurrentDate.In(s.loc), s.weekStart)
}

// Snapshot returns the persisted form of the events and view, along with
// the number of events it holds.
func (s *Store) Snapshot() ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := encodeState(s.events, s.state.View)
	if err != nil {
		return nil, 0, err
	}
	return data, len(s.events), nil
}

// Restore replaces events and view with a previously taken snapshot. The
// selection is cleared and the modal closed.
func (s *Store) Restore(data []byte) error {
	st, err := decodeState(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.events = st.Events
	s.state.View = st.View
	s.state.SelectedEventID = ""
	s.state.ModalOpen = false
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Change{Entity: EntityEvent, Action: ActionRestored})
	return nil
}
