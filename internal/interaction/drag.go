// Package interaction turns pointer gestures on the time grid into
// calendar mutations.
package interaction

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
	"github.com/dukerupert/timegrid/internal/timeaxis"
)

// Button identifies the pointer button of a press.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// EventAdder is the part of the calendar store a drag commits to.
type EventAdder interface {
	AddEvent(in model.EventInput) (string, error)
}

type DragConfig struct {
	PixelsPerHour float64
	SnapMinutes   int
	DefaultTitle  string
	DefaultColor  string
}

func (c DragConfig) withDefaults() DragConfig {
	if c.PixelsPerHour <= 0 {
		c.PixelsPerHour = timeaxis.DefaultPixelsPerHour
	}
	if c.SnapMinutes <= 0 {
		c.SnapMinutes = timeaxis.DefaultSnapMinutes
	}
	if c.DefaultTitle == "" {
		c.DefaultTitle = "New Event"
	}
	if c.DefaultColor == "" {
		c.DefaultColor = model.Palette[0].Value
	}
	return c
}

// DragState is Idle when Dragging is false.
type DragState struct {
	Dragging bool    `json:"dragging"`
	DayIndex int     `json:"day_index"`
	AnchorY  float64 `json:"anchor_y"`
	CurrentY float64 `json:"current_y"`
}

// DragCreator is the drag-to-create state machine:
//
//	Idle --PointerDown--> Dragging --PointerMove--> Dragging
//	Dragging --PointerUp--> Idle (adds an event)
//	Dragging --Cancel--> Idle
type DragCreator struct {
	mu    sync.Mutex
	cfg   DragConfig
	adder EventAdder
	days  []time.Time
	state DragState
	day   time.Time // column under the active drag
}

func NewDragCreator(adder EventAdder, cfg DragConfig) *DragCreator {
	return &DragCreator{adder: adder, cfg: cfg.withDefaults()}
}

// SetDays sets the day columns currently rendered; dayIndex in pointer
// events refers to this slice. A drag in progress keeps the day it started
// on.
func (d *DragCreator) SetDays(days []time.Time) {
	d.mu.Lock()
	d.days = append([]time.Time(nil), days...)
	d.mu.Unlock()
}

func (d *DragCreator) dayHeight() float64 {
	return timeaxis.DayHeight(d.cfg.PixelsPerHour)
}

// PointerDown starts a drag on a day column. Only primary presses on a
// known column start one; it reports whether the state changed.
func (d *DragCreator) PointerDown(dayIndex int, y float64, button Button) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Dragging || button != ButtonPrimary {
		return false
	}
	if dayIndex < 0 || dayIndex >= len(d.days) {
		return false
	}
	d.state = DragState{Dragging: true, DayIndex: dayIndex, AnchorY: y, CurrentY: y}
	d.day = d.days[dayIndex]
	return true
}

// PointerMove tracks the pointer, clamped to the day's pixel extent. It is
// a pure coordinate update and ignored while idle.
func (d *DragCreator) PointerMove(y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Dragging {
		return
	}
	d.state.CurrentY = math.Max(0, math.Min(y, d.dayHeight()))
}

// PointerUp ends the drag and adds an event spanning the dragged range,
// at least a quarter hour long, with both ends snapped to the grid. A
// release without movement therefore quick-adds a 15 minute event. It
// returns "" when no drag was active.
func (d *DragCreator) PointerUp() (string, error) {
	d.mu.Lock()
	st := d.state
	d.state = DragState{}
	if !st.Dragging {
		d.mu.Unlock()
		return "", nil
	}
	day := d.day
	d.mu.Unlock()

	startY := math.Min(st.AnchorY, st.CurrentY)
	endY := math.Max(st.AnchorY, st.CurrentY)
	if minSpan := d.cfg.PixelsPerHour / 4; endY-startY < minSpan {
		endY = startY + minSpan
	}

	dayStart := timeaxis.DayStart(day, day.Location())
	start := timeaxis.SnapToGrid(timeaxis.TimeAtPosition(startY, dayStart, d.cfg.PixelsPerHour), d.cfg.SnapMinutes)
	end := timeaxis.SnapToGrid(timeaxis.TimeAtPosition(endY, dayStart, d.cfg.PixelsPerHour), d.cfg.SnapMinutes)

	id, err := d.adder.AddEvent(model.EventInput{
		Title: d.cfg.DefaultTitle,
		Start: start.Format(time.RFC3339),
		End:   end.Format(time.RFC3339),
		Color: d.cfg.DefaultColor,
	})
	if err != nil {
		return "", fmt.Errorf("add dragged event: %w", err)
	}
	return id, nil
}

// Cancel abandons a drag without creating anything. It reports whether a
// drag was active.
func (d *DragCreator) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.state.Dragging
	d.state = DragState{}
	return was
}

func (d *DragCreator) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Preview is the ghost rectangle drawn while dragging, in the dragged
// column's pixel space. ok is false while idle.
func (d *DragCreator) Preview() (pos model.Position, dayIndex int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Dragging {
		return model.Position{}, 0, false
	}
	return model.Position{
		Top:    math.Min(d.state.AnchorY, d.state.CurrentY),
		Height: math.Abs(d.state.CurrentY - d.state.AnchorY),
	}, d.state.DayIndex, true
}
