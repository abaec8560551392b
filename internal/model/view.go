package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidView = errors.New("invalid view")

type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

// ParseView accepts "month", "week" or "day" in any case.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewMonth, ViewWeek, ViewDay:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
}

// ViewState is the navigation and selection state exposed to renderers.
// SelectedEventID is empty when nothing is selected.
type ViewState struct {
	View            View      `json:"view"`
	CurrentDate     time.Time `json:"current_date"`
	SelectedEventID string    `json:"selected_event_id,omitempty"`
	ModalOpen       bool      `json:"modal_open"`
}

// Creating reports whether the modal is open on the create flow.
func (s ViewState) Creating() bool {
	return s.ModalOpen && s.SelectedEventID == ""
}
