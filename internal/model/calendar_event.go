package model

import "time"

// CalendarEvent is a titled time interval. Events are owned by the
// calendar store; other packages keep only the ID and re-fetch.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
}

// Duration returns End - Start. It may be zero or negative for events the
// editor failed to validate.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// EventInput is the record accepted from the editor form. Start and End
// are ISO-8601 timestamps.
type EventInput struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// EventUpdate carries the fields of a partial update. Nil fields are left
// untouched.
type EventUpdate struct {
	Title       *string `json:"title,omitempty"`
	Start       *string `json:"start,omitempty"`
	End         *string `json:"end,omitempty"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u EventUpdate) Empty() bool {
	return u.Title == nil && u.Start == nil && u.End == nil && u.Color == nil && u.Description == nil
}
