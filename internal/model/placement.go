package model

// Position is the vertical extent of an event on a day's time axis, in pixels.
type Position struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Assignment is the column slot of an event within its overlap group.
type Assignment struct {
	Column       int `json:"column"`
	TotalColumns int `json:"total_columns"`
}

// Placement is everything a renderer needs to draw one event in a day column.
type Placement struct {
	Event CalendarEvent `json:"event"`
	Position
	Assignment
	LeftPercent  float64 `json:"left_percent"`
	WidthPercent float64 `json:"width_percent"`
}
