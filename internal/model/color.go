package model

// EventColor is a named swatch offered by the editor. The store never
// inspects colours; these exist for renderers and defaults.
type EventColor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

var Palette = []EventColor{
	{ID: "blue", Name: "Blue", Value: "#3b82f6"},
	{ID: "purple", Name: "Purple", Value: "#a855f7"},
	{ID: "pink", Name: "Pink", Value: "#ec4899"},
	{ID: "red", Name: "Red", Value: "#ef4444"},
	{ID: "orange", Name: "Orange", Value: "#f97316"},
	{ID: "amber", Name: "Amber", Value: "#f59e0b"},
	{ID: "green", Name: "Green", Value: "#10b981"},
	{ID: "teal", Name: "Teal", Value: "#14b8a6"},
	{ID: "cyan", Name: "Cyan", Value: "#06b6d4"},
	{ID: "indigo", Name: "Indigo", Value: "#6366f1"},
	{ID: "slate", Name: "Slate", Value: "#64748b"},
	{ID: "gray", Name: "Gray", Value: "#6b7280"},
}

// ColorByID returns the palette entry with the given id, or blue.
func ColorByID(id string) EventColor {
	for _, c := range Palette {
		if c.ID == id {
			return c
		}
	}
	return Palette[0]
}

// ColorByValue looks a swatch up by its hex value.
func ColorByValue(value string) (EventColor, bool) {
	for _, c := range Palette {
		if c.Value == value {
			return c, true
		}
	}
	return EventColor{}, false
}
