package model

import "time"

// Slot is one named value of the durable key-value store.
type Slot struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
