package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
)

// SlotStore is a durable key-value store of named slots. It backs the
// calendar store's persistence.
type SlotStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSlotStore(db *sql.DB) *SlotStore {
	return &SlotStore{db: db, now: time.Now}
}

// Get returns the slot, or nil when it has never been written.
func (s *SlotStore) Get(name string) (*model.Slot, error) {
	var slot model.Slot
	err := s.db.QueryRow(
		`SELECT name, value, updated_at FROM storage_slots WHERE name = ?`, name,
	).Scan(&slot.Name, &slot.Value, &slot.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %q: %w", name, err)
	}
	return &slot, nil
}

// Load returns the slot's value, or nil when it has never been written.
func (s *SlotStore) Load(name string) ([]byte, error) {
	slot, err := s.Get(name)
	if err != nil || slot == nil {
		return nil, err
	}
	return []byte(slot.Value), nil
}

// Save overwrites the slot.
func (s *SlotStore) Save(name string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO storage_slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, string(value), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save slot %q: %w", name, err)
	}
	return nil
}

// Delete removes the slot. Missing slots are not an error.
func (s *SlotStore) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM storage_slots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	return nil
}
