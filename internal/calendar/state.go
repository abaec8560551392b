package calendar

import (
	"encoding/json"
	"fmt"

	"github.com/dukerupert/timegrid/internal/model"
)

const stateVersion = 0

// envelope is the persisted layout of the slot: only events and view are
// kept. The focused date and selection always reset on load.
type envelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Events []model.CalendarEvent `json:"events"`
	View   model.View            `json:"view"`
}

func encodeState(events []model.CalendarEvent, view model.View) ([]byte, error) {
	if events == nil {
		events = []model.CalendarEvent{}
	}
	data, err := json.Marshal(envelope{
		State:   persistedState{Events: events, View: view},
		Version: stateVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal calendar state: %w", err)
	}
	return data, nil
}

// decodeState parses a slot. Unknown views fall back to month and
// duplicate ids keep their first occurrence.
func decodeState(data []byte) (persistedState, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return persistedState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if env.Version != stateVersion {
		return persistedState{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedState, env.Version)
	}

	st := env.State
	if v, err := model.ParseView(string(st.View)); err == nil {
		st.View = v
	} else {
		st.View = model.ViewMonth
	}

	seen := make(map[string]bool, len(st.Events))
	events := make([]model.CalendarEvent, 0, len(st.Events))
	for _, e := range st.Events {
		if e.ID == "" || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		events = append(events, e)
	}
	st.Events = events
	return st, nil
}
