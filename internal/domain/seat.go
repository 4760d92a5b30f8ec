package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// SeatState represents the lifecycle state of a single seat
type SeatState string

const (
	SeatAvailable SeatState = "available"
	SeatReserved  SeatState = "reserved"
	SeatBooked    SeatState = "booked"
	// SeatNotFound is reported by Status for seats that are not part of the map
	SeatNotFound SeatState = "not_found"
)

// validSeatTransitions defines allowed seat transitions
// Key is current state, value is list of allowed next states
var validSeatTransitions = map[SeatState][]SeatState{
	SeatAvailable: {SeatReserved},
	SeatReserved:  {SeatBooked, SeatAvailable},
	SeatBooked:    {SeatAvailable},
}

// IsValid returns true if the state can be stored in a seat map
func (s SeatState) IsValid() bool {
	_, exists := validSeatTransitions[s]
	return exists
}

// CanTransitionTo returns true if transition to the target state is allowed
func (s SeatState) CanTransitionTo(target SeatState) bool {
	for _, allowed := range validSeatTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SeatSnapshot is a single (seat_id, state) pair
type SeatSnapshot struct {
	SeatID string    `json:"seat_id"`
	State  SeatState `json:"state"`
}

// SeatMap maps seat ids to their state for one event.
// It carries its own lock so snapshots stay consistent when read outside the event lock.
type SeatMap struct {
	mu    sync.RWMutex
	seats map[string]SeatState
}

// NewSeatMap creates a seat map with every given seat Available
func NewSeatMap(seatIDs ...string) *SeatMap {
	m := &SeatMap{seats: make(map[string]SeatState, len(seatIDs))}
	for _, id := range seatIDs {
		m.seats[id] = SeatAvailable
	}
	return m
}

// SeatMapFromStates builds a seat map from stored states
func SeatMapFromStates(states map[string]SeatState) (*SeatMap, error) {
	m := &SeatMap{seats: make(map[string]SeatState, len(states))}
	for id, state := range states {
		if !state.IsValid() {
			return nil, fmt.Errorf("seat %s has unknown state %q", id, state)
		}
		m.seats[id] = state
	}
	return m, nil
}

// Len returns the number of seats in the map
func (m *SeatMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seats)
}

// Status returns the state of a seat, or SeatNotFound
func (m *SeatMap) Status(seatID string) SeatState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.seats[seatID]
	if !ok {
		return SeatNotFound
	}
	return state
}

// Transition moves one seat from one state to another
func (m *SeatMap) Transition(seatID string, from, to SeatState) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSeatTransition, from, to)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.seats[seatID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSeatNotFound, seatID)
	}
	if current != from {
		return fmt.Errorf("%w: seat %s is %s, expected %s", ErrSeatConflict, seatID, current, from)
	}
	m.seats[seatID] = to
	return nil
}

// TransitionAll moves every seat from one state to another, or none of them.
// Repeated seat ids count as conflicts.
func (m *SeatMap) TransitionAll(seatIDs []string, from, to SeatState) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSeatTransition, from, to)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var conflict SeatConflictError
	seen := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if _, dup := seen[id]; dup {
			conflict.Conflicting = append(conflict.Conflicting, id)
			continue
		}
		seen[id] = struct{}{}

		current, ok := m.seats[id]
		switch {
		case !ok:
			conflict.Missing = append(conflict.Missing, id)
		case current != from:
			conflict.Conflicting = append(conflict.Conflicting, id)
		}
	}
	if len(conflict.Missing) > 0 || len(conflict.Conflicting) > 0 {
		return &conflict
	}

	for _, id := range seatIDs {
		m.seats[id] = to
	}
	return nil
}

// ReleaseAll moves every seat currently in from back to Available and returns the released seats.
// Seats in any other state are left untouched.
func (m *SeatMap) ReleaseAll(seatIDs []string, from SeatState) []string {
	if !from.CanTransitionTo(SeatAvailable) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	released := make([]string, 0, len(seatIDs))
	for _, id := range seatIDs {
		if current, ok := m.seats[id]; ok && current == from {
			m.seats[id] = SeatAvailable
			released = append(released, id)
		}
	}
	return released
}

// States returns a copy of the seat states
func (m *SeatMap) States() map[string]SeatState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]SeatState, len(m.seats))
	for id, state := range m.seats {
		out[id] = state
	}
	return out
}

// Snapshot returns every seat ordered by seat id
func (m *SeatMap) Snapshot() []SeatSnapshot {
	m.mu.RLock()
	out := make([]SeatSnapshot, 0, len(m.seats))
	for id, state := range m.seats {
		out = append(out, SeatSnapshot{SeatID: id, State: state})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out
}

// SnapshotOf returns the given seats in request order
func (m *SeatMap) SnapshotOf(seatIDs []string) []SeatSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SeatSnapshot, 0, len(seatIDs))
	for _, id := range seatIDs {
		state, ok := m.seats[id]
		if !ok {
			state = SeatNotFound
		}
		out = append(out, SeatSnapshot{SeatID: id, State: state})
	}
	return out
}

// Clone returns an independent copy of the seat map
func (m *SeatMap) Clone() *SeatMap {
	return &SeatMap{seats: m.States()}
}

// MarshalJSON encodes the map as {"A1":"available"}
func (m *SeatMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.States())
}

// UnmarshalJSON decodes {"A1":"available"} and rejects unknown states
func (m *SeatMap) UnmarshalJSON(data []byte) error {
	var states map[string]SeatState
	if err := json.Unmarshal(data, &states); err != nil {
		return err
	}
	parsed, err := SeatMapFromStates(states)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.seats = parsed.seats
	m.mu.Unlock()
	return nil
}
