package engine

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// State represents the learning stage of a topic card.
type State int

const (
	New        State = iota // Never reviewed; stability and difficulty unset.
	Learning                // Failed the very first review.
	Review                  // In the long-term review cycle.
	Relearning              // Lapsed out of Review.
)

var (
	stateNames  = [...]string{New: "New", Learning: "Learning", Review: "Review", Relearning: "Relearning"}
	stateByName = map[string]State{
		"New":        New,
		"Learning":   Learning,
		"Review":     Review,
		"Relearning": Relearning,
	}
)

var (
	_ fmt.Stringer             = State(0)
	_ encoding.TextMarshaler   = State(0)
	_ encoding.TextUnmarshaler = (*State)(nil)
)

func (s State) isValid() bool {
	return s >= New && s <= Relearning
}

// String returns the name of the state. For invalid values it returns "State(n)".
func (s State) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("engine: invalid state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("engine: invalid state: %q", text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. State serializes as a JSON string.
func (s State) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("engine: invalid state: %s", data)
	}
	return s.UnmarshalText([]byte(str))
}

// Card is the memory-model state for one learner x topic pair. Stability and
// Difficulty stay zero only while State is New and Reps is zero; after the
// first review both are always set.
type Card struct {
	State      State      `json:"state"`
	Stability  float64    `json:"stability"`  // days; > 0 once reviewed
	Difficulty float64    `json:"difficulty"` // 1-10; higher decays faster
	Reps       int        `json:"reps"`
	Lapses     int        `json:"lapses"`
	Interval   int        `json:"interval"` // days until the next review
	LastReview *time.Time `json:"last_review"`
	NextReview *time.Time `json:"next_review"`
}

// NewCard returns a fresh card in the New state, reviewable immediately.
func NewCard() Card {
	return Card{State: New}
}
