package engine

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Grade represents the outcome of a review, either reported directly by the
// learner or derived from session performance via GradeFromPerformance.
type Grade int

const (
	Again Grade = iota + 1 // Failed recall.
	Hard                   // Recalled with significant difficulty.
	Good                   // Recalled with some effort.
	Easy                   // Recalled quickly and confidently.
)

var (
	gradeNames  = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}
	gradeByName = map[string]Grade{
		"Again": Again,
		"Hard":  Hard,
		"Good":  Good,
		"Easy":  Easy,
	}
)

var (
	_ fmt.Stringer             = Grade(0)
	_ encoding.TextMarshaler   = Grade(0)
	_ encoding.TextUnmarshaler = (*Grade)(nil)
)

// IsValid reports whether g is a valid grade (Again through Easy).
func (g Grade) IsValid() bool {
	return g >= Again && g <= Easy
}

// String returns the name of the grade. For invalid values it returns "Grade(n)".
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("engine: invalid grade: %d", int(g))
	}
	return []byte(gradeNames[g]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	v, ok := gradeByName[string(text)]
	if !ok {
		return fmt.Errorf("engine: invalid grade: %q", text)
	}
	*g = v
	return nil
}

// MarshalJSON implements json.Marshaler. Grade serializes as a JSON string.
func (g Grade) MarshalJSON() ([]byte, error) {
	text, err := g.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("engine: invalid grade: %s", data)
	}
	return g.UnmarshalText([]byte(s))
}

// GradeFromPerformance derives a review grade from aggregate session
// performance on a topic. Rules are checked in order: a collapse in accuracy
// always maps to Again; only fast, confident, near-perfect sessions map to
// Easy; shaky or slow sessions map to Hard; everything else is Good.
//
//	accuracy      fraction correct, [0,1]
//	avgTimeSec    mean seconds per question, >= 0
//	avgConfidence mean self-reported confidence, [0,5] (0 when unreported)
func GradeFromPerformance(accuracy, avgTimeSec, avgConfidence float64) Grade {
	switch {
	case accuracy < 0.40:
		return Again
	case accuracy > 0.90 && avgTimeSec > 0 && avgTimeSec < 30 && avgConfidence >= 4:
		return Easy
	case accuracy < 0.65 || (avgTimeSec > 90 && accuracy < 0.80):
		return Hard
	default:
		return Good
	}
}
