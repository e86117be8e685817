package engine

import (
	"encoding/json"
	"testing"
)

func TestGradeFromPerformance(t *testing.T) {
	tests := []struct {
		name       string
		accuracy   float64
		avgTime    float64
		confidence float64
		want       Grade
	}{
		{"collapse maps to Again", 0.20, 10, 5, Again},
		{"collapse ignores speed and confidence", 0.39, 5, 5, Again},
		{"fast confident near-perfect is Easy", 0.95, 20, 4.5, Easy},
		{"near-perfect but slow is not Easy", 0.95, 45, 5, Good},
		{"near-perfect but unconfident is not Easy", 0.95, 20, 2, Good},
		{"near-perfect with zero time is not Easy", 0.95, 0, 5, Good},
		{"shaky accuracy is Hard", 0.55, 40, 3, Hard},
		{"slow and mediocre is Hard", 0.75, 120, 3, Hard},
		{"slow but solid is Good", 0.85, 120, 3, Good},
		{"middle of the road is Good", 0.80, 60, 3, Good},
		{"boundary 0.40 is not Again", 0.40, 60, 3, Hard},
		{"boundary 0.65 is Good", 0.65, 60, 3, Good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradeFromPerformance(tt.accuracy, tt.avgTime, tt.confidence)
			if got != tt.want {
				t.Errorf("GradeFromPerformance(%v, %v, %v) = %v, want %v",
					tt.accuracy, tt.avgTime, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestGradeJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Easy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"Easy"` {
		t.Errorf("marshaled as %s, want \"Easy\"", data)
	}

	var g Grade
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g != Easy {
		t.Errorf("round trip = %v, want Easy", g)
	}
}

func TestGradeRejectsUnknownName(t *testing.T) {
	var g Grade
	if err := json.Unmarshal([]byte(`"Perfect"`), &g); err == nil {
		t.Error("expected an error for an unknown grade name")
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	for _, s := range []State{New, Learning, Review, Relearning} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var back State
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != s {
			t.Errorf("round trip = %v, want %v", back, s)
		}
	}
}
