package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

func TestSanitizeQuestionsHidesAnswerKey(t *testing.T) {
	q := models.Question{
		ID:           uuid.New(),
		Stem:         "A 54-year-old presents with crushing chest pain radiating to the left arm. What is the next step?",
		Options:      []string{"ECG", "Chest X-ray", "D-dimer", "Discharge"},
		CorrectIndex: 0,
		Difficulty:   3,
		TopicTags:    []string{"cardiology"},
		Explanation: models.Explanation{
			CorrectWhy:  "Suspected ACS requires an ECG within 10 minutes of arrival.",
			KeyTakeaway: "ECG first in suspected ACS.",
		},
	}

	out := sanitizeQuestions([]models.Question{q})
	if len(out) != 1 {
		t.Fatalf("expected 1 question, got %d", len(out))
	}

	raw, err := json.Marshal(out[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, leaked := range []string{"correct_index", "explanation", "citations"} {
		if _, ok := fields[leaked]; ok {
			t.Errorf("field %q must not be exposed during a session", leaked)
		}
	}
	if fields["stem"] != q.Stem {
		t.Error("stem should survive sanitization")
	}
	if len(fields["options"].([]interface{})) != 4 {
		t.Error("options should survive sanitization")
	}
}

func TestSanitizeQuestionsEmpty(t *testing.T) {
	if out := sanitizeQuestions(nil); len(out) != 0 {
		t.Errorf("expected empty slice, got %v", out)
	}
}
