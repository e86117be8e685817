package models

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is append-only: written once when an answer is submitted,
// never updated afterwards.
type Attempt struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	QuestionID    uuid.UUID  `json:"question_id"`
	CourseID      uuid.UUID  `json:"course_id"`
	AssessmentID  *uuid.UUID `json:"assessment_id"`
	Correct       bool       `json:"correct"`
	SelectedIndex int        `json:"selected_index"`
	TimeSpentSec  int        `json:"time_spent_sec"`
	Confidence    *int       `json:"confidence"` // 1-5, nil when the client did not report it
	CreatedAt     time.Time  `json:"created_at"`
}
