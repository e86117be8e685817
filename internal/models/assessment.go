package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Assessment struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	CourseID       uuid.UUID       `json:"course_id"`
	ExamLevel      string          `json:"exam_level"`
	FocusTopic     *string         `json:"focus_topic"`
	QuestionIDs    json.RawMessage `json:"question_ids"`
	Status         string          `json:"status"` // "in_progress" | "completed"
	ReadinessScore *int            `json:"readiness_score"`
	ResultJSON     json.RawMessage `json:"result,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
}

type StartAssessmentRequest struct {
	CourseID   uuid.UUID `json:"course_id"`
	ExamLevel  string    `json:"exam_level"`
	Count      int       `json:"count"`
	FocusTopic string    `json:"focus_topic"`
}

type AssessmentAnswer struct {
	QuestionID    uuid.UUID `json:"question_id"`
	SelectedIndex int       `json:"selected_index"`
	TimeSpentSec  int       `json:"time_spent_sec"`
	Confidence    *int      `json:"confidence"`
}

type SubmitAssessmentRequest struct {
	Answers []AssessmentAnswer `json:"answers"`
}
