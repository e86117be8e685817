package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Title         string          `json:"title"`
	ExamLevel     string          `json:"exam_level"` // "foundation" | "core" | "advanced" | "boards"
	Status        string          `json:"status"`     // "pending" | "processing" | "ready" | "failed"
	FilePath      *string         `json:"file_path"`
	MaterialText  *string         `json:"material_text,omitempty"`
	QuestionCount int             `json:"question_count"`
	MetadataJSON  json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Section struct {
	ID       uuid.UUID `json:"id"`
	CourseID uuid.UUID `json:"course_id"`
	Title    string    `json:"title"`
	Index    int       `json:"index"`
}
