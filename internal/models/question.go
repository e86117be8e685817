package models

import (
	"time"

	"github.com/google/uuid"
)

type Explanation struct {
	CorrectWhy     string   `json:"correct_why"`
	WhyOthersWrong []string `json:"why_others_wrong"`
	KeyTakeaway    string   `json:"key_takeaway"`
}

type Question struct {
	ID           uuid.UUID   `json:"id"`
	CourseID     uuid.UUID   `json:"course_id"`
	SectionID    *uuid.UUID  `json:"section_id"`
	Stem         string      `json:"stem"`
	Options      []string    `json:"options"`
	CorrectIndex int         `json:"correct_index"`
	Difficulty   int         `json:"difficulty"` // 1=recall .. 5=multi-step reasoning
	TopicTags    []string    `json:"topic_tags"`
	Explanation  Explanation `json:"explanation"`
	Citations    []string    `json:"citations"`
	CreatedAt    time.Time   `json:"created_at"`
}

type GenerateQuestionsRequest struct {
	CourseID     uuid.UUID `json:"course_id"`
	NumQuestions int       `json:"num_questions"`
	ExamLevel    string    `json:"exam_level"`
	TopicTags    []string  `json:"topic_tags"`
	Difficulty   int       `json:"difficulty"` // 0 = spread across the level's band
}
