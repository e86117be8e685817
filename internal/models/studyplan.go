package models

import (
	"time"

	"github.com/google/uuid"
)

type StudyTask struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	CourseID         uuid.UUID  `json:"course_id"`
	TopicTag         string     `json:"topic_tag"`
	Title            string     `json:"title"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Status           string     `json:"status"` // "pending" | "done" | "skipped"
	DueDate          *time.Time `json:"due_date"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

type CreateStudyTaskRequest struct {
	CourseID         uuid.UUID `json:"course_id"`
	TopicTag         string    `json:"topic_tag"`
	Title            string    `json:"title"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	DueDate          *string   `json:"due_date"` // RFC 3339 date
}
