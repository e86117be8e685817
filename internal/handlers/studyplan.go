package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
)

type StudyPlanHandler struct {
	taskRepo       *repository.TaskRepo
	courseRepo     *repository.CourseRepo
	assessmentRepo *repository.AssessmentRepo
}

func NewStudyPlanHandler(taskRepo *repository.TaskRepo, courseRepo *repository.CourseRepo, assessmentRepo *repository.AssessmentRepo) *StudyPlanHandler {
	return &StudyPlanHandler{
		taskRepo:       taskRepo,
		courseRepo:     courseRepo,
		assessmentRepo: assessmentRepo,
	}
}

func (h *StudyPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudyTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Title == "" || req.TopicTag == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "title and topic_tag are required", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	course, err := h.courseRepo.GetByID(r.Context(), req.CourseID)
	if err != nil || course.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return
	}

	task := &models.StudyTask{
		UserID:           userID,
		CourseID:         req.CourseID,
		TopicTag:         req.TopicTag,
		Title:            req.Title,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "due_date must be an RFC 3339 date", r))
			return
		}
		task.DueDate = &due
	}

	if err := h.taskRepo.Create(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create task", r))
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// GenerateFromAssessment materializes a completed assessment's study plan
// into one task per priority topic, due on consecutive days.
func (h *StudyPlanHandler) GenerateFromAssessment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssessmentID uuid.UUID `json:"assessment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	assessment, err := h.assessmentRepo.GetByID(r.Context(), req.AssessmentID)
	if err != nil || assessment.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Assessment not found", r))
		return
	}
	if assessment.Status != "completed" || len(assessment.ResultJSON) == 0 {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Assessment has no results yet", r))
		return
	}

	var result assessmentResult
	if err := json.Unmarshal(assessment.ResultJSON, &result); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Corrupt assessment results", r))
		return
	}
	if len(result.Plan.PriorityTopics) == 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": []models.StudyTask{}})
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	tasks := make([]models.StudyTask, 0, len(result.Plan.PriorityTopics))
	for i, topic := range result.Plan.PriorityTopics {
		due := today.AddDate(0, 0, i+1)
		tasks = append(tasks, models.StudyTask{
			UserID:           userID,
			CourseID:         assessment.CourseID,
			TopicTag:         topic.Tag,
			Title:            fmt.Sprintf("Targeted review: %s (%d min)", topic.Tag, topic.RecommendedMinutes),
			EstimatedMinutes: topic.RecommendedMinutes,
			DueDate:          &due,
		})
	}

	if err := h.taskRepo.CreateBatch(r.Context(), tasks); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create tasks", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"tasks": tasks})
}

func (h *StudyPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var (
		tasks []models.StudyTask
		err   error
	)
	if courseParam := r.URL.Query().Get("course_id"); courseParam != "" {
		courseID, parseErr := uuid.Parse(courseParam)
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
			return
		}
		tasks, err = h.taskRepo.ListByUserCourse(r.Context(), userID, courseID)
	} else {
		tasks, err = h.taskRepo.ListByUser(r.Context(), userID)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch tasks", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (h *StudyPlanHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Status != "pending" && req.Status != "done" && req.Status != "skipped" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Status must be pending, done or skipped", r))
		return
	}

	if err := h.taskRepo.UpdateStatus(r.Context(), task.ID, req.Status); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update task", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated"})
}

func (h *StudyPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(r.Context(), task.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete task", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

func (h *StudyPlanHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*models.StudyTask, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid task ID", r))
		return nil, false
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Task not found", r))
		return nil, false
	}

	if task.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return task, true
}

func parseDueDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
