package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediprep-backend/internal/engine"
	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
)

// WeaknessHandler ranks a learner's weak topics from their whole attempt
// history on a course, as opposed to the single-session diagnosis an
// assessment submission returns.
type WeaknessHandler struct {
	attemptRepo  *repository.AttemptRepo
	questionRepo *repository.QuestionRepo
	courseRepo   *repository.CourseRepo
}

func NewWeaknessHandler(attemptRepo *repository.AttemptRepo, questionRepo *repository.QuestionRepo, courseRepo *repository.CourseRepo) *WeaknessHandler {
	return &WeaknessHandler{
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		courseRepo:   courseRepo,
	}
}

func (h *WeaknessHandler) CourseWeakness(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	course, err := h.courseRepo.GetByID(r.Context(), courseID)
	if err != nil || course.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return
	}

	attempts, err := h.attemptRepo.ListByUserCourse(r.Context(), userID, courseID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch attempt history", r))
		return
	}

	questions, err := h.questionRepo.ListByCourse(r.Context(), courseID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
		return
	}
	index := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	stats := engine.AccumulateTopicStats(attempts, index)
	topics := engine.RankWeakTopics(stats, time.Now().UTC(), limit)
	overall := engine.OverallAccuracy(attempts)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"course_id":   courseID,
		"overall":     overall,
		"weak_topics": topics,
	})
}
