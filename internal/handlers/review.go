package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediprep-backend/internal/engine"
	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/repository"
)

// ReviewHandler exposes the spaced-repetition queue: topic cards due for
// review and direct grade submission outside a full assessment.
type ReviewHandler struct {
	cardRepo   *repository.CardRepo
	courseRepo *repository.CourseRepo
	scheduler  *engine.Scheduler
}

func NewReviewHandler(cardRepo *repository.CardRepo, courseRepo *repository.CourseRepo) *ReviewHandler {
	return &ReviewHandler{
		cardRepo:   cardRepo,
		courseRepo: courseRepo,
		scheduler:  engine.NewScheduler(engine.SchedulerConfig{}),
	}
}

func (h *ReviewHandler) Due(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cards, err := h.cardRepo.ListDue(r.Context(), userID, time.Now().UTC(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch due reviews", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"due": cards})
}

func (h *ReviewHandler) ListByCourse(w http.ResponseWriter, r *http.Request) {
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

	cards, err := h.cardRepo.ListByUserCourse(r.Context(), userID, courseID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch cards", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

// Submit applies one review grade to a topic card. The card is created on
// first review if the topic has never been scheduled before.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseID uuid.UUID    `json:"course_id"`
		TopicTag string       `json:"topic_tag"`
		Grade    engine.Grade `json:"grade"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.TopicTag == "" || !req.Grade.IsValid() {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "topic_tag and a grade of again, hard, good or easy are required", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	course, err := h.courseRepo.GetByID(r.Context(), req.CourseID)
	if err != nil || course.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return
	}

	card, _, err := h.cardRepo.Get(r.Context(), userID, req.CourseID, req.TopicTag)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load card", r))
		return
	}

	now := time.Now().UTC()
	elapsed := 0.0
	if card.Card.LastReview != nil {
		elapsed = now.Sub(*card.Card.LastReview).Hours() / 24
	}
	card.Card = h.scheduler.ReviewCard(card.Card, req.Grade, elapsed, now)

	if err := h.cardRepo.Upsert(r.Context(), &card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save card", r))
		return
	}

	writeJSON(w, http.StatusOK, card)
}
