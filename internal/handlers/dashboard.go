package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"mediprep-backend/internal/engine"
	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
)

type DashboardHandler struct {
	pool        *pgxpool.Pool
	attemptRepo *repository.AttemptRepo
	cardRepo    *repository.CardRepo
	taskRepo    *repository.TaskRepo
}

func NewDashboardHandler(pool *pgxpool.Pool, attemptRepo *repository.AttemptRepo, cardRepo *repository.CardRepo, taskRepo *repository.TaskRepo) *DashboardHandler {
	return &DashboardHandler{
		pool:        pool,
		attemptRepo: attemptRepo,
		cardRepo:    cardRepo,
		taskRepo:    taskRepo,
	}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	var courseCount, assessmentCount, dueReviews int
	var latestReadiness *int
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses WHERE user_id = $1", userID).Scan(&courseCount)
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM assessments WHERE user_id = $1 AND status = 'completed'", userID).Scan(&assessmentCount)
	h.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM topic_cards
		WHERE user_id = $1
		  AND (next_review IS NULL OR next_review <= NOW())
	`, userID).Scan(&dueReviews)
	h.pool.QueryRow(ctx, `
		SELECT readiness_score
		FROM assessments
		WHERE user_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1
	`, userID).Scan(&latestReadiness)

	total, correct, _ := h.attemptRepo.CountByUser(ctx, userID)

	tasks, _ := h.taskRepo.ListByUser(ctx, userID)
	completion := engine.CompletionStats(tasks)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"courses":           courseCount,
		"assessments_taken": assessmentCount,
		"questions_total":   total,
		"questions_correct": correct,
		"due_reviews":       dueReviews,
		"latest_readiness":  latestReadiness,
		"plan_completion":   completion,
	})
}

func (h *DashboardHandler) Streak(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	// Days with any study activity across the last 30.
	var streak int
	h.pool.QueryRow(ctx, `
		WITH activity_days AS (
			SELECT DISTINCT DATE(created_at) AS d FROM attempts WHERE user_id = $1
			UNION
			SELECT DISTINCT DATE(started_at) FROM assessments WHERE user_id = $1
			UNION
			SELECT DISTINCT DATE(completed_at) FROM study_tasks WHERE user_id = $1 AND completed_at IS NOT NULL
		)
		SELECT COUNT(*) FROM activity_days WHERE d >= CURRENT_DATE - INTERVAL '30 days'
	`, userID).Scan(&streak)

	writeJSON(w, http.StatusOK, map[string]interface{}{"streak": streak})
}

func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	// Questions answered per weekday over the last 7 days, Sunday first.
	activity := make([]int, 7)
	rows, _ := h.pool.Query(ctx, `
		SELECT EXTRACT(DOW FROM created_at)::int AS dow, COUNT(*)
		FROM attempts WHERE user_id = $1 AND created_at >= CURRENT_DATE - INTERVAL '7 days'
		GROUP BY dow`, userID)
	for rows.Next() {
		var dow, count int
		rows.Scan(&dow, &count)
		if dow >= 0 && dow < 7 {
			activity[dow] = count
		}
	}
	rows.Close()

	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// User & Settings handler

type UserHandler struct {
	userRepo userRepository
}

type userRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, userID uuid.UUID) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, s *models.UserSettings) error
	GetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, defaultValue bool) (bool, error)
	SetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, enabled bool) error
}

func NewUserHandler(userRepo userRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	var update struct {
		FullName string  `json:"full_name"`
		Avatar   *string `json:"avatar_url"`
		ExamDate *string `json:"exam_date"` // RFC 3339 date; empty string clears it
	}
	json.NewDecoder(r.Body).Decode(&update)

	if update.FullName != "" {
		user.FullName = update.FullName
	}
	if update.Avatar != nil {
		user.AvatarURL = update.Avatar
	}
	if update.ExamDate != nil {
		if *update.ExamDate == "" {
			user.ExamDate = nil
		} else {
			examDate, err := parseDueDate(*update.ExamDate)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "exam_date must be an RFC 3339 date", r))
				return
			}
			user.ExamDate = &examDate
		}
	}

	if err := h.userRepo.Update(r.Context(), user); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update profile", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Current password is incorrect", r))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to hash password", r))
		return
	}

	h.userRepo.UpdatePassword(r.Context(), userID, string(hash))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	h.userRepo.Delete(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	settings, err := h.userRepo.GetSettings(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Settings not found", r))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var s models.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	s.UserID = userID

	if s.DefaultExamLevel != "" && engine.LevelByID(s.DefaultExamLevel).ID != s.DefaultExamLevel {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown exam level", r))
		return
	}

	if err := h.userRepo.UpdateSettings(r.Context(), &s); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update settings", r))
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *UserHandler) GetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	weekly, err := h.userRepo.GetNotificationSetting(ctx, userID, "weekly_progress", true)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch notification settings", r))
		return
	}
	reminders, err := h.userRepo.GetNotificationSetting(ctx, userID, "study_reminders", true)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch notification settings", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"weekly_progress": weekly,
		"study_reminders": reminders,
	})
}

func (h *UserHandler) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		WeeklyProgress *bool `json:"weekly_progress"`
		StudyReminders *bool `json:"study_reminders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.WeeklyProgress != nil {
		if err := h.userRepo.SetNotificationSetting(r.Context(), userID, "weekly_progress", *req.WeeklyProgress); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save notification settings", r))
			return
		}
	}
	if req.StudyReminders != nil {
		if err := h.userRepo.SetNotificationSetting(r.Context(), userID, "study_reminders", *req.StudyReminders); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save notification settings", r))
			return
		}
	}

	h.GetNotificationSettings(w, r)
}

// Job handler

type JobHandler struct {
	jobRepo *repository.JobRepo
}

func NewJobHandler(jobRepo *repository.JobRepo) *JobHandler {
	return &JobHandler{jobRepo: jobRepo}
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	if job.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	jobs, err := h.jobRepo.ListRecentByUser(r.Context(), userID, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch jobs", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	if job.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	h.jobRepo.UpdateStatus(r.Context(), id, "failed")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
}
