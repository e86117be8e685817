package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mediprep-backend/internal/engine"
	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
)

const maxUploadBytes = 50 * 1024 * 1024 // 50MB

type CourseHandler struct {
	courseRepo   *repository.CourseRepo
	questionRepo *repository.QuestionRepo
	cardRepo     *repository.CardRepo
	jobRepo      *repository.JobRepo
	redis        *redis.Client
	uploadDir    string
}

func NewCourseHandler(courseRepo *repository.CourseRepo, questionRepo *repository.QuestionRepo, cardRepo *repository.CardRepo, jobRepo *repository.JobRepo, redisClient *redis.Client, uploadDir string) *CourseHandler {
	return &CourseHandler{
		courseRepo:   courseRepo,
		questionRepo: questionRepo,
		cardRepo:     cardRepo,
		jobRepo:      jobRepo,
		redis:        redisClient,
		uploadDir:    uploadDir,
	}
}

// Create accepts a multipart upload (field "file" plus "title" and
// "exam_level"), stores the material on disk, and enqueues extraction.
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 50MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".docx" && ext != ".txt" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Only PDF, DOCX and TXT materials are supported", r))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}
	examLevel := engine.LevelByID(r.FormValue("exam_level")).ID

	userID := middleware.GetUserID(r.Context())
	courseID := uuid.New()
	storagePath := filepath.Join(h.uploadDir, userID.String(), courseID.String()+ext)

	if err := os.MkdirAll(filepath.Dir(storagePath), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store material", r))
		return
	}
	dst, err := os.Create(storagePath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store material", r))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storagePath)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store material", r))
		return
	}
	dst.Close()

	course := &models.Course{
		ID:        courseID,
		UserID:    userID,
		Title:     title,
		ExamLevel: examLevel,
		FilePath:  &storagePath,
	}
	if err := h.courseRepo.Create(r.Context(), course); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create course", r))
		return
	}

	job := &models.Job{
		UserID:      userID,
		Type:        "material-processing",
		ReferenceID: course.ID,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:material-processing", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"course_id": course.ID,
		"job_id":    job.ID,
		"status":    course.Status,
	})
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	courses, err := h.courseRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch courses", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}
	course.MaterialText = nil // not part of the API payload
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Sections(w http.ResponseWriter, r *http.Request) {
	course, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	sections, err := h.courseRepo.ListSections(r.Context(), course.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch sections", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

// GenerateQuestions enqueues Gemini item generation against an already
// extracted course.
func (h *CourseHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	course, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}
	if course.Status != "ready" {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Course material is still processing", r))
		return
	}

	var req models.GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	req.CourseID = course.ID
	if req.ExamLevel == "" {
		req.ExamLevel = course.ExamLevel
	}

	configBytes, _ := json.Marshal(req)
	job := &models.Job{
		UserID:      course.UserID,
		Type:        "question-generation",
		ReferenceID: course.ID,
		ConfigJSON:  configBytes,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:question-generation", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":    job.ID,
		"course_id": course.ID,
	})
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	course, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	// Scheduling state for the course goes with it.
	h.cardRepo.DeleteByCourse(r.Context(), course.ID)

	if err := h.courseRepo.Delete(r.Context(), course.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete course", r))
		return
	}
	if course.FilePath != nil {
		os.Remove(*course.FilePath)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Course deleted"})
}

// Levels lists the assessment level catalog. Public: the app needs it on the
// course-creation screen before login state matters.
func Levels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": engine.Levels()})
}

// ownedCourse resolves the {id} URL param and enforces ownership. On failure
// it writes the error response and returns ok=false.
func (h *CourseHandler) ownedCourse(w http.ResponseWriter, r *http.Request) (*models.Course, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return nil, false
	}

	course, err := h.courseRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return nil, false
	}

	if course.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return course, true
}
