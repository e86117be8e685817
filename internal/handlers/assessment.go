package handlers

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediprep-backend/internal/engine"
	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
)

type AssessmentHandler struct {
	assessmentRepo *repository.AssessmentRepo
	attemptRepo    *repository.AttemptRepo
	questionRepo   *repository.QuestionRepo
	courseRepo     *repository.CourseRepo
	cardRepo       *repository.CardRepo
	scheduler      *engine.Scheduler
}

func NewAssessmentHandler(assessmentRepo *repository.AssessmentRepo, attemptRepo *repository.AttemptRepo, questionRepo *repository.QuestionRepo, courseRepo *repository.CourseRepo, cardRepo *repository.CardRepo) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentRepo: assessmentRepo,
		attemptRepo:    attemptRepo,
		questionRepo:   questionRepo,
		courseRepo:     courseRepo,
		cardRepo:       cardRepo,
		scheduler:      engine.NewScheduler(engine.SchedulerConfig{}),
	}
}

// assessmentQuestion is the in-session view of a question: no correct index,
// no explanation.
type assessmentQuestion struct {
	ID         uuid.UUID `json:"id"`
	Stem       string    `json:"stem"`
	Options    []string  `json:"options"`
	Difficulty int       `json:"difficulty"`
	TopicTags  []string  `json:"topic_tags"`
}

func sanitizeQuestions(questions []models.Question) []assessmentQuestion {
	out := make([]assessmentQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, assessmentQuestion{
			ID:         q.ID,
			Stem:       q.Stem,
			Options:    q.Options,
			Difficulty: q.Difficulty,
			TopicTags:  q.TopicTags,
		})
	}
	return out
}

// assessmentResult is what gets persisted into assessments.result_json on
// submission and echoed back on reads.
type assessmentResult struct {
	Profile engine.WeaknessProfile `json:"profile"`
	Plan    engine.Plan            `json:"plan"`
}

func (h *AssessmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	course, err := h.courseRepo.GetByID(r.Context(), req.CourseID)
	if err != nil || course.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return
	}
	if course.Status != "ready" {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Course material is still processing", r))
		return
	}

	pool, err := h.questionRepo.ListByCourse(r.Context(), course.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
		return
	}

	levelID := req.ExamLevel
	if levelID == "" {
		levelID = course.ExamLevel
	}
	level := engine.LevelByID(levelID)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	selected := engine.SelectQuestions(pool, level, req.Count, req.FocusTopic, rng)
	if len(selected) == 0 {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Course has no usable questions yet", r))
		return
	}

	ids := make([]uuid.UUID, 0, len(selected))
	for _, q := range selected {
		ids = append(ids, q.ID)
	}
	idsJSON, _ := json.Marshal(ids)

	assessment := &models.Assessment{
		UserID:      userID,
		CourseID:    course.ID,
		ExamLevel:   level.ID,
		QuestionIDs: idsJSON,
	}
	if req.FocusTopic != "" {
		assessment.FocusTopic = &req.FocusTopic
	}
	if err := h.assessmentRepo.Create(r.Context(), assessment); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start assessment", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"assessment_id": assessment.ID,
		"exam_level":    level.ID,
		"started_at":    assessment.StartedAt,
		"questions":     sanitizeQuestions(selected),
	})
}

func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	assessment, ok := h.ownedAssessment(w, r)
	if !ok {
		return
	}
	if assessment.Status != "in_progress" {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Assessment already completed", r))
		return
	}

	var req models.SubmitAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Answers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "At least one answer is required", r))
		return
	}

	var questionIDs []uuid.UUID
	if err := json.Unmarshal(assessment.QuestionIDs, &questionIDs); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Corrupt assessment state", r))
		return
	}
	questions, err := h.questionRepo.ListByIDs(r.Context(), questionIDs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
		return
	}
	index := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}

	// Grade against the session's question set; answers for questions outside
	// it are dropped.
	attempts := make([]models.Attempt, 0, len(req.Answers))
	for _, ans := range req.Answers {
		q, ok := index[ans.QuestionID]
		if !ok {
			continue
		}
		attempts = append(attempts, models.Attempt{
			UserID:        assessment.UserID,
			QuestionID:    q.ID,
			CourseID:      assessment.CourseID,
			AssessmentID:  &assessment.ID,
			Correct:       ans.SelectedIndex == q.CorrectIndex,
			SelectedIndex: ans.SelectedIndex,
			TimeSpentSec:  ans.TimeSpentSec,
			Confidence:    ans.Confidence,
		})
	}
	if len(attempts) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No answers matched this assessment", r))
		return
	}
	if err := h.attemptRepo.CreateBatch(r.Context(), attempts); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record answers", r))
		return
	}

	focusTag := ""
	if assessment.FocusTopic != nil {
		focusTag = *assessment.FocusTopic
	}
	level := engine.LevelByID(assessment.ExamLevel)

	profile := engine.ComputeWeaknessProfile(attempts, index, level, focusTag)
	plan := engine.BuildRecommendationPlan(profile)

	resultJSON, _ := json.Marshal(assessmentResult{Profile: profile, Plan: plan})
	if err := h.assessmentRepo.Complete(r.Context(), assessment.ID, profile.ReadinessScore, resultJSON); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to complete assessment", r))
		return
	}

	h.reviewTopicCards(r, assessment, attempts, index, focusTag)

	correct := 0
	for _, a := range attempts {
		if a.Correct {
			correct++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessment_id":   assessment.ID,
		"readiness_score": profile.ReadinessScore,
		"correct_count":   correct,
		"total":           len(attempts),
		"profile":         profile,
		"plan":            plan,
	})
}

// reviewTopicCards feeds each topic's session performance through the
// spaced-repetition scheduler so next-review dates track how the session
// actually went. Card errors are swallowed: scheduling is advisory and must
// not fail a submission.
func (h *AssessmentHandler) reviewTopicCards(r *http.Request, assessment *models.Assessment, attempts []models.Attempt, index map[uuid.UUID]models.Question, focusTag string) {
	type topicAgg struct {
		total, correct, timeSec, confSum, confCount int
	}
	byTopic := make(map[string]*topicAgg)
	for _, a := range attempts {
		q := index[a.QuestionID]
		tag := engine.PrimaryTopicTag(q, focusTag)
		agg := byTopic[tag]
		if agg == nil {
			agg = &topicAgg{}
			byTopic[tag] = agg
		}
		agg.total++
		if a.Correct {
			agg.correct++
		}
		agg.timeSec += a.TimeSpentSec
		if a.Confidence != nil {
			agg.confSum += *a.Confidence
			agg.confCount++
		}
	}

	now := time.Now().UTC()
	for tag, agg := range byTopic {
		accuracy := float64(agg.correct) / float64(agg.total)
		avgTime := float64(agg.timeSec) / float64(agg.total)
		avgConf := 0.0
		if agg.confCount > 0 {
			avgConf = float64(agg.confSum) / float64(agg.confCount)
		}
		grade := engine.GradeFromPerformance(accuracy, avgTime, avgConf)

		card, _, err := h.cardRepo.Get(r.Context(), assessment.UserID, assessment.CourseID, tag)
		if err != nil {
			continue
		}
		elapsed := 0.0
		if card.Card.LastReview != nil {
			elapsed = now.Sub(*card.Card.LastReview).Hours() / 24
		}
		card.Card = h.scheduler.ReviewCard(card.Card, grade, elapsed, now)
		h.cardRepo.Upsert(r.Context(), &card)
	}
}

func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	assessment, ok := h.ownedAssessment(w, r)
	if !ok {
		return
	}

	resp := map[string]interface{}{"assessment": assessment}

	if assessment.Status == "in_progress" {
		var questionIDs []uuid.UUID
		if err := json.Unmarshal(assessment.QuestionIDs, &questionIDs); err == nil {
			if questions, err := h.questionRepo.ListByIDs(r.Context(), questionIDs); err == nil {
				resp["questions"] = sanitizeQuestions(questions)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	assessments, err := h.assessmentRepo.ListByUser(r.Context(), userID, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch assessments", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"assessments": assessments})
}

func (h *AssessmentHandler) ownedAssessment(w http.ResponseWriter, r *http.Request) (*models.Assessment, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid assessment ID", r))
		return nil, false
	}

	assessment, err := h.assessmentRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Assessment not found", r))
		return nil, false
	}

	if assessment.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return assessment, true
}
