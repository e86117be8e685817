package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"mediprep-backend/internal/engine"
	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
)

type GeminiService struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	courseRepo   *repository.CourseRepo
	questionRepo *repository.QuestionRepo
	jobRepo      *repository.JobRepo
	redis        *redis.Client
	rateChan     chan struct{} // token bucket
}

func NewGeminiService(
	apiKey string,
	concurrentReqs int,
	courseRepo *repository.CourseRepo,
	questionRepo *repository.QuestionRepo,
	jobRepo *repository.JobRepo,
	redisClient *redis.Client,
) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:       client,
		model:        model,
		courseRepo:   courseRepo,
		questionRepo: questionRepo,
		jobRepo:      jobRepo,
		redis:        redisClient,
		rateChan:     rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available.
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub.
func (s *GeminiService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// AnalyzeMaterial asks Gemini for a section outline of freshly extracted
// course material and persists the sections. Returns the section titles
// so the caller can report progress.
func (s *GeminiService) AnalyzeMaterial(ctx context.Context, job *models.Job, materialText string) ([]models.Section, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	s.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 2, StepName: "Outlining Material",
			EstimatedSecondsRemaining: 20,
		},
	})

	prompt := buildOutlinePrompt(materialText)
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	var titles []string
	if err := json.Unmarshal([]byte(stripFences(extractText(resp))), &titles); err != nil {
		log.Printf("WARNING: could not parse section outline, using single section: %v", err)
		titles = []string{"Full Material"}
	}

	sections := make([]models.Section, 0, len(titles))
	for i, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		section := models.Section{CourseID: job.ReferenceID, Title: title, Index: i}
		if err := s.courseRepo.CreateSection(ctx, &section); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// GenerateQuestions handles the question generation flow for one course.
func (s *GeminiService) GenerateQuestions(ctx context.Context, job *models.Job, materialText string) error {
	if err := s.acquireRate(ctx); err != nil {
		return err
	}
	defer s.releaseRate()

	var config models.GenerateQuestionsRequest
	json.Unmarshal(job.ConfigJSON, &config)
	if config.NumQuestions <= 0 {
		config.NumQuestions = 20
	}
	level := engine.LevelByID(config.ExamLevel)

	prompt := buildQuestionPrompt(config, level, materialText)

	s.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 2, StepName: "Generating Questions",
			EstimatedSecondsRemaining: 30,
		},
	})

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	rawText := stripFences(extractText(resp))

	var parsed []generatedQuestion
	if err := json.Unmarshal([]byte(rawText), &parsed); err != nil {
		// Models sometimes wrap the array in prose; salvage the array.
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(rawText[start:end+1]), &parsed)
		}
	}

	questions := validateGeneratedQuestions(parsed, config.CourseID, level)
	if len(questions) == 0 {
		return fmt.Errorf("Gemini returned no usable questions")
	}

	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return err
	}

	return s.courseRepo.UpdateQuestionCount(ctx, config.CourseID)
}

// generatedQuestion is the JSON shape we ask the model for.
type generatedQuestion struct {
	Stem           string   `json:"stem"`
	Options        []string `json:"options"`
	CorrectIndex   int      `json:"correct_index"`
	Difficulty     int      `json:"difficulty"`
	TopicTags      []string `json:"topic_tags"`
	CorrectWhy     string   `json:"correct_why"`
	WhyOthersWrong []string `json:"why_others_wrong"`
	KeyTakeaway    string   `json:"key_takeaway"`
	Citations      []string `json:"citations"`
}

// validateGeneratedQuestions drops malformed entries and clamps difficulty
// into the 1-5 scale. Questions outside the requested band are kept; the
// selector bands them at assessment time.
func validateGeneratedQuestions(parsed []generatedQuestion, courseID uuid.UUID, level engine.LevelProfile) []models.Question {
	var questions []models.Question
	for _, g := range parsed {
		if strings.TrimSpace(g.Stem) == "" {
			continue
		}
		if len(g.Options) < 2 || g.CorrectIndex < 0 || g.CorrectIndex >= len(g.Options) {
			continue
		}
		if g.Difficulty < 1 || g.Difficulty > 5 {
			g.Difficulty = level.MinDifficulty
		}
		tags := make([]string, 0, len(g.TopicTags))
		for _, tag := range g.TopicTags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				tags = append(tags, tag)
			}
		}
		questions = append(questions, models.Question{
			CourseID:     courseID,
			Stem:         g.Stem,
			Options:      g.Options,
			CorrectIndex: g.CorrectIndex,
			Difficulty:   g.Difficulty,
			TopicTags:    tags,
			Explanation: models.Explanation{
				CorrectWhy:     g.CorrectWhy,
				WhyOthersWrong: g.WhyOthersWrong,
				KeyTakeaway:    g.KeyTakeaway,
			},
			Citations: g.Citations,
		})
	}
	return questions
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func buildOutlinePrompt(materialText string) string {
	var b strings.Builder

	b.WriteString("You are a medical educator organizing study material. Identify the major sections of the material below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array of section title strings, in document order. No preamble, no markdown, no backticks.\n")
	b.WriteString("Between 3 and 12 sections. Titles under 60 characters.\n")

	b.WriteString("\n---MATERIAL---\n")
	b.WriteString(materialText)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildQuestionPrompt(config models.GenerateQuestionsRequest, level engine.LevelProfile, materialText string) string {
	var b strings.Builder

	// Layer 1 — role
	b.WriteString("You are an expert medical exam item writer. Generate board-style multiple choice questions from the material below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")

	// Layer 2 — count and difficulty band
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", config.NumQuestions))
	if config.Difficulty >= 1 && config.Difficulty <= 5 {
		b.WriteString(fmt.Sprintf("Every question must have difficulty %d.\n", config.Difficulty))
	} else {
		b.WriteString(fmt.Sprintf("Spread difficulty across %d-%d on a 1-5 scale (1 = direct recall, 5 = multi-step clinical reasoning).\n",
			level.MinDifficulty, level.MaxDifficulty))
	}

	// Layer 3 — topic focus
	if len(config.TopicTags) > 0 {
		b.WriteString(fmt.Sprintf("Focus on these topics: %s.\n", strings.Join(config.TopicTags, ", ")))
	}

	// Layer 4 — item-writing rules
	b.WriteString(`
Rules:
- Stems are clinical vignettes where the material supports them, otherwise direct questions
- Exactly 4 or 5 options, one unambiguously best answer
- Explain why the correct answer is right AND why each wrong option is wrong
- why_others_wrong must have one entry per wrong option, in option order
- topic_tags are 1-3 lowercase medical topics (e.g. "cardiology", "renal physiology")
- citations reference the section or page of the source material the item tests

JSON schema per question:
{"stem": "string", "options": ["string"], "correct_index": int, "difficulty": 1-5, "topic_tags": ["string"], "correct_why": "string", "why_others_wrong": ["string"], "key_takeaway": "string", "citations": ["string"]}
`)

	// Layer 5 — material
	b.WriteString("\n---MATERIAL---\n")
	b.WriteString(materialText)
	b.WriteString("\n---END---\n")

	return b.String()
}
