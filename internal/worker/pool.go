package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"mediprep-backend/internal/models"
	"mediprep-backend/internal/repository"
	"mediprep-backend/internal/services"
)

const maxJobRetries = 3

type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
	jobRepo     *repository.JobRepo
	courseRepo  *repository.CourseRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	fileExtract *services.FileExtractService,
	jobRepo *repository.JobRepo,
	courseRepo *repository.CourseRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		fileExtract: fileExtract,
		jobRepo:     jobRepo,
		courseRepo:  courseRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		"queue:material-processing",
		"queue:question-generation",
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// One worker per job, even if it got enqueued twice.
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")
		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     1,
				StepName: "Analyzing material",
			},
		})

		var processErr error
		switch job.Type {
		case "material-processing":
			processErr = p.processMaterial(ctx, &job)
		case "question-generation":
			processErr = p.processQuestionGeneration(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// processMaterial extracts text from an uploaded course file, outlines it
// into sections, and marks the course ready for question generation.
func (p *Pool) processMaterial(ctx context.Context, job *models.Job) error {
	course, err := p.courseRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}
	if course.FilePath == nil || *course.FilePath == "" {
		return fmt.Errorf("course has no uploaded material")
	}

	p.courseRepo.UpdateStatus(ctx, course.ID, "processing")

	materialText, err := p.fileExtract.ExtractMaterial(*course.FilePath)
	if err != nil {
		return fmt.Errorf("failed to extract material text from %s: %w", *course.FilePath, err)
	}
	if err := p.courseRepo.SetMaterialText(ctx, course.ID, materialText); err != nil {
		return fmt.Errorf("failed to save material text: %w", err)
	}
	log.Printf("Extracted material for course %s (%d chars)", course.ID, len(materialText))

	sections, err := p.gemini.AnalyzeMaterial(ctx, job, materialText)
	if err != nil {
		return fmt.Errorf("failed to outline material: %w", err)
	}
	log.Printf("Outlined course %s into %d sections", course.ID, len(sections))

	return p.courseRepo.UpdateStatus(ctx, course.ID, "ready")
}

func (p *Pool) processQuestionGeneration(ctx context.Context, job *models.Job) error {
	course, err := p.courseRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}
	if course.MaterialText == nil || *course.MaterialText == "" {
		return fmt.Errorf("course %s has no extracted material", course.ID)
	}

	return p.gemini.GenerateQuestions(ctx, job, *course.MaterialText)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: getResultType(job.Type),
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < maxJobRetries {
		log.Printf("Job %s failed (attempt %d): %s - retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		// Re-queue after exponential backoff
		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), jobQueueName(job.Type), string(jobBytes))
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
	if job.Type == "material-processing" {
		p.courseRepo.UpdateStatus(ctx, job.ReferenceID, "failed")
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func jobQueueName(jobType string) string {
	return "queue:" + jobType
}

func getResultType(jobType string) string {
	switch jobType {
	case "question-generation":
		return "questions"
	default:
		return "course"
	}
}
