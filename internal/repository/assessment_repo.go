package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/models"
)

type AssessmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssessmentRepo(pool *pgxpool.Pool) *AssessmentRepo {
	return &AssessmentRepo{pool: pool}
}

func (r *AssessmentRepo) Create(ctx context.Context, a *models.Assessment) error {
	a.ID = uuid.New()
	a.Status = "in_progress"

	questionIDs := []byte(a.QuestionIDs)
	if questionIDs == nil {
		questionIDs = []byte("[]")
	}

	query := `INSERT INTO assessments (id, user_id, course_id, exam_level, focus_topic, question_ids, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING started_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.CourseID, a.ExamLevel, a.FocusTopic, questionIDs, a.Status,
	).Scan(&a.StartedAt)
}

func (r *AssessmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	a := &models.Assessment{}
	query := `SELECT id, user_id, course_id, exam_level, focus_topic, question_ids, status, readiness_score, result_json, started_at, completed_at
		FROM assessments WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.CourseID, &a.ExamLevel, &a.FocusTopic, &a.QuestionIDs,
		&a.Status, &a.ReadinessScore, &a.ResultJSON, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AssessmentRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	// result_json is bulky; history views only need the headline columns.
	query := `SELECT id, user_id, course_id, exam_level, focus_topic, question_ids, status, readiness_score, started_at, completed_at
		FROM assessments WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*models.Assessment
	for rows.Next() {
		a := &models.Assessment{}
		err := rows.Scan(&a.ID, &a.UserID, &a.CourseID, &a.ExamLevel, &a.FocusTopic,
			&a.QuestionIDs, &a.Status, &a.ReadinessScore, &a.StartedAt, &a.CompletedAt)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func (r *AssessmentRepo) Complete(ctx context.Context, id uuid.UUID, readinessScore int, result json.RawMessage) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = 'completed', readiness_score = $1, result_json = $2, completed_at = $3
		 WHERE id = $4`,
		readinessScore, result, now, id,
	)
	return err
}

func (r *AssessmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM assessments WHERE id = $1", id)
	return err
}
