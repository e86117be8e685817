package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/models"
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

const attemptColumns = `id, user_id, question_id, course_id, assessment_id, correct,
	selected_index, time_spent_sec, confidence, created_at`

// Create appends one answer record. Attempts are never updated or deleted
// individually; history only grows.
func (r *AttemptRepo) Create(ctx context.Context, a *models.Attempt) error {
	a.ID = uuid.New()

	query := `INSERT INTO attempts (id, user_id, question_id, course_id, assessment_id, correct, selected_index, time_spent_sec, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.QuestionID, a.CourseID, a.AssessmentID,
		a.Correct, a.SelectedIndex, a.TimeSpentSec, a.Confidence,
	).Scan(&a.CreatedAt)
}

func (r *AttemptRepo) CreateBatch(ctx context.Context, attempts []models.Attempt) error {
	for i := range attempts {
		if err := r.Create(ctx, &attempts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *AttemptRepo) listQuery(ctx context.Context, query string, args ...any) ([]models.Attempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]models.Attempt, 0)
	for rows.Next() {
		var a models.Attempt
		err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.CourseID, &a.AssessmentID,
			&a.Correct, &a.SelectedIndex, &a.TimeSpentSec, &a.Confidence, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *AttemptRepo) ListByUserCourse(ctx context.Context, userID, courseID uuid.UUID) ([]models.Attempt, error) {
	return r.listQuery(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 AND course_id = $2 ORDER BY created_at`,
		userID, courseID)
}

func (r *AttemptRepo) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]models.Attempt, error) {
	return r.listQuery(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE assessment_id = $1 ORDER BY created_at`,
		assessmentID)
}

func (r *AttemptRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listQuery(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
}

func (r *AttemptRepo) CountByUser(ctx context.Context, userID uuid.UUID) (total int, correct int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE correct) FROM attempts WHERE user_id = $1`,
		userID).Scan(&total, &correct)
	return
}
