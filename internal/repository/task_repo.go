package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, user_id, course_id, topic_tag, title, estimated_minutes,
	status, due_date, completed_at, created_at`

func (r *TaskRepo) Create(ctx context.Context, t *models.StudyTask) error {
	t.ID = uuid.New()
	t.Status = "pending"

	query := `INSERT INTO study_tasks (id, user_id, course_id, topic_tag, title, estimated_minutes, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		t.ID, t.UserID, t.CourseID, t.TopicTag, t.Title, t.EstimatedMinutes, t.Status, t.DueDate,
	).Scan(&t.CreatedAt)
}

func (r *TaskRepo) CreateBatch(ctx context.Context, tasks []models.StudyTask) error {
	for i := range tasks {
		if err := r.Create(ctx, &tasks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyTask, error) {
	t := &models.StudyTask{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM study_tasks WHERE id = $1`, id).Scan(
		&t.ID, &t.UserID, &t.CourseID, &t.TopicTag, &t.Title, &t.EstimatedMinutes,
		&t.Status, &t.DueDate, &t.CompletedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudyTask, error) {
	return r.listQuery(ctx,
		`SELECT `+taskColumns+` FROM study_tasks WHERE user_id = $1 ORDER BY due_date NULLS LAST, created_at`,
		userID)
}

func (r *TaskRepo) ListByUserCourse(ctx context.Context, userID, courseID uuid.UUID) ([]models.StudyTask, error) {
	return r.listQuery(ctx,
		`SELECT `+taskColumns+` FROM study_tasks WHERE user_id = $1 AND course_id = $2 ORDER BY due_date NULLS LAST, created_at`,
		userID, courseID)
}

func (r *TaskRepo) listQuery(ctx context.Context, query string, args ...any) ([]models.StudyTask, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.StudyTask, 0)
	for rows.Next() {
		var t models.StudyTask
		err := rows.Scan(&t.ID, &t.UserID, &t.CourseID, &t.TopicTag, &t.Title,
			&t.EstimatedMinutes, &t.Status, &t.DueDate, &t.CompletedAt, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == "done" {
		now := time.Now()
		_, err := r.pool.Exec(ctx,
			"UPDATE study_tasks SET status = $1, completed_at = $2 WHERE id = $3", status, now, id)
		return err
	}
	_, err := r.pool.Exec(ctx,
		"UPDATE study_tasks SET status = $1, completed_at = NULL WHERE id = $2", status, id)
	return err
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM study_tasks WHERE id = $1", id)
	return err
}
