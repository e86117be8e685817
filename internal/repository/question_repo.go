package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/models"
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

const questionColumns = `id, course_id, section_id, stem, options, correct_index, difficulty,
	topic_tags, explanation_json, citations, created_at`

func (r *QuestionRepo) Create(ctx context.Context, q *models.Question) error {
	q.ID = uuid.New()

	explanationBytes, _ := json.Marshal(q.Explanation)

	query := `INSERT INTO questions (id, course_id, section_id, stem, options, correct_index, difficulty, topic_tags, explanation_json, citations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		q.ID, q.CourseID, q.SectionID, q.Stem, q.Options, q.CorrectIndex,
		q.Difficulty, q.TopicTags, explanationBytes, q.Citations,
	).Scan(&q.CreatedAt)
}

func (r *QuestionRepo) CreateBatch(ctx context.Context, questions []models.Question) error {
	for i := range questions {
		if err := r.Create(ctx, &questions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *QuestionRepo) scanQuestion(row scannable) (models.Question, error) {
	var q models.Question
	var explanationBytes []byte
	err := row.Scan(
		&q.ID, &q.CourseID, &q.SectionID, &q.Stem, &q.Options, &q.CorrectIndex,
		&q.Difficulty, &q.TopicTags, &explanationBytes, &q.Citations, &q.CreatedAt,
	)
	if err != nil {
		return q, err
	}
	if len(explanationBytes) > 0 {
		if err := json.Unmarshal(explanationBytes, &q.Explanation); err != nil {
			return q, err
		}
	}
	return q, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *QuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q, err := r.scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepo) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		q, err := r.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuestionRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]models.Question, 0, len(ids))
	for rows.Next() {
		q, err := r.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuestionRepo) ListByTag(ctx context.Context, courseID uuid.UUID, tag string) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE course_id = $1 AND $2 = ANY(topic_tags)`, courseID, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		q, err := r.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuestionRepo) CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM questions WHERE course_id = $1", courseID).Scan(&count)
	return count, err
}

func (r *QuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM questions WHERE id = $1", id)
	return err
}
