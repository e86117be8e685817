package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	c.ID = uuid.New()
	c.Status = "pending"

	metadataBytes := []byte(c.MetadataJSON)
	if metadataBytes == nil {
		metadataBytes = []byte("{}")
	}

	query := `INSERT INTO courses (id, user_id, title, exam_level, status, file_path, metadata_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Title, c.ExamLevel, c.Status, c.FilePath, metadataBytes,
	).Scan(&c.CreatedAt)
}

func (r *CourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c := &models.Course{}
	query := `SELECT id, user_id, title, exam_level, status, file_path, material_text, question_count, metadata_json, created_at
		FROM courses WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Title, &c.ExamLevel, &c.Status, &c.FilePath,
		&c.MaterialText, &c.QuestionCount, &c.MetadataJSON, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CourseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Course, error) {
	// material_text can be megabytes of extracted source; list views never
	// need it.
	query := `SELECT id, user_id, title, exam_level, status, file_path, question_count, metadata_json, created_at
		FROM courses WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		c := &models.Course{}
		err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.ExamLevel, &c.Status,
			&c.FilePath, &c.QuestionCount, &c.MetadataJSON, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE courses SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *CourseRepo) SetMaterialText(ctx context.Context, id uuid.UUID, text string) error {
	_, err := r.pool.Exec(ctx, "UPDATE courses SET material_text = $1 WHERE id = $2", text, id)
	return err
}

func (r *CourseRepo) UpdateQuestionCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE courses SET question_count = (SELECT COUNT(*) FROM questions WHERE course_id = $1) WHERE id = $1", id)
	return err
}

func (r *CourseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM courses WHERE id = $1", id)
	return err
}

// Sections

func (r *CourseRepo) CreateSection(ctx context.Context, s *models.Section) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx,
		"INSERT INTO sections (id, course_id, title, idx) VALUES ($1, $2, $3, $4)",
		s.ID, s.CourseID, s.Title, s.Index,
	)
	return err
}

func (r *CourseRepo) ListSections(ctx context.Context, courseID uuid.UUID) ([]models.Section, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, course_id, title, idx FROM sections WHERE course_id = $1 ORDER BY idx", courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]models.Section, 0)
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.CourseID, &s.Title, &s.Index); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}
