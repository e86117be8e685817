package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/engine"
)

// TopicCard binds one spaced-repetition card to a user, course, and topic tag.
type TopicCard struct {
	UserID    uuid.UUID   `json:"user_id"`
	CourseID  uuid.UUID   `json:"course_id"`
	TopicTag  string      `json:"topic_tag"`
	Card      engine.Card `json:"card"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

const cardColumns = `user_id, course_id, topic_tag, state, stability, difficulty,
	reps, lapses, interval_days, last_review, next_review, updated_at`

func (r *CardRepo) scanCard(row scannable) (TopicCard, error) {
	var c TopicCard
	err := row.Scan(
		&c.UserID, &c.CourseID, &c.TopicTag,
		&c.Card.State, &c.Card.Stability, &c.Card.Difficulty,
		&c.Card.Reps, &c.Card.Lapses, &c.Card.Interval,
		&c.Card.LastReview, &c.Card.NextReview, &c.UpdatedAt,
	)
	return c, err
}

// Get returns the card for one user/course/topic, or a fresh new-state card
// when none has been persisted yet.
func (r *CardRepo) Get(ctx context.Context, userID, courseID uuid.UUID, topicTag string) (TopicCard, bool, error) {
	c, err := r.scanCard(r.pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM topic_cards WHERE user_id = $1 AND course_id = $2 AND topic_tag = $3`,
		userID, courseID, topicTag))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TopicCard{
				UserID:   userID,
				CourseID: courseID,
				TopicTag: topicTag,
				Card:     engine.NewCard(),
			}, false, nil
		}
		return TopicCard{}, false, err
	}
	return c, true, nil
}

func (r *CardRepo) Upsert(ctx context.Context, c *TopicCard) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO topic_cards (user_id, course_id, topic_tag, state, stability, difficulty, reps, lapses, interval_days, last_review, next_review, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (user_id, course_id, topic_tag) DO UPDATE
		SET state = $4, stability = $5, difficulty = $6, reps = $7, lapses = $8,
			interval_days = $9, last_review = $10, next_review = $11, updated_at = NOW()
	`, c.UserID, c.CourseID, c.TopicTag,
		c.Card.State, c.Card.Stability, c.Card.Difficulty,
		c.Card.Reps, c.Card.Lapses, c.Card.Interval,
		c.Card.LastReview, c.Card.NextReview)
	return err
}

func (r *CardRepo) ListByUserCourse(ctx context.Context, userID, courseID uuid.UUID) ([]TopicCard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cardColumns+` FROM topic_cards WHERE user_id = $1 AND course_id = $2 ORDER BY topic_tag`,
		userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]TopicCard, 0)
	for rows.Next() {
		c, err := r.scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ListDue returns cards whose next review is at or before now, most overdue
// first. Cards never reviewed (no next_review) are included so new topics
// enter the rotation.
func (r *CardRepo) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]TopicCard, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+cardColumns+` FROM topic_cards
		 WHERE user_id = $1 AND (next_review IS NULL OR next_review <= $2)
		 ORDER BY next_review ASC NULLS FIRST LIMIT $3`,
		userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]TopicCard, 0)
	for rows.Next() {
		c, err := r.scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *CardRepo) DeleteByCourse(ctx context.Context, courseID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM topic_cards WHERE course_id = $1", courseID)
	return err
}
