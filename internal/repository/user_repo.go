package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediprep-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

type ReminderRecipient struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	ExamDate      *time.Time
	CreatedAt     time.Time
	LastSentAtRaw string
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, is_verified, plan, auth_provider, google_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	user.ID = uuid.New()
	user.Plan = "free"
	user.IsActive = true
	if user.AuthProvider == "" {
		user.AuthProvider = "password"
	}

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.IsVerified,
		user.Plan, user.AuthProvider, user.GoogleID,
	).Scan(&user.CreatedAt)
}

const userColumns = `id, email, password_hash, full_name, avatar_url, is_verified, is_active, plan,
	auth_provider, google_id, exam_date, created_at, last_login_at`

func (r *UserRepo) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL,
		&user.IsVerified, &user.IsActive, &user.Plan, &user.AuthProvider, &user.GoogleID,
		&user.ExamDate, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

func (r *UserRepo) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET is_verified = TRUE WHERE id = $1", userID)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET full_name = $1, email = $2, avatar_url = $3, exam_date = $4 WHERE id = $5",
		user.FullName, user.Email, user.AvatarURL, user.ExamDate, user.ID,
	)
	return err
}

func (r *UserRepo) LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET google_id = $1 WHERE id = $2", googleID, userID)
	return err
}

func (r *UserRepo) SetExamDate(ctx context.Context, userID uuid.UUID, examDate *time.Time) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET exam_date = $1 WHERE id = $2", examDate, userID)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	return err
}

func (r *UserRepo) CreateSettings(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "INSERT INTO user_settings (user_id) VALUES ($1) ON CONFLICT DO NOTHING", userID)
	return err
}

func (r *UserRepo) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	s := &models.UserSettings{}
	query := `SELECT user_id, default_exam_level, daily_goal_minutes, language, notifications_json, updated_at
		FROM user_settings WHERE user_id = $1`
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.DefaultExamLevel, &s.DailyGoalMinutes,
		&s.Language, &s.NotificationsJSON, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *UserRepo) UpdateSettings(ctx context.Context, s *models.UserSettings) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_settings SET default_exam_level = $1, daily_goal_minutes = $2,
		 language = $3, notifications_json = $4, updated_at = NOW() WHERE user_id = $5`,
		s.DefaultExamLevel, s.DailyGoalMinutes, s.Language, s.NotificationsJSON, s.UserID,
	)
	return err
}

func (r *UserRepo) GetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, defaultValue bool) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE((
			SELECT CASE
				WHEN LOWER(COALESCE(notifications_json->>$2, '')) IN ('true', 'false')
					THEN (notifications_json->>$2)::boolean
				ELSE NULL
			END
			FROM user_settings
			WHERE user_id = $1
		), $3)
	`, userID, key, defaultValue).Scan(&enabled)
	if err != nil {
		return defaultValue, err
	}

	return enabled, nil
}

func (r *UserRepo) SetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, enabled bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, notifications_json, updated_at)
		VALUES (
			$1,
			jsonb_build_object($2::text, to_jsonb($3::boolean)),
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_json = COALESCE(user_settings.notifications_json, '{}'::jsonb) ||
			jsonb_build_object($2::text, to_jsonb($3::boolean)),
			updated_at = NOW()
	`, userID, key, enabled)
	return err
}

func (r *UserRepo) SetNotificationTimestamp(ctx context.Context, userID uuid.UUID, key string, at time.Time) error {
	formatted := at.UTC().Format(time.RFC3339)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, notifications_json, updated_at)
		VALUES (
			$1,
			jsonb_build_object($2::text, to_jsonb($3::text)),
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_json = COALESCE(user_settings.notifications_json, '{}'::jsonb) ||
			jsonb_build_object($2::text, to_jsonb($3::text)),
			updated_at = NOW()
	`, userID, key, formatted)
	return err
}

func (r *UserRepo) ListUsersWithNotificationEnabled(ctx context.Context, notificationKey, lastSentKey string) ([]ReminderRecipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			u.id,
			u.email,
			u.full_name,
			u.exam_date,
			u.created_at,
			COALESCE(us.notifications_json->>$2, '') AS last_sent_at
		FROM users u
		LEFT JOIN user_settings us ON us.user_id = u.id
		WHERE u.is_active = TRUE
		  AND u.is_verified = TRUE
		  AND COALESCE((
			CASE
				WHEN LOWER(COALESCE(us.notifications_json->>$1, '')) IN ('true', 'false')
				THEN (us.notifications_json->>$1)::boolean
				ELSE false
			END
		  ), false) = TRUE
	`, notificationKey, lastSentKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := make([]ReminderRecipient, 0)
	for rows.Next() {
		var recipient ReminderRecipient
		if scanErr := rows.Scan(
			&recipient.ID,
			&recipient.Email,
			&recipient.FullName,
			&recipient.ExamDate,
			&recipient.CreatedAt,
			&recipient.LastSentAtRaw,
		); scanErr != nil {
			return nil, scanErr
		}
		recipients = append(recipients, recipient)
	}

	return recipients, rows.Err()
}

func (r *UserRepo) GetWeeklyStudyStats(ctx context.Context, userID uuid.UUID) (attempts int, assessments int, tasksDone int, studyHours float64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM attempts WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '7 days') AS attempts,
			(SELECT COUNT(*) FROM assessments WHERE user_id = $1 AND started_at >= NOW() - INTERVAL '7 days') AS assessments,
			(SELECT COUNT(*) FROM study_tasks WHERE user_id = $1 AND status = 'done' AND completed_at >= NOW() - INTERVAL '7 days') AS tasks_done,
			COALESCE((
				SELECT SUM(time_spent_sec)::float8 / 3600.0
				FROM attempts
				WHERE user_id = $1
				  AND created_at >= NOW() - INTERVAL '7 days'
			), 0) AS study_hours
	`, userID).Scan(&attempts, &assessments, &tasksDone, &studyHours)
	return
}

func (r *UserRepo) GetLatestActivityAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var ts pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(last_activity_at) FROM (
			SELECT MAX(created_at) AS last_activity_at FROM attempts WHERE user_id = $1
			UNION ALL
			SELECT MAX(started_at) AS last_activity_at FROM assessments WHERE user_id = $1
			UNION ALL
			SELECT MAX(completed_at) AS last_activity_at FROM study_tasks WHERE user_id = $1
		) activity
	`, userID).Scan(&ts)
	if err != nil {
		return nil, err
	}

	if !ts.Valid {
		return nil, nil
	}

	t := ts.Time
	return &t, nil
}
