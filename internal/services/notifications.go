package services

import (
	"context"
	"log"
	"time"

	"mediprep-backend/internal/repository"
)

const (
	weeklyProgressLastSentKey = "weekly_progress_last_sent_at"
	studyReminderLastSentKey  = "study_reminders_last_sent_at"
	weeklyProgressInterval    = 7 * 24 * time.Hour
	studyReminderInterval     = 48 * time.Hour
	notificationPollInterval  = 1 * time.Hour
)

// NotificationScheduler drives the periodic reminder and progress emails.
// Spaced repetition degrades quickly when users go quiet, so the reminder
// cadence here is deliberately shorter than the digest cadence.
type NotificationScheduler struct {
	userRepo *repository.UserRepo
	email    *EmailService
	stopChan chan struct{}
}

func NewNotificationScheduler(userRepo *repository.UserRepo, email *EmailService) *NotificationScheduler {
	return &NotificationScheduler{
		userRepo: userRepo,
		email:    email,
		stopChan: make(chan struct{}),
	}
}

func (s *NotificationScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}

	go s.loop(func(ctx context.Context, now time.Time) {
		s.sendWeeklyProgress(ctx, now)
	})
	go s.loop(func(ctx context.Context, now time.Time) {
		s.sendStudyReminders(ctx, now)
	})

	log.Printf("Notification scheduler started")
}

func (s *NotificationScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *NotificationScheduler) loop(runFn func(ctx context.Context, now time.Time)) {
	// Run on startup as well as by interval.
	runFn(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(notificationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			runFn(context.Background(), time.Now().UTC())
		}
	}
}

func (s *NotificationScheduler) sendWeeklyProgress(ctx context.Context, now time.Time) {
	recipients, err := s.userRepo.ListUsersWithNotificationEnabled(ctx, "weekly_progress", weeklyProgressLastSentKey)
	if err != nil {
		log.Printf("weekly progress: failed to list recipients: %v", err)
		return
	}

	for _, recipient := range recipients {
		if !shouldSendByLastSent(recipient.LastSentAtRaw, weeklyProgressInterval, now) {
			continue
		}

		attempts, assessments, tasksDone, studyHours, statsErr := s.userRepo.GetWeeklyStudyStats(ctx, recipient.ID)
		if statsErr != nil {
			log.Printf("weekly progress: failed to load stats for user %s: %v", recipient.ID, statsErr)
			continue
		}

		// Nothing studied means nothing to report.
		if attempts == 0 && assessments == 0 && tasksDone == 0 && studyHours <= 0 {
			continue
		}

		if err := s.email.SendWeeklyProgressEmail(recipient.Email, recipient.FullName, attempts, assessments, tasksDone, studyHours); err != nil {
			log.Printf("weekly progress: failed to send to %s: %v", recipient.Email, err)
			continue
		}

		if err := s.userRepo.SetNotificationTimestamp(ctx, recipient.ID, weeklyProgressLastSentKey, now); err != nil {
			log.Printf("weekly progress: failed to persist last sent at for user %s: %v", recipient.ID, err)
		}
	}
}

func (s *NotificationScheduler) sendStudyReminders(ctx context.Context, now time.Time) {
	recipients, err := s.userRepo.ListUsersWithNotificationEnabled(ctx, "study_reminders", studyReminderLastSentKey)
	if err != nil {
		log.Printf("study reminders: failed to list recipients: %v", err)
		return
	}

	for _, recipient := range recipients {
		if !shouldSendByLastSent(recipient.LastSentAtRaw, studyReminderInterval, now) {
			continue
		}

		lastActivityAt, activityErr := s.userRepo.GetLatestActivityAt(ctx, recipient.ID)
		if activityErr != nil {
			log.Printf("study reminders: failed to load latest activity for user %s: %v", recipient.ID, activityErr)
			continue
		}

		referenceTime := reminderReferenceTime(lastActivityAt, recipient.CreatedAt)
		if now.Sub(referenceTime) < studyReminderInterval {
			continue
		}

		if err := s.email.SendStudyReminderEmail(recipient.Email, recipient.FullName, lastActivityAt, recipient.ExamDate); err != nil {
			log.Printf("study reminders: failed to send to %s: %v", recipient.Email, err)
			continue
		}

		if err := s.userRepo.SetNotificationTimestamp(ctx, recipient.ID, studyReminderLastSentKey, now); err != nil {
			log.Printf("study reminders: failed to persist last sent at for user %s: %v", recipient.ID, err)
		}
	}
}

func shouldSendByLastSent(lastSentRaw string, minInterval time.Duration, now time.Time) bool {
	if lastSentRaw == "" {
		return true
	}

	lastSentAt, err := time.Parse(time.RFC3339, lastSentRaw)
	if err != nil {
		return true
	}

	return now.Sub(lastSentAt) >= minInterval
}

func reminderReferenceTime(lastActivityAt *time.Time, createdAt time.Time) time.Time {
	if lastActivityAt != nil && !lastActivityAt.IsZero() {
		return lastActivityAt.UTC()
	}

	return createdAt.UTC()
}
