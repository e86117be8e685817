package engine

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

// Severity buckets a weakness score for display and prioritization.
type Severity string

const (
	SeverityStrong    Severity = "STRONG"
	SeverityReinforce Severity = "REINFORCE"
	SeverityCritical  Severity = "CRITICAL"
)

const (
	criticalThreshold  = 0.65
	reinforceThreshold = 0.45

	recencyDefaultDays = 14.0
	speedBaselineSec   = 60.0
	defaultRankLimit   = 5
)

func severityFor(score float64) Severity {
	switch {
	case score >= criticalThreshold:
		return SeverityCritical
	case score >= reinforceThreshold:
		return SeverityReinforce
	default:
		return SeverityStrong
	}
}

// TopicStats accumulates raw signals for one topic tag.
type TopicStats struct {
	TotalAttempts int
	WrongAttempts int
	TotalTimeSec  int
	LastAttempt   time.Time
}

// WeakTopic is one entry in a ranked weakness list.
type WeakTopic struct {
	Tag           string   `json:"tag"`
	Attempts      int      `json:"attempts"`
	Accuracy      float64  `json:"accuracy"`
	AvgTimeSec    float64  `json:"avg_time_sec"`
	WeaknessScore float64  `json:"weakness_score"`
	Severity      Severity `json:"severity"`
}

// AccumulateTopicStats folds attempt history into per-tag stats. Each attempt
// contributes to every tag on its question; attempts whose question is missing
// from the index, and questions with no tags, are skipped.
func AccumulateTopicStats(attempts []models.Attempt, questionIndex map[uuid.UUID]models.Question) map[string]TopicStats {
	stats := make(map[string]TopicStats)
	for _, a := range attempts {
		q, ok := questionIndex[a.QuestionID]
		if !ok {
			continue
		}
		for _, tag := range q.TopicTags {
			if tag == "" {
				continue
			}
			s := stats[tag]
			s.TotalAttempts++
			if !a.Correct {
				s.WrongAttempts++
			}
			s.TotalTimeSec += a.TimeSpentSec
			if a.CreatedAt.After(s.LastAttempt) {
				s.LastAttempt = a.CreatedAt
			}
			stats[tag] = s
		}
	}
	return stats
}

// RankWeakTopics scores each topic with the course-level weakness formula
//
//	0.6*errorRate + 0.3*recencyPenalty + 0.1*speedPenalty
//
// and returns at most limit topics (default 5) in non-increasing score order.
// Topics never attempted recently are penalized as if last seen
// recencyDefaultDays ago.
func RankWeakTopics(topicStats map[string]TopicStats, now time.Time, limit int) []WeakTopic {
	if limit <= 0 {
		limit = defaultRankLimit
	}

	out := make([]WeakTopic, 0, len(topicStats))
	for tag, s := range topicStats {
		if s.TotalAttempts == 0 {
			continue
		}
		score, accuracy, avgTime := courseWeaknessScore(s, now)
		out = append(out, WeakTopic{
			Tag:           tag,
			Attempts:      s.TotalAttempts,
			Accuracy:      accuracy,
			AvgTimeSec:    avgTime,
			WeaknessScore: score,
			Severity:      severityFor(score),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].WeaknessScore != out[j].WeaknessScore {
			return out[i].WeaknessScore > out[j].WeaknessScore
		}
		return out[i].Tag < out[j].Tag
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// courseWeaknessScore is the 3-term strategy used for course-wide history.
// The session-level strategy in recommend.go weighs confidence as a fourth
// term; the two are intentionally kept separate.
func courseWeaknessScore(s TopicStats, now time.Time) (score, accuracy, avgTime float64) {
	total := float64(s.TotalAttempts)
	errorRate := float64(s.WrongAttempts) / total
	accuracy = 1 - errorRate

	days := recencyDefaultDays
	if !s.LastAttempt.IsZero() {
		days = now.Sub(s.LastAttempt).Hours() / 24.0
		if days < 0 {
			days = 0
		}
	}
	recencyPenalty := clamp01(days / recencyDefaultDays)

	avgTime = float64(s.TotalTimeSec) / total
	speedPenalty := 0.0
	if avgTime > speedBaselineSec {
		speedPenalty = clamp01((avgTime - speedBaselineSec) / speedBaselineSec)
	}

	score = clamp01(0.6*errorRate + 0.3*recencyPenalty + 0.1*speedPenalty)
	return score, accuracy, avgTime
}

// OverallStats summarizes accuracy over an attempt history.
type OverallStats struct {
	TotalAnswered   int     `json:"total_answered"`
	TotalCorrect    int     `json:"total_correct"`
	OverallAccuracy float64 `json:"overall_accuracy"`
}

// OverallAccuracy folds the attempt history into totals. Empty input yields
// zero values, never an error.
func OverallAccuracy(attempts []models.Attempt) OverallStats {
	var s OverallStats
	for _, a := range attempts {
		s.TotalAnswered++
		if a.Correct {
			s.TotalCorrect++
		}
	}
	if s.TotalAnswered > 0 {
		s.OverallAccuracy = float64(s.TotalCorrect) / float64(s.TotalAnswered)
	}
	return s
}

// CompletionSummary reports study-plan progress.
type CompletionSummary struct {
	TotalStudyMinutes int     `json:"total_study_minutes"`
	CompletionPercent float64 `json:"completion_percent"`
}

// CompletionStats sums completed-task minutes and the done fraction of the
// task list.
func CompletionStats(tasks []models.StudyTask) CompletionSummary {
	var sum CompletionSummary
	done := 0
	for _, t := range tasks {
		if t.Status == "done" {
			done++
			sum.TotalStudyMinutes += t.EstimatedMinutes
		}
	}
	if len(tasks) > 0 {
		sum.CompletionPercent = math.Round(float64(done)/float64(len(tasks))*1000) / 10
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
