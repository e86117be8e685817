package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

// WeaknessProfile is the session-level diagnosis produced after an assessment.
type WeaknessProfile struct {
	Level           LevelProfile `json:"level"`
	OverallAccuracy float64      `json:"overall_accuracy"`
	AvgTimeSec      float64      `json:"avg_time_sec"`
	ReadinessScore  int          `json:"readiness_score"` // 0-100
	TopicBreakdown  []WeakTopic  `json:"topic_breakdown"`
}

// PriorityTopic is one remediation target in a plan.
type PriorityTopic struct {
	Tag                string   `json:"tag"`
	Severity           Severity `json:"severity"`
	WeaknessScore      float64  `json:"weakness_score"`
	Accuracy           float64  `json:"accuracy"`
	RecommendedMinutes int      `json:"recommended_minutes"`
	Drills             []string `json:"drills"`
}

// Plan is the human-actionable output handed back to the app.
type Plan struct {
	Summary        string          `json:"summary"`
	PriorityTopics []PriorityTopic `json:"priority_topics"`
	Actions        []string        `json:"actions"`
	ExamTips       []string        `json:"exam_tips"`
}

const (
	missingConfidencePenalty = 0.45
	planTopicLimit           = 4
	planMinimumMinutes       = 25
	slowDrillFactor          = 1.5
)

type sessionTopicAgg struct {
	attempts   int
	wrong      int
	timeSec    int
	confSum    int
	confCount  int
	missedDiff int // sum of difficulty over missed questions
}

// ComputeWeaknessProfile aggregates one assessment session into per-topic
// weakness scores and a 0-100 readiness score. Each response counts against
// the question's primary topic (the focus topic when set and present,
// otherwise the first tag; untagged questions share a generic bucket).
//
// The per-topic score is the session-level strategy
//
//	0.55*errorRate + 0.2*slowPenalty + 0.15*confidencePenalty + 0.1*difficultyPenalty
//
// which, unlike the course-level strategy in weakness.go, folds in reported
// confidence and the difficulty of missed questions.
func ComputeWeaknessProfile(responses []models.Attempt, questionIndex map[uuid.UUID]models.Question, level LevelProfile, focusTag string) WeaknessProfile {
	profile := WeaknessProfile{Level: level}
	if len(responses) == 0 {
		return profile
	}

	byTopic := make(map[string]*sessionTopicAgg)
	totalCorrect := 0
	totalTime := 0

	for _, resp := range responses {
		if resp.Correct {
			totalCorrect++
		}
		totalTime += resp.TimeSpentSec

		q, ok := questionIndex[resp.QuestionID]
		if !ok {
			continue
		}
		tag := PrimaryTopicTag(q, focusTag)
		agg := byTopic[tag]
		if agg == nil {
			agg = &sessionTopicAgg{}
			byTopic[tag] = agg
		}
		agg.attempts++
		agg.timeSec += resp.TimeSpentSec
		if resp.Confidence != nil {
			agg.confSum += *resp.Confidence
			agg.confCount++
		}
		if !resp.Correct {
			agg.wrong++
			agg.missedDiff += q.Difficulty
		}
	}

	profile.OverallAccuracy = float64(totalCorrect) / float64(len(responses))
	profile.AvgTimeSec = float64(totalTime) / float64(len(responses))

	scoreSum := 0.0
	for tag, agg := range byTopic {
		score := sessionWeaknessScore(agg, level)
		avgTime := float64(agg.timeSec) / float64(agg.attempts)
		profile.TopicBreakdown = append(profile.TopicBreakdown, WeakTopic{
			Tag:           tag,
			Attempts:      agg.attempts,
			Accuracy:      1 - float64(agg.wrong)/float64(agg.attempts),
			AvgTimeSec:    avgTime,
			WeaknessScore: score,
			Severity:      severityFor(score),
		})
		scoreSum += score
	}

	sort.Slice(profile.TopicBreakdown, func(i, j int) bool {
		a, b := profile.TopicBreakdown[i], profile.TopicBreakdown[j]
		if a.WeaknessScore != b.WeaknessScore {
			return a.WeaknessScore > b.WeaknessScore
		}
		return a.Tag < b.Tag
	})

	meanWeakness := 0.0
	if len(profile.TopicBreakdown) > 0 {
		meanWeakness = scoreSum / float64(len(profile.TopicBreakdown))
	}
	readiness := math.Round(100 * (0.7*profile.OverallAccuracy + 0.3*(1-meanWeakness)))
	profile.ReadinessScore = int(math.Min(100, math.Max(0, readiness)))

	return profile
}

// sessionWeaknessScore is the 4-term session-level strategy. Absent
// confidence data gets the worst-case penalty rather than a free pass.
func sessionWeaknessScore(agg *sessionTopicAgg, level LevelProfile) float64 {
	total := float64(agg.attempts)
	errorRate := float64(agg.wrong) / total

	avgTime := float64(agg.timeSec) / total
	target := float64(level.TargetTimeSec)
	slowPenalty := 0.0
	if target > 0 && avgTime > target {
		slowPenalty = clamp01((avgTime - target) / target)
	}

	confidencePenalty := missingConfidencePenalty
	if agg.confCount > 0 {
		meanConf := float64(agg.confSum) / float64(agg.confCount)
		confidencePenalty = clamp01((5 - meanConf) / 10)
	}

	difficultyPenalty := 0.0
	if agg.attempts > 0 {
		difficultyPenalty = clamp01(float64(agg.missedDiff) / (5 * total))
	}

	return clamp01(0.55*errorRate + 0.2*slowPenalty + 0.15*confidencePenalty + 0.1*difficultyPenalty)
}

// PrimaryTopicTag returns the single tag a response is counted against: the
// focus tag when set and present on the question, otherwise the question's
// first non-empty tag, otherwise a generic bucket.
func PrimaryTopicTag(q models.Question, focusTag string) string {
	if focusTag != "" {
		for _, tag := range q.TopicTags {
			if tag == focusTag {
				return focusTag
			}
		}
	}
	for _, tag := range q.TopicTags {
		if tag != "" {
			return tag
		}
	}
	return genericTag
}

// BuildRecommendationPlan turns a weakness profile into a prioritized study
// plan. Profiles where every topic is STRONG get a short "maintain momentum"
// plan; otherwise the worst non-STRONG topics (at most four) each get a time
// budget and tiered drills.
func BuildRecommendationPlan(profile WeaknessProfile) Plan {
	var weak []WeakTopic
	for _, t := range profile.TopicBreakdown {
		if t.Severity != SeverityStrong {
			weak = append(weak, t)
		}
	}

	if len(weak) == 0 {
		return maintainPlan(profile)
	}
	if len(weak) > planTopicLimit {
		weak = weak[:planTopicLimit]
	}

	plan := Plan{
		Summary: fmt.Sprintf(
			"Readiness %d/100. Your biggest gap is %s — close it first, then rotate through the other priority topics below.",
			profile.ReadinessScore, weak[0].Tag),
		ExamTips: examTips(),
	}

	for _, topic := range weak {
		minutes := recommendedMinutes(topic, profile.Level)
		plan.PriorityTopics = append(plan.PriorityTopics, PriorityTopic{
			Tag:                topic.Tag,
			Severity:           topic.Severity,
			WeaknessScore:      topic.WeaknessScore,
			Accuracy:           topic.Accuracy,
			RecommendedMinutes: minutes,
			Drills:             drillsFor(topic, profile.Level),
		})
		label := "Review"
		if topic.Severity == SeverityCritical {
			label = "Fix"
		}
		plan.Actions = append(plan.Actions,
			fmt.Sprintf("%s: %s — %d focused minutes (%.0f%% accuracy so far)",
				label, topic.Tag, minutes, topic.Accuracy*100))
	}

	return plan
}

func maintainPlan(profile WeaknessProfile) Plan {
	return Plan{
		Summary: fmt.Sprintf(
			"Readiness %d/100 with no weak topics detected. Maintain momentum with mixed practice and keep your review streak alive.",
			profile.ReadinessScore),
		Actions: []string{
			"Keep a daily mixed-topic practice block to protect retention",
			"Retake a full-length assessment within a week to confirm coverage",
		},
		ExamTips: examTips(),
	}
}

// recommendedMinutes budgets study time for one topic:
// round(max(25, (dailyMinutes*0.4 + score*30) * 1.2-if-critical)).
func recommendedMinutes(topic WeakTopic, level LevelProfile) int {
	minutes := float64(level.RecommendedDailyMinutes)*0.4 + topic.WeaknessScore*30
	if topic.Severity == SeverityCritical {
		minutes *= 1.2
	}
	if minutes < planMinimumMinutes {
		minutes = planMinimumMinutes
	}
	return int(math.Round(minutes))
}

// drillsFor keys drill text on accuracy bands, with an extra pacing drill for
// topics answered far slower than the level target.
func drillsFor(topic WeakTopic, level LevelProfile) []string {
	var drills []string
	switch {
	case topic.Accuracy < 0.40:
		drills = append(drills,
			fmt.Sprintf("Reread the %s material and rebuild your notes before attempting new questions", topic.Tag),
			fmt.Sprintf("Work 10 untimed %s questions with explanations open", topic.Tag),
		)
	case topic.Accuracy < 0.60:
		drills = append(drills,
			fmt.Sprintf("Alternate blocks of 5 %s questions with a review of every miss", topic.Tag),
			fmt.Sprintf("Summarize the key takeaway of each missed %s question in one sentence", topic.Tag),
		)
	default:
		drills = append(drills,
			fmt.Sprintf("Run timed sets of 10 %s questions at full difficulty", topic.Tag),
		)
	}

	if level.TargetTimeSec > 0 && topic.AvgTimeSec >= slowDrillFactor*float64(level.TargetTimeSec) {
		drills = append(drills,
			fmt.Sprintf("Practice %s questions against a %d-second timer to build pacing", topic.Tag, level.TargetTimeSec))
	}
	return drills
}

func examTips() []string {
	return []string{
		"Eliminate two options before committing to an answer",
		"Flag and move on when a question passes double your time budget",
		"Review every explanation, including questions you got right",
	}
}
