package engine

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

func confPtr(n int) *int { return &n }

func sessionAttempt(q models.Question, correct bool, timeSec int, conf *int) models.Attempt {
	return models.Attempt{
		ID:           uuid.New(),
		QuestionID:   q.ID,
		Correct:      correct,
		TimeSpentSec: timeSec,
		Confidence:   conf,
		CreatedAt:    statsNow,
	}
}

func TestComputeWeaknessProfileEmptySession(t *testing.T) {
	profile := ComputeWeaknessProfile(nil, nil, LevelByID("core"), "")
	if profile.ReadinessScore != 0 || profile.OverallAccuracy != 0 || len(profile.TopicBreakdown) != 0 {
		t.Errorf("empty session profile = %+v, want zeros", profile)
	}
}

func TestComputeWeaknessProfileCriticalTopic(t *testing.T) {
	// 10 slow cardiology responses, 2 correct, no confidence reported. The
	// session strategy should flag the topic critical.
	q := makeQuestion("cardiology")
	level := LevelByID("core")

	var responses []models.Attempt
	for i := 0; i < 10; i++ {
		responses = append(responses, sessionAttempt(q, i < 2, 150, nil))
	}

	profile := ComputeWeaknessProfile(responses, indexOf(q), level, "")
	if len(profile.TopicBreakdown) != 1 {
		t.Fatalf("breakdown size = %d, want 1", len(profile.TopicBreakdown))
	}
	topic := profile.TopicBreakdown[0]
	if topic.Tag != "cardiology" {
		t.Errorf("tag = %q, want cardiology", topic.Tag)
	}
	if topic.Severity != SeverityCritical {
		t.Errorf("severity = %s (score %v), want CRITICAL", topic.Severity, topic.WeaknessScore)
	}
	assertFloat(t, "accuracy", topic.Accuracy, 0.2)
	assertFloat(t, "overall accuracy", profile.OverallAccuracy, 0.2)
	assertFloat(t, "avg time", profile.AvgTimeSec, 150)
	if profile.ReadinessScore < 0 || profile.ReadinessScore > 100 {
		t.Errorf("readiness = %d, out of [0,100]", profile.ReadinessScore)
	}
	if profile.ReadinessScore >= 50 {
		t.Errorf("readiness = %d, want well below 50 for a 20%% session", profile.ReadinessScore)
	}
}

func TestComputeWeaknessProfilePerfectSession(t *testing.T) {
	q := makeQuestion("renal")
	level := LevelByID("core")

	var responses []models.Attempt
	for i := 0; i < 5; i++ {
		responses = append(responses, sessionAttempt(q, true, 40, confPtr(5)))
	}

	profile := ComputeWeaknessProfile(responses, indexOf(q), level, "")
	if profile.ReadinessScore != 100 {
		t.Errorf("readiness = %d, want 100", profile.ReadinessScore)
	}
	if got := profile.TopicBreakdown[0].Severity; got != SeverityStrong {
		t.Errorf("severity = %s, want STRONG", got)
	}
}

func TestMissingConfidenceScoresWorseThanHighConfidence(t *testing.T) {
	q := makeQuestion("pharmacology")
	level := LevelByID("core")

	build := func(conf *int) WeaknessProfile {
		var responses []models.Attempt
		for i := 0; i < 4; i++ {
			responses = append(responses, sessionAttempt(q, i != 0, 40, conf))
		}
		return ComputeWeaknessProfile(responses, indexOf(q), level, "")
	}

	silent := build(nil).TopicBreakdown[0].WeaknessScore
	confident := build(confPtr(5)).TopicBreakdown[0].WeaknessScore
	if silent <= confident {
		t.Errorf("missing confidence score %v should exceed high-confidence score %v",
			silent, confident)
	}
	assertFloat(t, "penalty gap", silent-confident, 0.15*missingConfidencePenalty)
}

func TestComputeWeaknessProfileFocusTagWins(t *testing.T) {
	q := makeQuestion("misc", "cardiology")
	responses := []models.Attempt{sessionAttempt(q, false, 60, nil)}

	profile := ComputeWeaknessProfile(responses, indexOf(q), LevelByID("core"), "cardiology")
	if got := profile.TopicBreakdown[0].Tag; got != "cardiology" {
		t.Errorf("primary tag = %q, want focus tag cardiology", got)
	}
}

func TestComputeWeaknessProfileBreakdownSorted(t *testing.T) {
	hard := makeQuestion("cardiology")
	easy := makeQuestion("renal")
	responses := []models.Attempt{
		sessionAttempt(hard, false, 150, nil),
		sessionAttempt(hard, false, 150, nil),
		sessionAttempt(easy, true, 30, confPtr(5)),
		sessionAttempt(easy, true, 30, confPtr(5)),
	}

	profile := ComputeWeaknessProfile(responses, indexOf(hard, easy), LevelByID("core"), "")
	if len(profile.TopicBreakdown) != 2 {
		t.Fatalf("breakdown size = %d, want 2", len(profile.TopicBreakdown))
	}
	if profile.TopicBreakdown[0].Tag != "cardiology" {
		t.Errorf("worst topic = %q, want cardiology", profile.TopicBreakdown[0].Tag)
	}
	if profile.TopicBreakdown[0].WeaknessScore < profile.TopicBreakdown[1].WeaknessScore {
		t.Errorf("breakdown not sorted by descending score")
	}
}

func TestBuildRecommendationPlanCriticalAction(t *testing.T) {
	q := makeQuestion("cardiology")
	level := LevelByID("core")

	var responses []models.Attempt
	for i := 0; i < 10; i++ {
		responses = append(responses, sessionAttempt(q, i < 2, 150, nil))
	}

	plan := BuildRecommendationPlan(ComputeWeaknessProfile(responses, indexOf(q), level, ""))
	if len(plan.PriorityTopics) != 1 {
		t.Fatalf("priority topics = %d, want 1", len(plan.PriorityTopics))
	}
	topic := plan.PriorityTopics[0]
	if topic.Tag != "cardiology" || topic.Severity != SeverityCritical {
		t.Errorf("priority topic = %+v, want critical cardiology", topic)
	}
	if topic.RecommendedMinutes <= planMinimumMinutes {
		t.Errorf("recommended minutes = %d, want above the %d floor", topic.RecommendedMinutes, planMinimumMinutes)
	}
	if len(plan.Actions) == 0 || !strings.HasPrefix(plan.Actions[0], "Fix: cardiology") {
		t.Errorf("actions = %v, want a leading \"Fix: cardiology\" entry", plan.Actions)
	}
	if len(topic.Drills) == 0 {
		t.Errorf("critical topic has no drills")
	}
	if plan.Summary == "" || len(plan.ExamTips) == 0 {
		t.Errorf("plan missing summary or exam tips: %+v", plan)
	}
}

func TestBuildRecommendationPlanMaintainOnEmptyBreakdown(t *testing.T) {
	plan := BuildRecommendationPlan(WeaknessProfile{Level: LevelByID("core"), ReadinessScore: 92})
	if plan.Summary == "" {
		t.Fatal("maintain plan has empty summary")
	}
	if len(plan.Actions) == 0 {
		t.Error("maintain plan has no actions")
	}
	if len(plan.PriorityTopics) != 0 {
		t.Errorf("maintain plan has priority topics: %v", plan.PriorityTopics)
	}
}

func TestBuildRecommendationPlanMaintainWhenAllStrong(t *testing.T) {
	profile := WeaknessProfile{
		Level:          LevelByID("core"),
		ReadinessScore: 88,
		TopicBreakdown: []WeakTopic{
			{Tag: "renal", WeaknessScore: 0.1, Severity: SeverityStrong},
			{Tag: "endocrine", WeaknessScore: 0.2, Severity: SeverityStrong},
		},
	}
	plan := BuildRecommendationPlan(profile)
	if len(plan.PriorityTopics) != 0 {
		t.Errorf("all-strong profile produced priority topics: %v", plan.PriorityTopics)
	}
}

func TestBuildRecommendationPlanLimitsTopics(t *testing.T) {
	profile := WeaknessProfile{Level: LevelByID("core"), ReadinessScore: 40}
	for i, tag := range []string{"a", "b", "c", "d", "e", "f"} {
		profile.TopicBreakdown = append(profile.TopicBreakdown, WeakTopic{
			Tag:           tag,
			WeaknessScore: 0.75 - float64(i)*0.03,
			Accuracy:      0.3,
			Severity:      SeverityCritical,
		})
	}
	plan := BuildRecommendationPlan(profile)
	if len(plan.PriorityTopics) != planTopicLimit {
		t.Fatalf("priority topics = %d, want %d", len(plan.PriorityTopics), planTopicLimit)
	}
	if plan.PriorityTopics[0].Tag != "a" {
		t.Errorf("first priority = %q, want the worst topic a", plan.PriorityTopics[0].Tag)
	}
}

func TestRecommendedMinutes(t *testing.T) {
	foundation := LevelByID("foundation") // 30 daily minutes

	// Mild weakness bottoms out at the plan floor.
	mild := WeakTopic{WeaknessScore: 0.1, Severity: SeverityReinforce}
	if got := recommendedMinutes(mild, foundation); got != planMinimumMinutes {
		t.Errorf("mild minutes = %d, want floor %d", got, planMinimumMinutes)
	}

	// Critical topics get the 1.2x multiplier before the floor:
	// (30*0.4 + 0.8*30) * 1.2 = 43.2 -> 43.
	critical := WeakTopic{WeaknessScore: 0.8, Severity: SeverityCritical}
	if got := recommendedMinutes(critical, foundation); got != 43 {
		t.Errorf("critical minutes = %d, want 43", got)
	}

	// Same score without the critical severity skips the multiplier: 36.
	reinforce := WeakTopic{WeaknessScore: 0.8, Severity: SeverityReinforce}
	if got := recommendedMinutes(reinforce, foundation); got != 36 {
		t.Errorf("reinforce minutes = %d, want 36", got)
	}
}

func TestDrillsForTiers(t *testing.T) {
	level := LevelByID("core") // 75s target

	low := drillsFor(WeakTopic{Tag: "renal", Accuracy: 0.3, AvgTimeSec: 50}, level)
	if len(low) != 2 || !strings.Contains(low[0], "Reread") {
		t.Errorf("low-accuracy drills = %v, want reread-first pair", low)
	}

	mid := drillsFor(WeakTopic{Tag: "renal", Accuracy: 0.5, AvgTimeSec: 50}, level)
	if len(mid) != 2 || !strings.Contains(mid[0], "Alternate") {
		t.Errorf("mid-accuracy drills = %v, want alternate-blocks pair", mid)
	}

	high := drillsFor(WeakTopic{Tag: "renal", Accuracy: 0.8, AvgTimeSec: 50}, level)
	if len(high) != 1 || !strings.Contains(high[0], "timed") {
		t.Errorf("high-accuracy drills = %v, want a single timed drill", high)
	}

	slow := drillsFor(WeakTopic{Tag: "renal", Accuracy: 0.8, AvgTimeSec: 120}, level)
	if len(slow) != 2 || !strings.Contains(slow[1], "timer") {
		t.Errorf("slow-topic drills = %v, want an extra pacing drill", slow)
	}
}
