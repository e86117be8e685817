package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

var statsNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func makeQuestion(tags ...string) models.Question {
	return models.Question{
		ID:           uuid.New(),
		Stem:         "A 54-year-old presents with crushing substernal chest pain radiating to the left arm",
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: 0,
		Difficulty:   3,
		TopicTags:    tags,
	}
}

func makeAttempt(q models.Question, correct bool, timeSec int, at time.Time) models.Attempt {
	return models.Attempt{
		ID:           uuid.New(),
		QuestionID:   q.ID,
		Correct:      correct,
		TimeSpentSec: timeSec,
		CreatedAt:    at,
	}
}

func indexOf(questions ...models.Question) map[uuid.UUID]models.Question {
	idx := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		idx[q.ID] = q
	}
	return idx
}

// --- AccumulateTopicStats ---

func TestAccumulateTopicStatsMultiTag(t *testing.T) {
	q := makeQuestion("cardiology", "pharmacology")
	attempts := []models.Attempt{
		makeAttempt(q, false, 80, statsNow.Add(-time.Hour)),
		makeAttempt(q, true, 40, statsNow),
	}

	stats := AccumulateTopicStats(attempts, indexOf(q))

	for _, tag := range []string{"cardiology", "pharmacology"} {
		s, ok := stats[tag]
		if !ok {
			t.Fatalf("missing stats for %q", tag)
		}
		if s.TotalAttempts != 2 || s.WrongAttempts != 1 || s.TotalTimeSec != 120 {
			t.Errorf("%s stats = %+v", tag, s)
		}
		if !s.LastAttempt.Equal(statsNow) {
			t.Errorf("%s last attempt = %v, want %v", tag, s.LastAttempt, statsNow)
		}
	}
}

func TestAccumulateTopicStatsSkipsUnknownAndUntagged(t *testing.T) {
	tagged := makeQuestion("renal")
	untagged := makeQuestion()
	orphan := makeAttempt(makeQuestion("ghost"), false, 30, statsNow) // not in index

	attempts := []models.Attempt{
		makeAttempt(tagged, true, 30, statsNow),
		makeAttempt(untagged, false, 30, statsNow),
		orphan,
	}

	stats := AccumulateTopicStats(attempts, indexOf(tagged, untagged))
	if len(stats) != 1 {
		t.Fatalf("stats for %d tags, want 1: %v", len(stats), stats)
	}
	if stats["renal"].TotalAttempts != 1 {
		t.Errorf("renal attempts = %d, want 1", stats["renal"].TotalAttempts)
	}
}

func TestAccumulateTopicStatsEmpty(t *testing.T) {
	stats := AccumulateTopicStats(nil, nil)
	if len(stats) != 0 {
		t.Errorf("expected empty stats, got %v", stats)
	}
}

// --- RankWeakTopics ---

func TestRankWeakTopicsOrderAndLimit(t *testing.T) {
	stats := map[string]TopicStats{}
	for i, tag := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		stats[tag] = TopicStats{
			TotalAttempts: 10,
			WrongAttempts: i, // increasing error rate
			TotalTimeSec:  300,
			LastAttempt:   statsNow.AddDate(0, 0, -1),
		}
	}

	ranked := RankWeakTopics(stats, statsNow, 5)
	if len(ranked) != 5 {
		t.Fatalf("len = %d, want 5", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].WeaknessScore > ranked[i-1].WeaknessScore {
			t.Errorf("scores increase at %d: %v then %v", i, ranked[i-1].WeaknessScore, ranked[i].WeaknessScore)
		}
	}
	if ranked[0].Tag != "g" {
		t.Errorf("worst topic = %q, want g", ranked[0].Tag)
	}
}

func TestRankWeakTopicsDefaultLimit(t *testing.T) {
	stats := map[string]TopicStats{}
	for _, tag := range []string{"a", "b", "c", "d", "e", "f"} {
		stats[tag] = TopicStats{TotalAttempts: 4, WrongAttempts: 2}
	}
	if got := RankWeakTopics(stats, statsNow, 0); len(got) != defaultRankLimit {
		t.Errorf("len = %d, want default %d", len(got), defaultRankLimit)
	}
}

func TestRankWeakTopicsScenario(t *testing.T) {
	// 10 cardiology attempts, 3 correct, last seen yesterday; 10 pharmacology
	// attempts, 9 correct, last seen today. Cardiology must rank first.
	stats := map[string]TopicStats{
		"cardiology": {
			TotalAttempts: 10,
			WrongAttempts: 7,
			TotalTimeSec:  600,
			LastAttempt:   statsNow.AddDate(0, 0, -1),
		},
		"pharmacology": {
			TotalAttempts: 10,
			WrongAttempts: 1,
			TotalTimeSec:  400,
			LastAttempt:   statsNow,
		},
	}

	ranked := RankWeakTopics(stats, statsNow, 5)
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	if ranked[0].Tag != "cardiology" {
		t.Fatalf("first = %q, want cardiology", ranked[0].Tag)
	}
	if ranked[0].WeaknessScore <= ranked[1].WeaknessScore {
		t.Errorf("cardiology %v not above pharmacology %v",
			ranked[0].WeaknessScore, ranked[1].WeaknessScore)
	}
	assertFloat(t, "cardiology accuracy", ranked[0].Accuracy, 0.3)
}

func TestRankWeakTopicsNeverAttemptedRecencyDefault(t *testing.T) {
	// Zero LastAttempt is penalized as if last seen 14 days ago, i.e. a full
	// recency penalty.
	stats := map[string]TopicStats{
		"stale": {TotalAttempts: 2, WrongAttempts: 0},
		"fresh": {TotalAttempts: 2, WrongAttempts: 0, LastAttempt: statsNow},
	}
	ranked := RankWeakTopics(stats, statsNow, 5)
	if ranked[0].Tag != "stale" {
		t.Errorf("first = %q, want stale (recency default should dominate)", ranked[0].Tag)
	}
}

// --- folds ---

func TestOverallAccuracy(t *testing.T) {
	q := makeQuestion("x")
	attempts := []models.Attempt{
		makeAttempt(q, true, 10, statsNow),
		makeAttempt(q, true, 10, statsNow),
		makeAttempt(q, false, 10, statsNow),
		makeAttempt(q, true, 10, statsNow),
	}
	got := OverallAccuracy(attempts)
	if got.TotalAnswered != 4 || got.TotalCorrect != 3 {
		t.Errorf("totals = %d/%d, want 3/4", got.TotalCorrect, got.TotalAnswered)
	}
	assertFloat(t, "accuracy", got.OverallAccuracy, 0.75)
}

func TestOverallAccuracyEmpty(t *testing.T) {
	got := OverallAccuracy(nil)
	if got.TotalAnswered != 0 || got.OverallAccuracy != 0 {
		t.Errorf("empty input = %+v, want zeros", got)
	}
}

func TestCompletionStats(t *testing.T) {
	tasks := []models.StudyTask{
		{Status: "done", EstimatedMinutes: 30},
		{Status: "done", EstimatedMinutes: 45},
		{Status: "pending", EstimatedMinutes: 60},
		{Status: "skipped", EstimatedMinutes: 20},
	}
	got := CompletionStats(tasks)
	if got.TotalStudyMinutes != 75 {
		t.Errorf("minutes = %d, want 75", got.TotalStudyMinutes)
	}
	assertFloat(t, "completion", got.CompletionPercent, 50)
}

func TestCompletionStatsEmpty(t *testing.T) {
	got := CompletionStats(nil)
	if got.TotalStudyMinutes != 0 || got.CompletionPercent != 0 {
		t.Errorf("empty input = %+v, want zeros", got)
	}
}
