package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

// uniqueStem builds stems whose content tokens barely overlap across indices,
// so the similarity filter never collapses a synthetic pool. Callers use
// disjoint index ranges within one test.
func uniqueStem(i int) string {
	return fmt.Sprintf("Ward w%03d admits a patient whose organ%03d shows lesion%03d treated by agent%03d on day%03d",
		i, i, i, i, i)
}

func poolQuestion(stem string, difficulty int, tags ...string) models.Question {
	return models.Question{
		ID:           uuid.New(),
		Stem:         stem,
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: 1,
		Difficulty:   difficulty,
		TopicTags:    tags,
		Explanation: models.Explanation{
			CorrectWhy:     "Beta-1 blockade lowers myocardial oxygen demand by reducing heart rate and contractility.",
			WhyOthersWrong: []string{"Calcium channel blockers are second line here because of the reduced ejection fraction."},
			KeyTakeaway:    "First-line rate control in HFrEF is a beta blocker.",
		},
	}
}

// distinctPool builds n pairwise-dissimilar questions at one difficulty,
// indexed from base.
func distinctPool(base, n, difficulty int) []models.Question {
	pool := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, poolQuestion(uniqueStem(base+i), difficulty, fmt.Sprintf("topic-%d", base+i)))
	}
	return pool
}

func TestSelectQuestionsNoDuplicateIDs(t *testing.T) {
	pool := distinctPool(0, 30, 3)
	got := SelectQuestions(pool, LevelByID("core"), 10, "", rand.New(rand.NewSource(1)))
	if len(got) != 10 {
		t.Fatalf("selected %d, want 10", len(got))
	}
	seen := make(map[uuid.UUID]struct{})
	for _, q := range got {
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

func TestSelectQuestionsSmallPoolReturnsAllUsable(t *testing.T) {
	pool := distinctPool(0, 7, 2)
	got := SelectQuestions(pool, LevelByID("core"), 20, "", rand.New(rand.NewSource(2)))
	if len(got) != 7 {
		t.Errorf("selected %d, want the whole pool of 7", len(got))
	}
}

func TestSelectQuestionsEmptyPool(t *testing.T) {
	if got := SelectQuestions(nil, LevelByID("core"), 10, "", rand.New(rand.NewSource(3))); got != nil {
		t.Errorf("expected nil for empty pool, got %d questions", len(got))
	}
}

func TestSelectQuestionsFiltersUnusable(t *testing.T) {
	bad := []models.Question{
		{ID: uuid.New(), Stem: "   ", Options: []string{"A", "B"}, CorrectIndex: 0, Difficulty: 3},
		{ID: uuid.New(), Stem: "Only one option", Options: []string{"A"}, CorrectIndex: 0, Difficulty: 3},
		{ID: uuid.New(), Stem: "Answer out of range", Options: []string{"A", "B"}, CorrectIndex: 5, Difficulty: 3},
		{ID: uuid.New(), Stem: "Negative answer index", Options: []string{"A", "B"}, CorrectIndex: -1, Difficulty: 3},
	}
	pool := append(distinctPool(0, 6, 3), bad...)

	got := SelectQuestions(pool, LevelByID("core"), 10, "", rand.New(rand.NewSource(4)))
	if len(got) != 6 {
		t.Fatalf("selected %d, want the 6 usable questions", len(got))
	}
	badIDs := make(map[uuid.UUID]struct{})
	for _, q := range bad {
		badIDs[q.ID] = struct{}{}
	}
	for _, q := range got {
		if _, isBad := badIDs[q.ID]; isBad {
			t.Errorf("unusable question %q selected", q.Stem)
		}
	}
}

func TestSelectQuestionsAvoidsNearDuplicates(t *testing.T) {
	vignette := "A 63-year-old man with diabetes presents with crushing chest pain radiating to the jaw and diaphoresis for the last hour"
	rephrase := "A 63-year-old diabetic man presents with crushing chest pain radiating to the jaw and diaphoresis over the last hour"
	pool := append(distinctPool(0, 4, 3),
		poolQuestion(vignette, 3, "cardiology"),
		poolQuestion(rephrase, 3, "cardiology"),
	)

	got := SelectQuestions(pool, LevelByID("core"), 5, "", rand.New(rand.NewSource(5)))
	if len(got) != 5 {
		t.Fatalf("selected %d, want 5", len(got))
	}
	dupes := 0
	for _, q := range got {
		if q.Stem == vignette || q.Stem == rephrase {
			dupes++
		}
	}
	if dupes > 1 {
		t.Errorf("both rephrasings of the same vignette selected")
	}
}

func TestSelectQuestionsScansBandsEachPass(t *testing.T) {
	// Core band is 2-3; difficulty 5 is far-band. Each selection pass takes
	// the best candidate from every non-empty band, so with both bands
	// stocked a 10-question session splits evenly.
	pool := append(distinctPool(0, 10, 3), distinctPool(100, 10, 5)...)

	got := SelectQuestions(pool, LevelByID("core"), 10, "", rand.New(rand.NewSource(6)))
	if len(got) != 10 {
		t.Fatalf("selected %d, want 10", len(got))
	}
	inBand := 0
	for _, q := range got {
		if q.Difficulty == 3 {
			inBand++
		}
	}
	if inBand != 5 {
		t.Errorf("in-band picks = %d, want 5 of 10", inBand)
	}
	if got[0].Difficulty != 3 {
		t.Errorf("first pick difficulty = %d, want in-band 3", got[0].Difficulty)
	}
}

func TestSelectQuestionsDeterministicWithSeed(t *testing.T) {
	pool := distinctPool(0, 25, 3)
	a := SelectQuestions(pool, LevelByID("core"), 8, "", rand.New(rand.NewSource(42)))
	b := SelectQuestions(pool, LevelByID("core"), 8, "", rand.New(rand.NewSource(42)))
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("selection diverges at %d with identical seeds", i)
		}
	}
}

func TestSelectQuestionsCountClamped(t *testing.T) {
	pool := distinctPool(0, 60, 3)
	if got := SelectQuestions(pool, LevelByID("core"), 1, "", rand.New(rand.NewSource(7))); len(got) != MinAssessmentCount {
		t.Errorf("count below minimum: selected %d, want %d", len(got), MinAssessmentCount)
	}
	if got := SelectQuestions(pool, LevelByID("core"), 500, "", rand.New(rand.NewSource(8))); len(got) != MaxAssessmentCount {
		t.Errorf("count above maximum: selected %d, want %d", len(got), MaxAssessmentCount)
	}
}

func TestSelectQuestionsSpreadsTopics(t *testing.T) {
	// 12 cardiology questions and 4 single-question topics, all in-band; the
	// growing per-tag penalty should pull every other topic into an
	// 8-question session.
	pool := make([]models.Question, 0, 16)
	for i := 0; i < 12; i++ {
		pool = append(pool, poolQuestion(uniqueStem(200+i), 3, "cardiology"))
	}
	others := []string{"renal", "pulmonology", "endocrine", "neurology"}
	for i, tag := range others {
		pool = append(pool, poolQuestion(uniqueStem(300+i), 3, tag))
	}

	got := SelectQuestions(pool, LevelByID("core"), 8, "", rand.New(rand.NewSource(9)))
	if len(got) != 8 {
		t.Fatalf("selected %d, want 8", len(got))
	}
	tags := make(map[string]int)
	for _, q := range got {
		tags[q.TopicTags[0]]++
	}
	for _, tag := range others {
		if tags[tag] == 0 {
			t.Errorf("topic %q never selected despite diversity pressure", tag)
		}
	}
}

func TestDifficultyFitPeaksAtBandMidpoint(t *testing.T) {
	st := selectionState{level: LevelByID("boards")} // band 4-5, midpoint 4.5
	at := func(d int) float64 {
		return st.difficultyFit(models.Question{Difficulty: d}, bandIn)
	}
	if at(4) <= at(2) {
		t.Errorf("fit(4)=%v should exceed fit(2)=%v", at(4), at(2))
	}
	assertFloat(t, "fit at difficulty 4", at(4), 3.0-0.4*0.5)
}

func TestReasoningDepthRewardsSubstance(t *testing.T) {
	rich := poolQuestion(uniqueStem(0), 3, "cardiology")
	rich.Citations = []string{"Harrison's ch. 12"}

	bare := models.Question{
		Stem:         uniqueStem(1),
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: 0,
		Difficulty:   3,
		Explanation:  models.Explanation{WhyOthersWrong: []string{"incorrect", "wrong answer"}},
	}

	if reasoningDepth(rich) <= reasoningDepth(bare) {
		t.Errorf("rich explanation depth %v not above bare %v",
			reasoningDepth(rich), reasoningDepth(bare))
	}
	if d := reasoningDepth(bare); d != 0 {
		t.Errorf("filler-only rationale depth = %v, want 0", d)
	}
}
