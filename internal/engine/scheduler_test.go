package engine

import (
	"math"
	"testing"
	"time"
)

const epsilon = 1e-6

var reviewTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %.6f, want %.6f", name, got, want)
	}
}

// --- Retrievability ---

func TestRetrievabilityAtZero(t *testing.T) {
	for _, s := range []float64{0.5, 1, 5, 100} {
		assertFloat(t, "R(0, S)", Retrievability(0, s), 1.0)
	}
}

func TestRetrievabilityDecreasing(t *testing.T) {
	prev := Retrievability(0, 5)
	for _, days := range []float64{0.5, 1, 3, 10, 50, 365} {
		r := Retrievability(days, 5)
		if r >= prev {
			t.Fatalf("R(%v, 5) = %.4f, expected < %.4f", days, r, prev)
		}
		prev = r
	}
}

func TestRetrievabilityDegenerateStability(t *testing.T) {
	// Zero or negative stability falls back to the floor instead of dividing by zero.
	if r := Retrievability(1, 0); math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 || r > 1 {
		t.Errorf("R(1, 0) = %v, expected a probability", r)
	}
	if r := Retrievability(1, -3); r <= 0 || r > 1 {
		t.Errorf("R(1, -3) = %v, expected a probability", r)
	}
}

// --- NewScheduler defaults ---

func TestNewSchedulerDefaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	if s.w != DefaultWeights {
		t.Error("zero weights should fall back to DefaultWeights")
	}
	assertFloat(t, "retention", s.retention, 0.9)
	if s.minInterval != 1 || s.maxInterval != 365 {
		t.Errorf("interval bounds = [%d, %d], want [1, 365]", s.minInterval, s.maxInterval)
	}
}

func TestNewSchedulerBadRetention(t *testing.T) {
	for _, r := range []float64{-0.5, 0, 1, 2.4} {
		s := NewScheduler(SchedulerConfig{DesiredRetention: r})
		assertFloat(t, "retention fallback", s.retention, 0.9)
	}
}

// --- NextInterval ---

func TestNextIntervalMonotoneInStability(t *testing.T) {
	s := NewScheduler(SchedulerConfig{MaxInterval: 36500})
	prev := 0
	for _, stability := range []float64{0.5, 1, 2, 5, 20, 100, 1000} {
		ivl := s.NextInterval(stability)
		if ivl < prev {
			t.Fatalf("NextInterval(%v) = %d, decreased from %d", stability, ivl, prev)
		}
		prev = ivl
	}
}

func TestNextIntervalClamped(t *testing.T) {
	s := NewScheduler(SchedulerConfig{MinInterval: 2, MaxInterval: 30})
	if got := s.NextInterval(0.01); got != 2 {
		t.Errorf("tiny stability interval = %d, want the 2-day floor", got)
	}
	if got := s.NextInterval(1e6); got != 30 {
		t.Errorf("huge stability interval = %d, want the 30-day cap", got)
	}
}

// --- first review ---

func TestFirstReviewGood(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	card := s.ReviewCard(NewCard(), Good, 0, reviewTime)

	if card.State != Review {
		t.Errorf("state = %v, want Review", card.State)
	}
	assertFloat(t, "stability", card.Stability, DefaultWeights[2])
	if card.Difficulty < 1 || card.Difficulty > 10 {
		t.Errorf("difficulty = %v, outside [1, 10]", card.Difficulty)
	}
	if card.Reps != 1 || card.Lapses != 0 {
		t.Errorf("reps/lapses = %d/%d, want 1/0", card.Reps, card.Lapses)
	}

	wantIvl := int(math.Round(DefaultWeights[2] * 9 * (1/0.9 - 1)))
	if card.Interval != wantIvl {
		t.Errorf("interval = %d, want %d", card.Interval, wantIvl)
	}
	if card.NextReview == nil || !card.NextReview.Equal(reviewTime.AddDate(0, 0, wantIvl)) {
		t.Errorf("next review = %v, want %v", card.NextReview, reviewTime.AddDate(0, 0, wantIvl))
	}
}

func TestFirstReviewAgainEntersLearning(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	card := s.ReviewCard(NewCard(), Again, 0, reviewTime)

	if card.State != Learning {
		t.Errorf("state = %v, want Learning", card.State)
	}
	assertFloat(t, "stability", card.Stability, DefaultWeights[0])
	// A failed first review is not a lapse.
	if card.Lapses != 0 {
		t.Errorf("lapses = %d, want 0", card.Lapses)
	}
}

func TestFirstReviewInitStabilityPerGrade(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	for _, grade := range []Grade{Again, Hard, Good, Easy} {
		card := s.ReviewCard(NewCard(), grade, 0, reviewTime)
		assertFloat(t, "S0("+grade.String()+")", card.Stability, DefaultWeights[grade-1])
	}
}

// --- subsequent reviews ---

func reviewedCard(s *Scheduler, grade Grade) Card {
	return s.ReviewCard(NewCard(), grade, 0, reviewTime.AddDate(0, 0, -10))
}

func TestSuccessNeverShrinksStability(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	base := reviewedCard(s, Good)

	for _, grade := range []Grade{Hard, Good, Easy} {
		for _, elapsed := range []float64{0.5, 3, 10, 40} {
			got := s.ReviewCard(base, grade, elapsed, reviewTime)
			if got.Stability < base.Stability {
				t.Errorf("%v after %v days: stability %v < %v", grade, elapsed, got.Stability, base.Stability)
			}
			if got.State != Review {
				t.Errorf("%v: state = %v, want Review", grade, got.State)
			}
		}
	}
}

func TestLapseShrinksStability(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	base := reviewedCard(s, Easy)

	got := s.ReviewCard(base, Again, 5, reviewTime)
	if got.Stability > base.Stability {
		t.Errorf("lapse stability %v > pre-lapse %v", got.Stability, base.Stability)
	}
	if got.State != Relearning {
		t.Errorf("state = %v, want Relearning", got.State)
	}
	if got.Lapses != base.Lapses+1 {
		t.Errorf("lapses = %d, want %d", got.Lapses, base.Lapses+1)
	}
}

func TestEasyOutgrowsHard(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	base := reviewedCard(s, Good)

	hard := s.ReviewCard(base, Hard, 5, reviewTime)
	good := s.ReviewCard(base, Good, 5, reviewTime)
	easy := s.ReviewCard(base, Easy, 5, reviewTime)

	if !(hard.Stability < good.Stability && good.Stability < easy.Stability) {
		t.Errorf("stabilities hard=%v good=%v easy=%v, want strictly increasing",
			hard.Stability, good.Stability, easy.Stability)
	}
}

func TestDifficultyStaysInRange(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	card := s.ReviewCard(NewCard(), Again, 0, reviewTime)
	// Hammer one direction; mean reversion plus clamping must hold the range.
	for i := 0; i < 50; i++ {
		card = s.ReviewCard(card, Again, 2, reviewTime)
		if card.Difficulty < 1 || card.Difficulty > 10 {
			t.Fatalf("difficulty = %v after %d lapses, outside [1, 10]", card.Difficulty, i+1)
		}
	}
}

func TestReviewCardTotalOnGarbage(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	broken := Card{State: Review, Stability: -4, Difficulty: 42, Reps: 3}

	got := s.ReviewCard(broken, Grade(99), -10, reviewTime)
	if got.Stability <= 0 {
		t.Errorf("stability = %v, want positive", got.Stability)
	}
	if got.Difficulty < 1 || got.Difficulty > 10 {
		t.Errorf("difficulty = %v, outside [1, 10]", got.Difficulty)
	}
	if got.Interval < 1 {
		t.Errorf("interval = %d, want >= 1", got.Interval)
	}
}

func TestReviewCardDoesNotMutateInput(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	card := NewCard()
	before := card
	s.ReviewCard(card, Good, 0, reviewTime)
	if card != before {
		t.Error("input card was mutated")
	}
}

func TestRepsAccumulate(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	card := NewCard()
	for i, grade := range []Grade{Good, Good, Again, Hard, Good} {
		card = s.ReviewCard(card, grade, float64(card.Interval), reviewTime.AddDate(0, 0, i))
		if card.Reps != i+1 {
			t.Fatalf("reps = %d after review %d", card.Reps, i+1)
		}
	}
	if card.Lapses != 1 {
		t.Errorf("lapses = %d, want 1", card.Lapses)
	}
}
