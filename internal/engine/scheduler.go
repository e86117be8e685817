package engine

import (
	"math"
	"time"
)

const (
	minStability  = 0.1
	minDifficulty = 1.0
	maxDifficulty = 10.0

	defaultRetention   = 0.9
	defaultMinInterval = 1
	defaultMaxInterval = 365
)

// SchedulerConfig configures a Scheduler. Zero values fall back to defaults:
// DefaultWeights, retention 0.9, interval bounds [1, 365].
type SchedulerConfig struct {
	Weights          Weights `json:"weights"`
	DesiredRetention float64 `json:"desired_retention"`
	MinInterval      int     `json:"min_interval"`
	MaxInterval      int     `json:"max_interval"`
}

// Scheduler turns review grades into updated card state using a power-law
// forgetting-curve model. It is stateless between calls and safe for
// concurrent use.
type Scheduler struct {
	w           Weights
	retention   float64
	minInterval int
	maxInterval int
}

// NewScheduler builds a Scheduler from cfg, substituting defaults for zero or
// out-of-range fields. It never fails: pathological configs degrade to the
// defaults rather than erroring.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	w := cfg.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}

	retention := cfg.DesiredRetention
	if retention <= 0 || retention >= 1 {
		retention = defaultRetention
	}

	minIvl := cfg.MinInterval
	if minIvl < 1 {
		minIvl = defaultMinInterval
	}
	maxIvl := cfg.MaxInterval
	if maxIvl < minIvl {
		maxIvl = defaultMaxInterval
		if maxIvl < minIvl {
			maxIvl = minIvl
		}
	}

	return &Scheduler{w: w, retention: retention, minInterval: minIvl, maxInterval: maxIvl}
}

// Retrievability returns the modeled probability of recall after elapsedDays
// given stability: R(t, S) = (1 + t/(9S))^-1. R(0, S) = 1 for any S > 0 and
// decreases monotonically with t.
func Retrievability(elapsedDays, stability float64) float64 {
	if stability < minStability {
		stability = minStability
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	return 1.0 / (1.0 + elapsedDays/(9.0*stability))
}

// NextInterval inverts the forgetting curve: the number of days until
// retrievability decays to the desired retention, clamped to the scheduler's
// interval bounds.
func (s *Scheduler) NextInterval(stability float64) int {
	if stability < minStability {
		stability = minStability
	}
	ivl := int(math.Round(stability * 9.0 * (1.0/s.retention - 1.0)))
	if ivl < s.minInterval {
		ivl = s.minInterval
	}
	if ivl > s.maxInterval {
		ivl = s.maxInterval
	}
	return ivl
}

// ReviewCard applies one review to a card and returns the updated copy. It is
// a total function: invalid grades are clamped, degenerate stability or
// elapsed time fall back to safe floors, and the input card is never mutated.
func (s *Scheduler) ReviewCard(card Card, grade Grade, elapsedDays float64, now time.Time) Card {
	if grade < Again {
		grade = Again
	}
	if grade > Easy {
		grade = Easy
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}

	c := card
	if c.State == New || c.Reps == 0 {
		s.firstReview(&c, grade)
	} else {
		s.subsequentReview(&c, grade, elapsedDays)
	}

	c.Reps++
	c.Interval = s.NextInterval(c.Stability)
	c.LastReview = &now
	next := now.AddDate(0, 0, c.Interval)
	c.NextReview = &next

	return c
}

// firstReview initializes stability and difficulty from the per-grade weight
// table. A failed first review starts in Learning; anything else goes straight
// to Review.
func (s *Scheduler) firstReview(c *Card, grade Grade) {
	c.Stability = clampStability(s.w[grade-1])
	c.Difficulty = clampDifficulty(s.initDifficulty(grade))

	if grade == Again {
		c.State = Learning
	} else {
		c.State = Review
	}
}

func (s *Scheduler) subsequentReview(c *Card, grade Grade, elapsedDays float64) {
	stability := clampStability(c.Stability)
	difficulty := clampDifficulty(c.Difficulty)
	r := Retrievability(elapsedDays, stability)

	if grade == Again {
		// Lapse: stability decays and can never improve on a failure.
		lapsed := s.forgetStability(difficulty, stability, r)
		c.Stability = clampStability(math.Min(lapsed, stability))
		c.State = Relearning
		c.Lapses++
	} else {
		c.Stability = clampStability(s.recallStability(difficulty, stability, r, grade))
		c.State = Review
	}

	c.Difficulty = s.nextDifficulty(difficulty, grade)
}

// initDifficulty computes D0(g) = w4 - e^(w5*(g-1)) + 1, unclamped.
func (s *Scheduler) initDifficulty(grade Grade) float64 {
	return s.w[4] - math.Exp(s.w[5]*float64(grade-1)) + 1
}

// nextDifficulty nudges difficulty by the grade delta, then mean-reverts
// toward the Good-grade anchor: D' = w7*D0(Good) + (1-w7)*(D - w6*(g-3)).
func (s *Scheduler) nextDifficulty(difficulty float64, grade Grade) float64 {
	shifted := difficulty - s.w[6]*float64(grade-3)
	reverted := s.w[7]*s.initDifficulty(Good) + (1-s.w[7])*shifted
	return clampDifficulty(reverted)
}

// recallStability grows stability after a successful recall:
// S' = S * (1 + e^w8 * (11-D) * S^-w9 * (e^(w10*(1-R)) - 1) * hardPenalty * easyBonus).
// Growth is largest when the recall happened near the edge of forgetting
// (low R) on an easy card (low D).
func (s *Scheduler) recallStability(d, stability, r float64, grade Grade) float64 {
	hardPenalty := 1.0
	if grade == Hard {
		hardPenalty = s.w[15]
	}
	easyBonus := 1.0
	if grade == Easy {
		easyBonus = s.w[16]
	}
	return stability * (1 + math.Exp(s.w[8])*
		(11-d)*
		math.Pow(stability, -s.w[9])*
		(math.Exp(s.w[10]*(1-r))-1)*
		hardPenalty*easyBonus)
}

// forgetStability computes post-lapse stability:
// S' = w11 * D^-w12 * ((S+1)^w13 - 1) * e^(w14*(1-R)).
func (s *Scheduler) forgetStability(d, stability, r float64) float64 {
	return s.w[11] *
		math.Pow(d, -s.w[12]) *
		(math.Pow(stability+1, s.w[13]) - 1) *
		math.Exp(s.w[14]*(1-r))
}

func clampStability(v float64) float64 {
	if math.IsNaN(v) || v < minStability {
		return minStability
	}
	return v
}

func clampDifficulty(v float64) float64 {
	if math.IsNaN(v) || v < minDifficulty {
		return minDifficulty
	}
	if v > maxDifficulty {
		return maxDifficulty
	}
	return v
}
