package engine

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediprep-backend/internal/models"
)

const (
	// MinAssessmentCount and MaxAssessmentCount bound how many questions one
	// assessment session may request.
	MinAssessmentCount = 5
	MaxAssessmentCount = 40

	genericTag = "general"
)

// Selection passes run with progressively relaxed similarity thresholds so a
// small pool is not over-filtered, then one last unfiltered pass guarantees
// termination.
var selectionThresholds = [...]float64{0.62, 0.70, 0.78}

const fallbackThreshold = 0.88

type band int

const (
	bandIn band = iota
	bandNear
	bandFar
)

// SelectQuestions picks up to count questions from pool for an assessment at
// the given level, preferring questions inside the level's difficulty band,
// with richer explanations, and spread across topics and sections. The result
// never contains duplicate ids and avoids near-duplicate stems on a
// best-effort basis. A pool smaller than count returns everything usable.
//
// rng drives the initial per-band shuffle that breaks positional bias among
// ties; pass a seeded source for reproducible selection.
func SelectQuestions(pool []models.Question, level LevelProfile, count int, focusTag string, rng *rand.Rand) []models.Question {
	if count < MinAssessmentCount {
		count = MinAssessmentCount
	}
	if count > MaxAssessmentCount {
		count = MaxAssessmentCount
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	usable := filterUsable(pool)
	if len(usable) == 0 {
		return nil
	}

	bands := partitionBands(usable, level)
	for i := range bands {
		shuffle(bands[i], rng)
	}

	st := selectionState{
		chosen:      make(map[uuid.UUID]struct{}, count),
		tagUses:     make(map[string]int),
		sectionUses: make(map[string]int),
		focusTag:    focusTag,
		level:       level,
	}

	for _, threshold := range selectionThresholds {
		st.runPasses(bands, count, threshold)
		if len(st.selected) >= count {
			return st.selected
		}
	}

	// Last resort: one scan over the whole pool with a very loose similarity
	// bar, so even tiny or homogeneous pools fill as far as they can.
	st.fillFromAll(usable, count, fallbackThreshold)
	return st.selected
}

type selectionState struct {
	chosen      map[uuid.UUID]struct{}
	selected    []models.Question
	tagUses     map[string]int
	sectionUses map[string]int
	focusTag    string
	level       LevelProfile
}

// runPasses repeatedly scans the bands in priority order, taking the best
// admissible candidate from each, until a full scan adds nothing or count is
// reached. Diversity penalties grow as picks accumulate, so each scan's
// scores shift away from already-used topics and sections.
func (st *selectionState) runPasses(bands [3][]models.Question, count int, threshold float64) {
	for len(st.selected) < count {
		added := false
		for b := bandIn; b <= bandFar; b++ {
			if len(st.selected) >= count {
				break
			}
			if st.pickBest(bands[b], b, threshold) {
				added = true
			}
		}
		if !added {
			return
		}
	}
}

// pickBest selects the highest-scoring admissible candidate in one band.
func (st *selectionState) pickBest(candidates []models.Question, b band, threshold float64) bool {
	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, q := range candidates {
		if _, taken := st.chosen[q.ID]; taken {
			continue
		}
		if st.tooSimilar(q.Stem, threshold) {
			continue
		}
		if score := st.score(q, b); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return false
	}
	st.take(candidates[bestIdx])
	return true
}

// fillFromAll ignores band priority and diversity and just tops the session
// up with any not-yet-chosen, not-blatantly-duplicate question.
func (st *selectionState) fillFromAll(usable []models.Question, count int, threshold float64) {
	for _, q := range usable {
		if len(st.selected) >= count {
			return
		}
		if _, taken := st.chosen[q.ID]; taken {
			continue
		}
		if st.tooSimilar(q.Stem, threshold) {
			continue
		}
		st.take(q)
	}
}

func (st *selectionState) take(q models.Question) {
	st.chosen[q.ID] = struct{}{}
	st.selected = append(st.selected, q)
	st.tagUses[st.primaryTag(q)]++
	st.sectionUses[sectionKey(q)]++
}

func (st *selectionState) tooSimilar(stem string, threshold float64) bool {
	for _, picked := range st.selected {
		if nearDuplicateStems(stem, picked.Stem, threshold) {
			return true
		}
	}
	return false
}

// score combines difficulty fit, explanation depth, and a diversity penalty
// that grows with how many picks already share the candidate's topic or
// section.
func (st *selectionState) score(q models.Question, b band) float64 {
	return st.difficultyFit(q, b) + reasoningDepth(q) - st.diversityPenalty(q)
}

// difficultyFit peaks at the band midpoint; in-band candidates always start
// from a higher base than near- or far-band ones.
func (st *selectionState) difficultyFit(q models.Question, b band) float64 {
	base := 0.6
	switch b {
	case bandIn:
		base = 3.0
	case bandNear:
		base = 1.8
	}
	mid := float64(st.level.MinDifficulty+st.level.MaxDifficulty) / 2.0
	fit := base - 0.4*math.Abs(float64(q.Difficulty)-mid)
	if fit < 0 {
		fit = 0
	}
	return fit
}

// reasoningDepth rewards substantive explanations. Every contribution is
// capped so a single verbose field cannot dominate the score.
func reasoningDepth(q models.Question) float64 {
	depth := 0.0

	switch n := len(strings.TrimSpace(q.Explanation.CorrectWhy)); {
	case n >= 40:
		depth += 1.0
	case n >= 15:
		depth += 0.5
	}

	wrongSlots := len(q.Options) - 1
	if wrongSlots > 0 {
		substantive := 0
		for _, why := range q.Explanation.WhyOthersWrong {
			if !genericRationale(why) {
				substantive++
			}
		}
		ratio := float64(substantive) / float64(wrongSlots)
		if ratio > 1 {
			ratio = 1
		}
		depth += ratio
	}

	if strings.TrimSpace(q.Explanation.KeyTakeaway) != "" {
		depth += 0.5
	}
	if len(q.Citations) > 0 {
		depth += 0.5
	}
	return depth
}

// genericRationale flags filler distractor rationales ("incorrect", "not the
// answer") that carry no teaching value.
func genericRationale(why string) bool {
	w := strings.ToLower(strings.TrimSpace(why))
	if len(w) < 20 {
		return true
	}
	for _, filler := range []string{"incorrect", "wrong answer", "not the answer", "see explanation"} {
		if w == filler {
			return true
		}
	}
	return false
}

func (st *selectionState) diversityPenalty(q models.Question) float64 {
	return 0.7*float64(st.tagUses[st.primaryTag(q)]) + 0.4*float64(st.sectionUses[sectionKey(q)])
}

// primaryTag resolves which topic a question "counts against" for diversity.
// When a focus topic is set and present on the question, the focus wins;
// otherwise the first tag does. Untagged questions share a generic bucket.
func (st *selectionState) primaryTag(q models.Question) string {
	if st.focusTag != "" {
		for _, tag := range q.TopicTags {
			if tag == st.focusTag {
				return st.focusTag
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

func sectionKey(q models.Question) string {
	if q.SectionID == nil {
		return ""
	}
	return q.SectionID.String()
}

func filterUsable(pool []models.Question) []models.Question {
	usable := make([]models.Question, 0, len(pool))
	for _, q := range pool {
		if strings.TrimSpace(q.Stem) == "" {
			continue
		}
		if len(q.Options) < 2 || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		usable = append(usable, q)
	}
	return usable
}

func partitionBands(usable []models.Question, level LevelProfile) [3][]models.Question {
	var bands [3][]models.Question
	for _, q := range usable {
		switch {
		case q.Difficulty >= level.MinDifficulty && q.Difficulty <= level.MaxDifficulty:
			bands[bandIn] = append(bands[bandIn], q)
		case q.Difficulty == level.MinDifficulty-1 || q.Difficulty == level.MaxDifficulty+1:
			bands[bandNear] = append(bands[bandNear], q)
		default:
			bands[bandFar] = append(bands[bandFar], q)
		}
	}
	return bands
}

func shuffle(qs []models.Question, rng *rand.Rand) {
	rng.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
}
