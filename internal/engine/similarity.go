package engine

import "strings"

// Stem similarity: two question prompts are near-duplicates when, after
// aggressive normalization, they are identical, one contains the other, or
// their token overlap exceeds a threshold. Used by the selector to keep
// rephrasings of the same vignette out of a single session.

var stemStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "which": {}, "what": {},
	"that": {}, "this": {}, "from": {}, "into": {}, "has": {}, "have": {},
	"was": {}, "are": {}, "is": {}, "of": {}, "in": {}, "to": {}, "a": {},
	"an": {}, "most": {}, "likely": {}, "following": {}, "patient": {},
	"presents": {}, "next": {}, "best": {}, "step": {},
}

const containmentMinChars = 90

// normalizeStem lowercases, strips non-alphanumerics, and collapses runs of
// whitespace to single spaces.
func normalizeStem(stem string) string {
	var b strings.Builder
	b.Grow(len(stem))
	lastSpace := true
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// stemTokens returns the normalized content tokens of a stem: stop-words and
// tokens of two characters or fewer are dropped.
func stemTokens(stem string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(normalizeStem(stem)) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stemStopWords[tok]; stop {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// nearDuplicateStems reports whether two stems are too similar to coexist in
// one assessment at the given overlap threshold.
func nearDuplicateStems(a, b string, threshold float64) bool {
	na, nb := normalizeStem(a), normalizeStem(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) >= containmentMinChars && strings.Contains(na, nb) {
		return true
	}
	if len(nb) >= containmentMinChars && strings.Contains(nb, na) {
		return true
	}
	return tokenOverlap(stemTokens(a), stemTokens(b)) > threshold
}

// tokenOverlap computes |A∩B| / max(|A|, |B|).
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}
