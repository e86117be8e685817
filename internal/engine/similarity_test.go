package engine

import "testing"

func TestNormalizeStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Hello,   World!  ", "hello world"},
		{"Beta-blockers (e.g. metoprolol) reduce HR", "beta blockers e g metoprolol reduce hr"},
		{"ALL CAPS", "all caps"},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := normalizeStem(tt.in); got != tt.want {
			t.Errorf("normalizeStem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStemTokensDropsStopWordsAndShortTokens(t *testing.T) {
	tokens := stemTokens("The patient presents with an MI at 3 AM")
	for _, dropped := range []string{"the", "patient", "presents", "with", "an", "mi", "at", "3", "am"} {
		if _, ok := tokens[dropped]; ok {
			t.Errorf("token %q should have been dropped", dropped)
		}
	}
	if len(tokens) != 0 {
		t.Errorf("unexpected tokens remain: %v", tokens)
	}
}

func TestNearDuplicateStems(t *testing.T) {
	vignette := "A 63-year-old man with diabetes presents with crushing chest pain radiating to the jaw and diaphoresis for the last hour"
	rephrase := "A 63-year-old diabetic man presents with crushing chest pain radiating to the jaw and diaphoresis over the last hour"
	unrelated := "Which vitamin deficiency causes megaloblastic anemia with neurologic symptoms"

	tests := []struct {
		name      string
		a, b      string
		threshold float64
		want      bool
	}{
		{"identical after normalization", "Chest pain?", "chest PAIN", 0.62, true},
		{"rephrased vignette", vignette, rephrase, 0.62, true},
		{"unrelated stems", vignette, unrelated, 0.62, false},
		{"empty never matches", "", vignette, 0.62, false},
		{"short containment not triggered", "chest pain", "chest", 0.62, false},
		{"long containment triggered", vignette, "crushing chest pain radiating to the jaw and diaphoresis for the last hour", 0.99, true},
	}
	for _, tt := range tests {
		if got := nearDuplicateStems(tt.a, tt.b, tt.threshold); got != tt.want {
			t.Errorf("%s: nearDuplicateStems = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTokenOverlap(t *testing.T) {
	set := func(words ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			m[w] = struct{}{}
		}
		return m
	}

	if got := tokenOverlap(set(), set("one")); got != 0 {
		t.Errorf("empty set overlap = %v, want 0", got)
	}
	if got := tokenOverlap(set("one", "two"), set("one", "two")); got != 1 {
		t.Errorf("identical overlap = %v, want 1", got)
	}
	// 2 shared of max(4, 2) = 0.5
	got := tokenOverlap(set("one", "two", "three", "four"), set("one", "two"))
	assertFloat(t, "partial overlap", got, 0.5)
}
