package lira

import (
	"math"
	"testing"
)

// A positive back-off on a bypassed state raises transition weights
// above what the bounds saw.
var positiveBackOffLM = []ngram{
	{"<s>", -99, -1},
	{"</s>", -1, 0},
	{"b", -1, 0.3},
	{"<s> b", -0.5, 0},
}

func TestCompact_boundsBeforeBypass(t *testing.T) {
	a := newTestBuilder(t, positiveBackOffLM).Dump(1)
	near := func(got Weight, want float64) bool {
		return math.Abs(float64(got-ln10(want))) < floatTol
	}
	// Bounds are taken from the draft probabilities, before [b] is
	// bypassed and its back-off is folded into the transitions.
	if bp := a.State(a.Zerogram()).BestProb; !near(bp, -1) {
		t.Errorf("expect zerogram bound %g; got %g", ln10(-1), bp)
	}
	if !near(a.MaxBound(), -0.5) {
		t.Errorf("expect max bound %g; got %g", ln10(-0.5), a.MaxBound())
	}

	q, w := a.NextS(a.Zerogram(), "b")
	if q != a.Zerogram() || !near(w, -0.7) {
		t.Errorf("expect (%d, %g) from zerogram; got (%d, %g)", a.Zerogram(), ln10(-0.7), q, w)
	}
	if a.Start() == a.Zerogram() {
		t.Fatal("expect [<s>] to be kept")
	}
	if q, w := a.NextS(a.Start(), "b"); q != a.Zerogram() || !near(w, -0.2) {
		t.Errorf("expect (%d, %g) after <s>; got (%d, %g)", a.Zerogram(), ln10(-0.2), q, w)
	}
}
