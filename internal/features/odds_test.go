package features

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestImpliedProb(t *testing.T) {
	cases := []struct {
		odds float64
		want float64
	}{
		{-110, 0.5238},
		{-200, 0.6667},
		{+150, 0.4},
		{+100, 0.5},
		{-100, 0.5},
	}
	for _, tc := range cases {
		got := ImpliedProb(tc.odds)
		if !almostEqual(got, tc.want, 0.0001) {
			t.Errorf("ImpliedProb(%v) = %.4f, want %.4f", tc.odds, got, tc.want)
		}
	}
}

func TestVigAndFairProbs_StandardJuice(t *testing.T) {
	vig, fairOver, fairUnder, ok := VigAndFairProbs(-110, -110)
	if !ok {
		t.Fatal("expected ok for a symmetric -110 line")
	}
	if !almostEqual(vig, 4.7619, 0.001) {
		t.Errorf("vig = %.4f, want ~4.76", vig)
	}
	if !almostEqual(fairOver, 0.5, 1e-9) || !almostEqual(fairUnder, 0.5, 1e-9) {
		t.Errorf("fair probs = %.4f/%.4f, want 0.5/0.5", fairOver, fairUnder)
	}
}

func TestVigAndFairProbs_AsymmetricSumsToOne(t *testing.T) {
	_, fairOver, fairUnder, ok := VigAndFairProbs(-130, +105)
	if !ok {
		t.Fatal("expected ok")
	}
	if !almostEqual(fairOver+fairUnder, 1, 1e-9) {
		t.Errorf("fair probs sum to %.6f, want 1", fairOver+fairUnder)
	}
	if fairOver <= fairUnder {
		t.Errorf("favorite side should carry the larger fair prob: over=%.4f under=%.4f", fairOver, fairUnder)
	}
}
