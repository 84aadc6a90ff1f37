package features

// ImpliedProb converts American odds to the implied probability the
// price charges for, vig included. -110 prices to ~0.5238, +150 to 0.40.
func ImpliedProb(odds float64) float64 {
	if odds < 0 {
		return -odds / (-odds + 100)
	}
	return 100 / (odds + 100)
}

// VigAndFairProbs returns the bookmaker margin and the no-vig
// probabilities for a two-sided line. The fair probabilities are the
// implied probabilities renormalized to sum to 1. ok is false when the
// pair is degenerate (implied probabilities sum to zero).
func VigAndFairProbs(overOdds, underOdds float64) (vigPct, fairOver, fairUnder float64, ok bool) {
	overImplied := ImpliedProb(overOdds)
	underImplied := ImpliedProb(underOdds)

	total := overImplied + underImplied
	if total <= 0 {
		return 0, 0, 0, false
	}

	vigPct = (total - 1) * 100
	fairOver = overImplied / total
	fairUnder = underImplied / total
	return vigPct, fairOver, fairUnder, true
}
