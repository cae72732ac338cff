// Package poker implements starting-hand range combinatorics.
//
// Hand notations are the usual shorthand: two rank characters for a pocket
// pair ("AA"), two ranks plus an "s" suffix for suited combos ("AKs"), or an
// "o" suffix for offsuit combos ("AKo").
package poker

import "math"

// TotalStartingCombos is the number of distinct two-card starting hands
// dealt from a 52-card deck.
const TotalStartingCombos = 1326

// Combination counts per notation category.
const (
	pairCombos    = 6
	suitedCombos  = 4
	offsuitCombos = 12
	allSuitCombos = 16
)

// UnsuffixedRule selects how a two-rank non-pair token without an s/o suffix
// (e.g. "AK") is counted. The route handlers count it as zero combos while
// the system-prompt builder counts all 16 suit combinations; both call sites
// pick their rule explicitly.
type UnsuffixedRule int

const (
	// UnsuffixedZero counts an unsuffixed non-pair token as contributing
	// no combinations.
	UnsuffixedZero UnsuffixedRule = iota

	// UnsuffixedAllSuits counts an unsuffixed non-pair token as all 16
	// suit combinations.
	UnsuffixedAllSuits
)

// Combos returns the number of distinct dealt card pairs matching the given
// hand notation. Unrecognized tokens contribute zero; there are no error
// conditions.
func Combos(hand string, rule UnsuffixedRule) int {
	switch {
	case len(hand) == 2 && hand[0] == hand[1]:
		return pairCombos
	case len(hand) == 3 && hand[2] == 's':
		return suitedCombos
	case len(hand) == 3 && hand[2] == 'o':
		return offsuitCombos
	case len(hand) == 2:
		if rule == UnsuffixedAllSuits {
			return allSuitCombos
		}
		return 0
	default:
		return 0
	}
}

// TotalCombos sums Combos over a list of hand notations.
func TotalCombos(hands []string, rule UnsuffixedRule) int {
	total := 0
	for _, h := range hands {
		total += Combos(h, rule)
	}
	return total
}

// Probability converts a combination count into the percentage of all
// starting hands it covers, rounded to two decimal places.
func Probability(combos int) float64 {
	pct := float64(combos) / TotalStartingCombos * 100
	return math.Round(pct*100) / 100
}
