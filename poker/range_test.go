package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombos(t *testing.T) {
	tests := []struct {
		name string
		hand string
		rule UnsuffixedRule
		want int
	}{
		{"pocket pair", "AA", UnsuffixedZero, 6},
		{"low pocket pair", "22", UnsuffixedZero, 6},
		{"suited", "AKs", UnsuffixedZero, 4},
		{"offsuit", "AKo", UnsuffixedZero, 12},
		{"unsuffixed strict", "AK", UnsuffixedZero, 0},
		{"unsuffixed all suits", "AK", UnsuffixedAllSuits, 16},
		{"pair ignores rule", "QQ", UnsuffixedAllSuits, 6},
		{"garbage suffix", "AKx", UnsuffixedAllSuits, 0},
		{"too long", "AKQJ", UnsuffixedAllSuits, 0},
		{"empty", "", UnsuffixedAllSuits, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combos(tt.hand, tt.rule))
		})
	}
}

func TestTotalCombos(t *testing.T) {
	// 6 + 6 + 4 from the premium trio.
	assert.Equal(t, 16, TotalCombos([]string{"AA", "KK", "AKs"}, UnsuffixedZero))

	// Mixed categories: 2 pairs, 1 suited, 1 offsuit.
	assert.Equal(t, 6+6+4+12, TotalCombos([]string{"TT", "99", "QJs", "KQo"}, UnsuffixedZero))

	// The two unsuffixed rules diverge only on unsuffixed non-pairs.
	hands := []string{"AA", "AK"}
	assert.Equal(t, 6, TotalCombos(hands, UnsuffixedZero))
	assert.Equal(t, 22, TotalCombos(hands, UnsuffixedAllSuits))

	assert.Equal(t, 0, TotalCombos(nil, UnsuffixedZero))
}

func TestProbability(t *testing.T) {
	assert.InDelta(t, 1.21, Probability(16), 0.001)
	assert.InDelta(t, 100.0, Probability(TotalStartingCombos), 0.001)
	assert.InDelta(t, 0.45, Probability(6), 0.001)
	assert.Zero(t, Probability(0))
}
