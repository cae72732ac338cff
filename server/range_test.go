package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerryZYH/PokerRangeCalculator/llm"
	"github.com/TerryZYH/PokerRangeCalculator/providers"
)

func TestRangeAnalyze(t *testing.T) {
	reply := "Overall this range is solid.\n" +
		"1. Tighten up from early position\n" +
		"2) Add some suited connectors\n" +
		"- Drop the weakest offsuit aces\n" +
		"One more suggestion: mix in A5s bluffs\n"
	s, mock, _ := newTestServer(t, reply)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/analyze", analyzeRequest{
		RangeName: "UTG open",
		Hands:     []string{"AA", "KK", "AKs"},
		Position:  "UTG",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// 6 + 6 + 4 combinations out of 1326.
	assert.Equal(t, 16, body.TotalCombinations)
	assert.InDelta(t, 1.21, body.Probability, 0.001)

	assert.Equal(t, reply, body.Analysis)
	assert.Equal(t, []string{
		"Tighten up from early position",
		"Add some suited connectors",
		"Drop the weakest offsuit aces",
		"One more suggestion: mix in A5s bluffs",
	}, body.Suggestions)

	// The prompt carries the range description.
	require.Len(t, mock.LastRequest.Messages, 1)
	assert.Contains(t, mock.LastRequest.Messages[0].Content, "AA, KK, AKs")
	assert.Contains(t, mock.LastRequest.Messages[0].Content, "UTG open")
}

func TestRangeAnalyzeUnsuffixedHandsIgnored(t *testing.T) {
	s, _, _ := newTestServer(t, "fine")

	// AK has no suffix and no pair, so it contributes nothing here.
	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/analyze", analyzeRequest{
		Hands: []string{"AA", "AK"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 6, body.TotalCombinations)
}

func TestRangeAnalyzeUpstreamFailure(t *testing.T) {
	s, mock, _ := newTestServer(t, "")
	mock.ChatErr = providers.ErrMockUpstream

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/analyze", analyzeRequest{
		Hands: []string{"AA"},
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Detail, "mock upstream failure")
}

func TestRangeAnalyzeValidation(t *testing.T) {
	s, mock, _ := newTestServer(t, "")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/analyze", analyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, mock.Calls)
}

func TestRangeAnalyzeUnavailable(t *testing.T) {
	s := newUnavailableServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/analyze", analyzeRequest{
		Hands: []string{"AA"},
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, llm.UnavailableMessage, body.Detail)
}

func TestRangeRecommend(t *testing.T) {
	reply := "Hands: AA, KK, QQ, AKs, AKo\n\nFrom the button you can open wide."
	s, mock, _ := newTestServer(t, reply)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/recommend", recommendRequest{
		Position: "BTN",
		Scenario: "unopened pot",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body recommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, []string{"AA", "KK", "QQ", "AKs", "AKo"}, body.RecommendedHands)
	assert.Equal(t, reply, body.Explanation)

	// 6+6+6+4+12 = 34 combinations.
	assert.InDelta(t, 2.56, body.Probability, 0.001)

	require.Len(t, mock.LastRequest.Messages, 1)
	assert.Contains(t, mock.LastRequest.Messages[0].Content, "Position: BTN")
}

func TestRangeRecommendFallbackScan(t *testing.T) {
	// No marker line: hand tokens are scraped from the prose, deduplicated.
	reply := "I would open AA and KK for value, plus AKs. AA is a must."
	s, _, _ := newTestServer(t, reply)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/recommend", recommendRequest{
		Position: "CO",
		Scenario: "unopened pot",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body recommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"AA", "KK", "AKs"}, body.RecommendedHands)
}

func TestRangeRecommendValidation(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/recommend", recommendRequest{
		Position: "BTN",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRangeRecommendUpstreamFailure(t *testing.T) {
	s, mock, _ := newTestServer(t, "")
	mock.ChatErr = providers.ErrMockUpstream

	rec := doJSON(t, s.Handler(), http.MethodPost, "/range/recommend", recommendRequest{
		Position: "BTN",
		Scenario: "unopened pot",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExtractSuggestionsCap(t *testing.T) {
	analysis := "1. one\n2. two\n3. three\n4. four\n5. five\n6. six\n7. seven"
	suggestions := extractSuggestions(analysis)
	require.Len(t, suggestions, maxSuggestions)
	assert.Equal(t, "one", suggestions[0])
	assert.Equal(t, "five", suggestions[4])
}

func TestExtractHands(t *testing.T) {
	t.Run("marker line wins over prose", func(t *testing.T) {
		reply := "Some prose mentioning 72o.\nHands: AA, KK\nMore prose with QQ."
		assert.Equal(t, []string{"AA", "KK"}, extractHands(reply))
	})

	t.Run("chinese marker", func(t *testing.T) {
		reply := "【手牌】 AA, AKs"
		assert.Equal(t, []string{"AA", "AKs"}, extractHands(reply))
	})

	t.Run("cap and dedup", func(t *testing.T) {
		reply := "AA KK QQ JJ TT 99 88 77 66 55 44 33 22 AKs AKo AQs AQo AJs AJo ATs A9s A8s AA"
		hands := extractHands(reply)
		assert.Len(t, hands, maxRecommendedHands)
		assert.Equal(t, "AA", hands[0])
	})

	t.Run("no hands at all", func(t *testing.T) {
		assert.Empty(t, extractHands("just play tight"))
	})
}
