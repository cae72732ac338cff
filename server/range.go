package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/TerryZYH/PokerRangeCalculator/agent"
	"github.com/TerryZYH/PokerRangeCalculator/llm"
	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/poker"
)

const (
	// maxSuggestions caps the suggestion lines pulled out of an analysis.
	maxSuggestions = 5

	// maxRecommendedHands caps the hands pulled out of a recommendation.
	maxRecommendedHands = 20
)

// analyzeRequest is the body of POST /range/analyze.
type analyzeRequest struct {
	RangeName string   `json:"range_name"`
	Hands     []string `json:"hands"`
	Position  string   `json:"position,omitempty"`
	Scenario  string   `json:"scenario,omitempty"`
}

// analyzeResponse is the body of a successful POST /range/analyze.
type analyzeResponse struct {
	Analysis          string   `json:"analysis"`
	Suggestions       []string `json:"suggestions"`
	Probability       float64  `json:"probability"`
	TotalCombinations int      `json:"total_combinations"`
}

func (s *Server) handleRangeAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req analyzeRequest
	if !s.decodeJSON(w, r, &req) {
		s.record("/range/analyze", http.StatusBadRequest, start)
		return
	}
	if len(req.Hands) == 0 {
		writeError(w, http.StatusBadRequest, "hands is required")
		s.record("/range/analyze", http.StatusBadRequest, start)
		return
	}

	if !s.agent.Available() {
		writeError(w, http.StatusServiceUnavailable, llm.UnavailableMessage)
		s.record("/range/analyze", http.StatusServiceUnavailable, start)
		return
	}

	// The calculator here ignores unsuffixed non-pair tokens; only the
	// system-prompt summary counts them as all suits.
	combos := poker.TotalCombos(req.Hands, poker.UnsuffixedZero)
	probability := poker.Probability(combos)

	prompt := agent.AnalyzePrompt(describeRange(req))
	analysis, err := s.agent.Gateway().Complete(r.Context(), prompt, llm.SystemPrompt(nil), nil)
	if err != nil {
		logger.Error("range analysis failed", "range", req.RangeName, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		s.record("/range/analyze", http.StatusInternalServerError, start)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis:          analysis,
		Suggestions:       extractSuggestions(analysis),
		Probability:       probability,
		TotalCombinations: combos,
	})
	s.record("/range/analyze", http.StatusOK, start)
}

// recommendRequest is the body of POST /range/recommend.
type recommendRequest struct {
	Position      string `json:"position"`
	Scenario      string `json:"scenario"`
	OpponentStyle string `json:"opponent_style,omitempty"`
	StackDepth    string `json:"stack_depth,omitempty"`
}

// recommendResponse is the body of a successful POST /range/recommend.
type recommendResponse struct {
	RecommendedHands []string `json:"recommended_hands"`
	Explanation      string   `json:"explanation"`
	Probability      float64  `json:"probability"`
}

func (s *Server) handleRangeRecommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req recommendRequest
	if !s.decodeJSON(w, r, &req) {
		s.record("/range/recommend", http.StatusBadRequest, start)
		return
	}
	if req.Position == "" || req.Scenario == "" {
		writeError(w, http.StatusBadRequest, "position and scenario are required")
		s.record("/range/recommend", http.StatusBadRequest, start)
		return
	}

	if !s.agent.Available() {
		writeError(w, http.StatusServiceUnavailable, llm.UnavailableMessage)
		s.record("/range/recommend", http.StatusServiceUnavailable, start)
		return
	}

	prompt := agent.RecommendPrompt(describeScenario(req))
	explanation, err := s.agent.Gateway().Complete(r.Context(), prompt, llm.SystemPrompt(nil), nil)
	if err != nil {
		logger.Error("range recommendation failed", "position", req.Position, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		s.record("/range/recommend", http.StatusInternalServerError, start)
		return
	}

	hands := extractHands(explanation)
	combos := poker.TotalCombos(hands, poker.UnsuffixedZero)

	writeJSON(w, http.StatusOK, recommendResponse{
		RecommendedHands: hands,
		Explanation:      explanation,
		Probability:      poker.Probability(combos),
	})
	s.record("/range/recommend", http.StatusOK, start)
}

// decodeJSON parses a request body into dst, writing the 400 itself on
// failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// describeRange turns an analysis request into the text the prompt template
// wraps.
func describeRange(req analyzeRequest) string {
	var b strings.Builder
	if req.RangeName != "" {
		fmt.Fprintf(&b, "Range name: %s\n", req.RangeName)
	}
	fmt.Fprintf(&b, "Hands: %s", strings.Join(req.Hands, ", "))
	if req.Position != "" {
		fmt.Fprintf(&b, "\nPosition: %s", req.Position)
	}
	if req.Scenario != "" {
		fmt.Fprintf(&b, "\nScenario: %s", req.Scenario)
	}
	return b.String()
}

// describeScenario turns a recommendation request into the text the prompt
// template wraps.
func describeScenario(req recommendRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\nScenario: %s", req.Position, req.Scenario)
	if req.OpponentStyle != "" {
		fmt.Fprintf(&b, "\nOpponent style: %s", req.OpponentStyle)
	}
	if req.StackDepth != "" {
		fmt.Fprintf(&b, "\nStack depth: %s", req.StackDepth)
	}
	return b.String()
}

// suggestionMarker matches a numbered or bulleted line prefix.
var suggestionMarker = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s+`)

// extractSuggestions scans reply lines for numbered or bulleted markers, or
// the word "suggestion", and returns up to maxSuggestions of them with the
// markers stripped.
func extractSuggestions(analysis string) []string {
	suggestions := make([]string, 0, maxSuggestions)

	for _, line := range strings.Split(analysis, "\n") {
		if len(suggestions) == maxSuggestions {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := suggestionMarker.FindString(trimmed); m != "" {
			suggestions = append(suggestions, strings.TrimPrefix(trimmed, m))
			continue
		}
		if strings.Contains(strings.ToLower(trimmed), "suggestion") {
			suggestions = append(suggestions, trimmed)
		}
	}
	return suggestions
}

// handToken matches a starting-hand notation like AA, AKs, or T9o.
var handToken = regexp.MustCompile(`\b([AKQJT2-9]{2}[so]?)\b`)

// hands markers the model is asked to emit; the Chinese form covers replies
// that follow the original UI's phrasing instead of the template's.
var handsMarkers = []string{agent.HandsMarker, "【手牌】"}

// extractHands pulls the recommended hand list out of a reply. It prefers
// the marker line the prompt asks for; failing that it falls back to
// scanning the whole reply for hand-notation tokens. The result is
// deduplicated and capped at maxRecommendedHands.
func extractHands(reply string) []string {
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, marker := range handsMarkers {
			if rest, ok := strings.CutPrefix(trimmed, marker); ok {
				if hands := scanHands(rest); len(hands) > 0 {
					return hands
				}
			}
		}
	}
	return scanHands(reply)
}

// scanHands collects unique hand tokens from text, capped at
// maxRecommendedHands.
func scanHands(text string) []string {
	seen := make(map[string]struct{})
	hands := make([]string, 0, maxRecommendedHands)

	for _, token := range handToken.FindAllString(text, -1) {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		hands = append(hands, token)
		if len(hands) == maxRecommendedHands {
			break
		}
	}
	return hands
}
