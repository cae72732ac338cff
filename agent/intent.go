// Package agent implements the assistant's intent-routed chat workflow.
//
// Every exchange runs the same four-stage flow: classify the message, route
// to one of three prompt strategies, make a single gateway call, finish.
// There are no cycles and no retries; the state machine exists so routing is
// explicit and exhaustively checkable.
package agent

import "strings"

// Intent is the closed set of request categories.
type Intent int

const (
	// IntentQuestion is the default: a general poker question.
	IntentQuestion Intent = iota

	// IntentAnalyze asks for an evaluation of a hand range.
	IntentAnalyze

	// IntentRecommend asks for a suggested hand range.
	IntentRecommend
)

// String returns the intent name.
func (i Intent) String() string {
	switch i {
	case IntentAnalyze:
		return "analyze"
	case IntentRecommend:
		return "recommend"
	default:
		return "question"
	}
}

// Keyword sets carry both English triggers and the original Chinese UI's
// phrasing. Analyze is checked before recommend; first match wins.
var (
	analyzeKeywords   = []string{"analyze", "analyse", "evaluate", "review", "分析", "评价", "合理"}
	recommendKeywords = []string{"recommend", "suggest", "should i", "advise", "推荐", "建议", "应该"}
)

// ClassifyIntent inspects a user message and returns its intent. Matching is
// case-insensitive substring search, analyze keywords first, then recommend,
// else the general-question default.
func ClassifyIntent(message string) Intent {
	lower := strings.ToLower(message)

	for _, kw := range analyzeKeywords {
		if strings.Contains(lower, kw) {
			return IntentAnalyze
		}
	}
	for _, kw := range recommendKeywords {
		if strings.Contains(lower, kw) {
			return IntentRecommend
		}
	}
	return IntentQuestion
}

// state is the closed set of workflow states.
type state int

const (
	stateClassify state = iota
	stateAnswerQuestion
	stateAnalyzeRange
	stateRecommendRange
	stateDone
)

// nextState is the pure transition function of the workflow. From classify
// the intent selects one of three handler states; every handler state
// transitions unconditionally to done.
func nextState(s state, intent Intent) state {
	switch s {
	case stateClassify:
		switch intent {
		case IntentAnalyze:
			return stateAnalyzeRange
		case IntentRecommend:
			return stateRecommendRange
		default:
			return stateAnswerQuestion
		}
	case stateAnswerQuestion, stateAnalyzeRange, stateRecommendRange, stateDone:
		return stateDone
	default:
		return stateDone
	}
}
