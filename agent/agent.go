package agent

import (
	"context"

	"github.com/TerryZYH/PokerRangeCalculator/llm"
	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// defaultHistoryWindow is how many prior turns are sent with a general
// question.
const defaultHistoryWindow = 5

// Agent routes chat messages through the intent workflow to the gateway.
type Agent struct {
	gateway       *llm.Gateway
	historyWindow int
}

// Option configures an Agent.
type Option func(*Agent)

// WithHistoryWindow sets how many prior turns accompany a general question.
// Default is 5.
func WithHistoryWindow(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.historyWindow = n
		}
	}
}

// New creates an agent on top of a gateway.
func New(gateway *llm.Gateway, opts ...Option) *Agent {
	a := &Agent{
		gateway:       gateway,
		historyWindow: defaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Available reports whether the underlying gateway has a provider.
func (a *Agent) Available() bool {
	return a.gateway.Available()
}

// Gateway exposes the underlying gateway for callers that bypass the
// intent workflow, such as the range endpoints.
func (a *Agent) Gateway() *llm.Gateway {
	return a.gateway
}

// exchange is the fixed-shape state threaded through one workflow run.
type exchange struct {
	message      string
	history      []types.Message
	rangeContext *types.RangeContext
	result       string
}

// Chat runs the workflow for one message and returns the reply text. The
// gateway absorbs provider failures, so this never returns an error.
func (a *Agent) Chat(ctx context.Context, message string, history []types.Message, rc *types.RangeContext) string {
	if !a.gateway.Available() {
		return llm.UnavailableMessage
	}

	ex := &exchange{
		message:      message,
		history:      history,
		rangeContext: rc,
	}

	intent := ClassifyIntent(message)
	st := nextState(stateClassify, intent)
	logger.Debug("intent classified", "intent", intent.String())

	systemPrompt := llm.SystemPrompt(rc)

	switch st {
	case stateAnalyzeRange:
		ex.result = a.gateway.Chat(ctx, AnalyzePrompt(ex.message), systemPrompt, nil)
	case stateRecommendRange:
		ex.result = a.gateway.Chat(ctx, RecommendPrompt(ex.message), systemPrompt, nil)
	case stateAnswerQuestion:
		ex.result = a.gateway.Chat(ctx, ex.message, systemPrompt, lastTurns(ex.history, a.historyWindow))
	default:
		// Unreachable with a correct transition function.
		ex.result = llm.UnavailableMessage
	}

	return ex.result
}

// ChatStream streams the reply for one message. The streaming path skips
// per-intent prompt specialization and talks to the gateway directly with
// the recent history window.
func (a *Agent) ChatStream(ctx context.Context, message string, history []types.Message, rc *types.RangeContext) <-chan llm.Fragment {
	if !a.gateway.Available() {
		out := make(chan llm.Fragment, 1)
		out <- llm.Fragment{Err: llm.ErrUnavailable}
		close(out)
		return out
	}

	return a.gateway.ChatStream(ctx, message, llm.SystemPrompt(rc), lastTurns(history, a.historyWindow))
}

// lastTurns returns the trailing n turns of a history.
func lastTurns(history []types.Message, n int) []types.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
