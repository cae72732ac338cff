package agent

import "fmt"

// HandsMarker is the literal prefix the recommendation prompt asks the model
// to put before its hand list, so the handler can extract it reliably.
const HandsMarker = "Hands:"

// analyzeTemplate frames a range-analysis request around the user's message.
const analyzeTemplate = `Please analyze the following hand range:

%s

Cover these points:
1. How tight or loose the range is
2. Range balance (the ratio of value hands to bluffs)
3. How it plays against different opponent types
4. Possible improvements`

// recommendTemplate frames a range-recommendation request around the user's
// message and pins the Hands: marker format for extraction.
const recommendTemplate = `Please recommend a suitable hand range based on the following:

%s

Provide:
1. A concrete list of recommended hands
2. The expected range probability
3. Your reasoning
4. Practical caveats

Start the first line of your answer with "` + HandsMarker + `" followed by every recommended hand, comma separated.
For example: ` + HandsMarker + ` AA, KK, QQ, AKs, AKo`

// AnalyzePrompt builds the range-analysis prompt for a message.
func AnalyzePrompt(message string) string {
	return fmt.Sprintf(analyzeTemplate, message)
}

// RecommendPrompt builds the range-recommendation prompt for a message.
func RecommendPrompt(message string) string {
	return fmt.Sprintf(recommendTemplate, message)
}
