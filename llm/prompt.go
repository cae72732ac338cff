package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TerryZYH/PokerRangeCalculator/poker"
	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// basePrompt is the fixed strategy-assistant instruction block.
const basePrompt = `You are a professional Texas Hold'em strategy assistant. Your job is to:

1. Help players judge whether a hand range is reasonable
2. Give strategy advice based on position, scenario, and opponent style
3. Explain poker probability and math concepts
4. Answer general questions about Texas Hold'em

When answering:
- Use clear and concise language
- Give concrete numbers and probabilities
- Ground advice in GTO (game-theory optimal) strategy
- Allow for practical adjustments at real tables
- Reply in the language the user writes in

Key numbers:
- A pocket pair (e.g. AA) has 6 combinations
- A suited hand (e.g. AKs) has 4 combinations
- An offsuit hand (e.g. AKo) has 12 combinations
- There are 1326 starting-hand combinations in total

Stay professional, friendly, and patient.`

// SystemPrompt returns the assistant's system prompt. When a range context
// with hands is supplied, a computed summary of that range is appended so
// the model answers with the user's current selection in mind. Unsuffixed
// non-pair hands count as all 16 suit combinations here.
func SystemPrompt(rc *types.RangeContext) string {
	if rc == nil || len(rc.Hands) == 0 {
		return basePrompt
	}

	name := rc.Name
	if name == "" {
		name = "current range"
	}

	hands := make([]string, len(rc.Hands))
	copy(hands, rc.Hands)
	sort.Strings(hands)

	combos := poker.TotalCombos(hands, poker.UnsuffixedAllSuits)
	probability := poker.Probability(combos)

	var b strings.Builder
	b.WriteString(basePrompt)
	fmt.Fprintf(&b, `

**The user's currently selected range:**
- Range name: %s
- Hands: %s
- Hand count: %d
- Total combinations: %d
- Probability: %.2f%%

Prioritize this range in your answers. You can:
- Judge its strength and how tight or loose it is
- Discuss how well it fits different positions and scenarios
- Suggest concrete improvements
- Answer specific questions about it`,
		name, strings.Join(hands, ", "), len(hands), combos, probability)

	return b.String()
}
