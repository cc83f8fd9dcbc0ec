package chat

import "github.com/prizm-dev/prizm/internal/model"

// windowPlan is the result of evaluating the sliding context window for one
// turn: which round range (if any) should be compressed this turn, the
// advanced compressedThroughRound, and the message slice to feed the
// prompt's history section.
type windowPlan struct {
	ShouldCompress     bool
	CompressFrom       int // message index, inclusive
	CompressTo         int // message index, exclusive
	NewCompressedThrough int
	History            []*model.AgentMessage
}

// planSlidingWindow implements the §4.3 sliding context window (A/B)
// algorithm: fullContextTurns=A, cachedContextTurns=B, counting complete
// rounds as assistant messages. No teacher analogue — fresh per the spec's
// explicit compression contract.
func planSlidingWindow(messages []*model.AgentMessage, compressedThrough, fullContextTurns, cachedContextTurns int) windowPlan {
	completeRounds := 0
	for _, m := range messages {
		if m.Role == model.RoleAssistant {
			completeRounds++
		}
	}

	plan := windowPlan{NewCompressedThrough: compressedThrough}

	if fullContextTurns <= 0 {
		fullContextTurns = 20
	}
	if cachedContextTurns <= 0 {
		cachedContextTurns = 10
	}

	if completeRounds-compressedThrough >= fullContextTurns+cachedContextTurns {
		plan.ShouldCompress = true
		plan.CompressFrom = 2 * compressedThrough
		plan.CompressTo = 2 * (compressedThrough + cachedContextTurns)
		plan.NewCompressedThrough = compressedThrough + cachedContextTurns
	}

	tailStart := 2 * plan.NewCompressedThrough
	if tailStart > len(messages) {
		tailStart = len(messages)
	}
	plan.History = messages[tailStart:]
	return plan
}
