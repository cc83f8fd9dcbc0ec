package chat

import (
	"testing"

	"github.com/prizm-dev/prizm/internal/model"
)

func roundMessages(n int) []*model.AgentMessage {
	msgs := make([]*model.AgentMessage, 0, n*2)
	for i := 0; i < n; i++ {
		msgs = append(msgs,
			&model.AgentMessage{Role: model.RoleUser, Parts: []model.Part{{Type: model.PartText, Content: "u"}}},
			&model.AgentMessage{Role: model.RoleAssistant, Parts: []model.Part{{Type: model.PartText, Content: "a"}}},
		)
	}
	return msgs
}

func TestPlanSlidingWindow_BelowThreshold_NoCompression(t *testing.T) {
	msgs := roundMessages(5)
	plan := planSlidingWindow(msgs, 0, 20, 10)
	if plan.ShouldCompress {
		t.Fatalf("expected no compression below A+B rounds, got %+v", plan)
	}
	if len(plan.History) != len(msgs) {
		t.Fatalf("expected full history when uncompressed, got %d messages", len(plan.History))
	}
}

func TestPlanSlidingWindow_AtThreshold_CompressesNextB(t *testing.T) {
	// A=20, B=10: once completeRounds-compressedThrough reaches 30, the
	// next B=10 rounds starting at compressedThrough=0 get compressed.
	msgs := roundMessages(30)
	plan := planSlidingWindow(msgs, 0, 20, 10)
	if !plan.ShouldCompress {
		t.Fatalf("expected compression at exactly A+B rounds, got %+v", plan)
	}
	if plan.CompressFrom != 0 || plan.CompressTo != 20 {
		t.Fatalf("expected to compress messages [0,20), got [%d,%d)", plan.CompressFrom, plan.CompressTo)
	}
	if plan.NewCompressedThrough != 10 {
		t.Fatalf("expected compressedThroughRound to advance by B=10, got %d", plan.NewCompressedThrough)
	}
	if len(plan.History) != len(msgs)-20 {
		t.Fatalf("expected tail history to start after the compressed range, got %d messages", len(plan.History))
	}
}

func TestPlanSlidingWindow_AlreadyCompressed_OnlyTailReturned(t *testing.T) {
	msgs := roundMessages(15)
	// compressedThrough=5 means rounds [0,5) (messages [0,10)) are already
	// summarized; the remaining 10 rounds of backlog are below A+B=30, so no
	// further compression this turn, but history must still skip the
	// summarized prefix.
	plan := planSlidingWindow(msgs, 5, 20, 10)
	if plan.ShouldCompress {
		t.Fatalf("expected no further compression, got %+v", plan)
	}
	if len(plan.History) != len(msgs)-10 {
		t.Fatalf("expected history to exclude the already-compressed prefix, got %d messages", len(plan.History))
	}
}

func TestPlanSlidingWindow_DefaultsAppliedWhenNonPositive(t *testing.T) {
	msgs := roundMessages(30)
	plan := planSlidingWindow(msgs, 0, 0, 0)
	if !plan.ShouldCompress {
		t.Fatalf("expected defaults of A=20,B=10 to trigger compression at 30 rounds")
	}
	if plan.NewCompressedThrough != 10 {
		t.Fatalf("expected default cachedContextTurns=10 step, got %d", plan.NewCompressedThrough)
	}
}
