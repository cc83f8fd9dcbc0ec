package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/memory"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/providers"
)

// assembleMessages implements the six-section prompt-assembly policy named
// in §4.3, adapted from the teacher's l.buildMessages call shape in
// internal/agent/loop.go (history + summary + current message) and
// generalized with the sliding window and memory-block sections the
// teacher's single-tenant chat history never needed.
func (rt *Runtime) assembleMessages(ctx context.Context, sess *model.AgentSession, userText string, opts Options, slashNote string) ([]providers.Message, windowPlan) {
	var sysParts []string

	// 1. Static system prefix.
	sysParts = append(sysParts, rt.deps.SystemPrompt)
	if opts.SystemPreamble != "" {
		sysParts = append(sysParts, opts.SystemPreamble)
	}

	// 2 & 3. User-profile + context-memory blocks, gated on memory being
	// enabled and the turn being substantial enough to warrant recall.
	fresh := len(sess.Messages) == 0
	eligible := (len(userText) >= 4) || (fresh && len(userText) >= 1)
	if !opts.SkipMemoryInjection && eligible && len(opts.MemoryTexts) > 0 {
		sysParts = append(sysParts, "Relevant memory:\n"+strings.Join(opts.MemoryTexts, "\n---\n"))
	}

	// 4. Sliding context window.
	fullTurns := opts.FullContextTurns
	if fullTurns <= 0 {
		fullTurns = rt.deps.FullContextTurns
	}
	cachedTurns := opts.CachedContextTurns
	if cachedTurns <= 0 {
		cachedTurns = rt.deps.CachedContextTurns
	}
	plan := planSlidingWindow(sess.Messages, sess.CompressedThroughRound, fullTurns, cachedTurns)
	if plan.ShouldCompress {
		rt.compressRounds(ctx, sess, plan)
	}
	if len(sess.CompressionSummaries) > 0 {
		sysParts = append(sysParts, "Earlier conversation summary:\n"+strings.Join(sess.CompressionSummaries, "\n"))
	}

	// 5. Dynamic per-turn block.
	var dyn []string
	if opts.RulesContent != "" {
		dyn = append(dyn, opts.RulesContent)
	}
	if opts.ActiveSkillInstructions != "" {
		dyn = append(dyn, opts.ActiveSkillInstructions)
	} else if opts.SkillMetadataForDiscovery != "" {
		dyn = append(dyn, opts.SkillMetadataForDiscovery)
	}
	if slashNote != "" {
		dyn = append(dyn, slashNote)
	}
	if opts.PromptInjection != "" {
		dyn = append(dyn, opts.PromptInjection)
	}
	if len(dyn) > 0 {
		sysParts = append(sysParts, strings.Join(dyn, "\n\n"))
	}

	messages := []providers.Message{{Role: "system", Content: strings.Join(nonEmpty(sysParts), "\n\n")}}
	messages = append(messages, toProviderMessages(plan.History)...)

	// 6. Current user message.
	messages = append(messages, providers.Message{Role: "user", Content: userText})

	return messages, plan
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toProviderMessages flattens each AgentMessage's parts into the flat
// providers.Message shape a provider's Chat/ChatStream expects: text parts
// concatenate into Content, and every tool part becomes both a tool_call on
// the message and, for assistant messages, a following role="tool" result
// message; a part's status is not consulted.
func toProviderMessages(msgs []*model.AgentMessage) []providers.Message {
	var out []providers.Message
	for _, m := range msgs {
		var text strings.Builder
		var toolCalls []providers.ToolCall
		var toolResults []providers.Message
		for _, p := range m.Parts {
			switch p.Type {
			case model.PartText:
				text.WriteString(p.Content)
			case model.PartTool:
				toolCalls = append(toolCalls, providers.ToolCall{ID: p.ID, Name: p.Name, Arguments: p.Arguments})
				toolResults = append(toolResults, providers.Message{Role: "tool", Content: p.Result, ToolCallID: p.ID})
			}
		}
		role := string(m.Role)
		out = append(out, providers.Message{Role: role, Content: text.String(), ToolCalls: toolCalls})
		if m.Role == model.RoleAssistant {
			out = append(out, toolResults...)
		}
	}
	return out
}

// compressRounds implements the compress-next-B-rounds step of the sliding
// window: it writes the discarded round range as an episodic memory (when a
// memory writer is configured) and appends a plain-text fallback summary,
// then advances session.compressedThroughRound.
func (rt *Runtime) compressRounds(ctx context.Context, sess *model.AgentSession, plan windowPlan) {
	from, to := plan.CompressFrom, plan.CompressTo
	if to > len(sess.Messages) {
		to = len(sess.Messages)
	}
	var buf strings.Builder
	for _, m := range sess.Messages[from:to] {
		for _, p := range m.Parts {
			if p.Type == model.PartText && p.Content != "" {
				buf.WriteString(string(m.Role))
				buf.WriteString(": ")
				buf.WriteString(p.Content)
				buf.WriteString("\n")
			}
		}
	}
	summary := strings.TrimSpace(buf.String())
	if summary == "" {
		sess.CompressedThroughRound = plan.NewCompressedThrough
		return
	}

	sess.CompressionSummaries = append(sess.CompressionSummaries, summary)
	sess.CompressedThroughRound = plan.NewCompressedThrough

	if rt.deps.Memory != nil {
		_, _, err := rt.deps.Memory.ProcessMemCell(ctx, memory.MemCell{Content: summary, Type: memory.TypeEpisodic},
			memory.Routing{Scope: sess.Scope, SessionID: sess.ID})
		if err != nil {
			slog.Warn("chat: failed to persist compressed round summary as memory", "session", sess.ID, "error", err)
		}
	}

	rt.deps.Bus.Emit(bus.EventSessionCompressing, map[string]interface{}{
		"scope": sess.Scope, "sessionId": sess.ID, "from": from, "to": to,
	})
}
