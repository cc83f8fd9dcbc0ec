package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/providers"
	"github.com/prizm-dev/prizm/internal/tools"
)

const defaultMaxMessageChars = 32_000

// splitProviderModel splits a "provider/model" string on its first slash,
// letting a turn ask for a provider other than the runtime's configured
// default (e.g. "openai/gpt-4o" while the default provider is anthropic).
// Model IDs that are themselves slash-separated (OpenRouter's
// "anthropic/claude-3-opus") still resolve correctly since only the first
// segment is treated as the provider name — the caller validates it against
// the registry before acting on ok.
func splitProviderModel(modelName string) (provider, rest string, ok bool) {
	name, rest, found := strings.Cut(modelName, "/")
	if !found || name == "" || rest == "" {
		return "", "", false
	}
	return name, rest, true
}

// Runtime is the Agent Session Runtime: one per process, shared across
// scopes/sessions. Grounded on internal/agent.Loop, generalized from one
// Loop-per-agent to one Runtime serving every scope, since the teacher's
// per-agent fields (model, provider, workspace) move into Options/Deps.
type Runtime struct {
	deps    Deps
	slash   *SlashRegistry
	interact *interactGate

	mu     sync.Mutex
	checkpoints map[string]*checkpoint.Store // scope root -> store
}

// New constructs a Runtime. slash may be nil, in which case all slash
// commands fall through to the unmatched-prefix path (a literal "/..."
// message sent straight to the LLM).
func New(deps Deps, slash *SlashRegistry) *Runtime {
	if slash == nil {
		slash = NewSlashRegistry()
	}
	if deps.MaxMessageChars <= 0 {
		deps.MaxMessageChars = defaultMaxMessageChars
	}
	if deps.MaxIterations <= 0 {
		deps.MaxIterations = 24
	}
	if deps.InteractTimeout <= 0 {
		deps.InteractTimeout = 10 * time.Minute
	}
	return &Runtime{deps: deps, slash: slash, interact: newInteractGate(), checkpoints: make(map[string]*checkpoint.Store)}
}

func sessionKey(scope, sessionID string) string { return scope + "/" + sessionID }

func (rt *Runtime) checkpointStore(scope string) *checkpoint.Store {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	root := rt.deps.ScopeRoots(scope)
	if s, ok := rt.checkpoints[root]; ok {
		return s
	}
	s := checkpoint.NewStore(root)
	rt.checkpoints[root] = s
	return s
}

// Stop cancels any in-flight turn for (scope, sessionID). Idempotent: a
// session with no running turn is a no-op.
func (rt *Runtime) Stop(scope, sessionID string) {
	if sess, ok := rt.deps.Sessions.Get(scope, sessionID); ok {
		sess.Cancel()
	}
}

// ResolveInteract delivers an interact-response to the session's pending
// interactRequest, if one is open. Returns false if the session isn't
// currently waiting; resp.RequestID is not compared against the pending
// request.
func (rt *Runtime) ResolveInteract(scope, sessionID string, resp InteractResponse) bool {
	return rt.interact.Resolve(sessionKey(scope, sessionID), resp)
}

// SendMessage starts a turn against an existing session and returns once
// it's scheduled, without waiting for it to finish. Satisfies
// internal/tools.MessageSender structurally, letting the sessions_send tool
// deliver into another session without this package importing tools for a
// second, messaging-specific interface (it already imports tools for
// ToolRegistry/Result).
func (rt *Runtime) SendMessage(ctx context.Context, scope, sessionID, text string) error {
	ch := rt.Chat(ctx, scope, sessionID, text, DefaultOptions())
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Chat runs one turn, streaming Chunks on the returned channel. The channel
// is closed when the turn ends: after its {done} or {error} chunk, or with
// no terminal chunk when a stopped turn produced no content or the reply is
// silent (NO_REPLY). Grounded on
// internal/agent.Loop.Run/runLoop's buffered-pending-message, think/act/
// observe iteration structure.
func (rt *Runtime) Chat(ctx context.Context, scope, sessionID, userText string, opts Options) <-chan Chunk {
	out := make(chan Chunk, 8)
	go rt.runTurn(ctx, scope, sessionID, userText, opts, out)
	return out
}

func (rt *Runtime) runTurn(parentCtx context.Context, scope, sessionID, userText string, opts Options, out chan<- Chunk) {
	defer close(out)

	sess := rt.deps.Sessions.GetOrCreate(scope, sessionID)
	ctx, cancel := context.WithCancel(parentCtx)
	sess.SetCancel(cancel)
	defer cancel()

	if opts.CancelSignal != nil {
		go func() {
			select {
			case <-opts.CancelSignal:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if len(userText) > rt.deps.MaxMessageChars {
		original := len(userText)
		userText = userText[:rt.deps.MaxMessageChars] + fmt.Sprintf(
			"\n\n[System: message truncated from %d to %d characters]", original, rt.deps.MaxMessageChars)
	}

	// Slash commands run before any LLM turn.
	slashNote := ""
	if res, matched, err := rt.slash.dispatch(&SlashContext{Scope: scope, SessionID: sessionID}, userText); matched {
		if err != nil {
			out <- Chunk{Type: ChunkError, Err: err}
			return
		}
		if res.Mode == SlashMessage {
			msg := &model.AgentMessage{ID: uuid.NewString(), Role: model.RoleSystem, CreatedAt: time.Now().UTC()}
			msg.AppendText(res.Text)
			sess.Messages = append(sess.Messages, msg)
			rt.deps.Sessions.Save(sess)
			out <- Chunk{Type: ChunkText, Text: res.Text}
			out <- Chunk{Type: ChunkDone, MessageID: msg.ID}
			return
		}
		slashNote = res.Text
	}

	messages, _ := rt.assembleMessages(ctx, sess, userText, opts, slashNote)

	// Persist the user message after prompt assembly (which already sends it
	// as the current message) so the checkpoint indexes it.
	userMsg := &model.AgentMessage{ID: uuid.NewString(), Role: model.RoleUser, CreatedAt: time.Now().UTC()}
	userMsg.AppendText(userText)
	sess.Messages = append(sess.Messages, userMsg)
	rt.deps.Sessions.Save(sess)

	checkpointMessageIndex := len(sess.Messages) - 1
	cp := checkpoint.CreateCheckpoint(sessionID, checkpointMessageIndex, userText)
	rt.deps.Snapshots.Init(sessionID)

	modelName := opts.Model
	provider := rt.deps.Provider
	if name, rest, ok := splitProviderModel(modelName); ok && rt.deps.Providers != nil {
		if p, err := rt.deps.Providers.Get(name); err == nil {
			provider = p
			modelName = rest
		}
	}
	if modelName == "" {
		modelName = provider.DefaultModel()
	}

	assistantMsg := &model.AgentMessage{ID: uuid.NewString(), Role: model.RoleAssistant, Model: modelName, CreatedAt: time.Now().UTC()}

	var loopDetector toolLoopState
	var totalUsage model.Usage
	var textSegment string
	var stopped bool
	var turnErr error
	var toolNames []string

	iteration := 0
iterationLoop:
	for iteration < rt.deps.MaxIterations {
		iteration++

		var toolDefs []providers.ToolDefinition
		if rt.deps.Tools != nil {
			toolDefs = rt.deps.Tools.ProviderDefs(opts.AllowedTools)
		}

		req := providers.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
			Model:    modelName,
			Options: map[string]interface{}{
				providers.OptMaxTokens:   8192,
				providers.OptTemperature: 0.7,
			},
		}
		if opts.Thinking != "" && opts.Thinking != "off" {
			if tc, ok := provider.(providers.ThinkingCapable); ok && tc.SupportsThinking() {
				req.Options[providers.OptThinkingLevel] = opts.Thinking
			}
		}

		retryCtx := providers.WithRetryHook(ctx, func(attempt, maxAttempts int, retryErr error) {
			slog.Warn("chat: provider retrying", "provider", provider.Name(), "attempt", attempt, "maxAttempts", maxAttempts, "error", retryErr)
		})
		resp, err := provider.ChatStream(retryCtx, req, func(chunk providers.StreamChunk) {
			if chunk.Thinking != "" {
				out <- Chunk{Type: ChunkReasoning, Reasoning: chunk.Thinking}
			}
			if chunk.ToolCallName != "" {
				out <- Chunk{Type: ChunkToolCallPreparing, ToolCallID: chunk.ToolCallID, ToolCallName: chunk.ToolCallName}
			}
			if chunk.ToolCallArgsDelta != "" {
				out <- Chunk{Type: ChunkToolCallArgsDelta, ToolCallID: chunk.ToolCallID, ArgsDelta: chunk.ToolCallArgsDelta}
			}
			if chunk.Content != "" {
				textSegment += chunk.Content
				out <- Chunk{Type: ChunkText, Text: chunk.Content}
			}
		})

		if ctx.Err() != nil {
			stopped = true
			break iterationLoop
		}
		if err != nil {
			turnErr = err
			break iterationLoop
		}

		if resp.Usage != nil {
			totalUsage.PromptTokens += resp.Usage.PromptTokens
			totalUsage.CompletionTokens += resp.Usage.CompletionTokens
			totalUsage.TotalTokens += resp.Usage.TotalTokens
		}

		assistantMsg.AppendText(textSegment)
		textSegment = ""

		if len(resp.ToolCalls) == 0 {
			assistantMsg.AppendText(resp.Content)
			break iterationLoop
		}

		messages = append(messages, providers.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		if len(resp.ToolCalls) == 1 {
			msg, stop := rt.runOneTool(ctx, scope, sessionID, resp.ToolCalls[0], assistantMsg, &loopDetector, out)
			messages = append(messages, msg)
			toolNames = append(toolNames, resp.ToolCalls[0].Name)
			if stop {
				break iterationLoop
			}
		} else {
			msgs, stop := rt.runToolsParallel(ctx, scope, sessionID, resp.ToolCalls, assistantMsg, &loopDetector, out)
			messages = append(messages, msgs...)
			for _, tc := range resp.ToolCalls {
				toolNames = append(toolNames, tc.Name)
			}
			if stop {
				break iterationLoop
			}
		}

		if ctx.Err() != nil {
			stopped = true
			break iterationLoop
		}
	}

	if turnErr != nil {
		out <- Chunk{Type: ChunkError, Err: turnErr}
		if totalUsage.TotalTokens > 0 {
			out <- Chunk{Type: ChunkDone, Usage: &totalUsage}
		}
		return
	}

	rt.finalize(ctx, sess, assistantMsg, cp, stopped, totalUsage, toolNames, opts, out)
}

// runOneTool executes a single tool call sequentially (no goroutine
// overhead), mirroring the teacher's single-call branch in runLoop.
func (rt *Runtime) runOneTool(ctx context.Context, scope, sessionID string, tc providers.ToolCall, assistantMsg *model.AgentMessage, loopDetector *toolLoopState, out chan<- Chunk) (providers.Message, bool) {
	out <- Chunk{Type: ChunkToolCall, ToolCallID: tc.ID, ToolCallName: tc.Name, Status: model.ToolRunning}
	assistantMsg.UpsertToolPart(model.Part{Type: model.PartTool, ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, Status: model.ToolRunning})

	argsHash := loopDetector.record(tc.Name, tc.Arguments)
	result := rt.execute(ctx, scope, sessionID, tc, out)
	loopDetector.recordResult(argsHash, result.ForLLM)

	assistantMsg.UpsertToolPart(model.Part{
		Type: model.PartTool, ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments,
		Result: result.ForLLM, IsError: result.IsError, Status: terminalStatus(result.IsError),
	})
	out <- Chunk{Type: ChunkToolResult, ToolCallID: tc.ID, ToolCallName: tc.Name, Result: result.ForLLM, IsError: result.IsError}

	stop := false
	if level, msg := loopDetector.detect(tc.Name, argsHash); level == "critical" {
		assistantMsg.AppendText(msg)
		stop = true
	}
	return providers.Message{Role: "tool", Content: result.ForLLM, ToolCallID: tc.ID}, stop
}

// runToolsParallel executes every call concurrently, then reassembles
// results in original-index order for deterministic message ordering,
// mirroring the teacher's indexedResult/sort.Slice pattern.
func (rt *Runtime) runToolsParallel(ctx context.Context, scope, sessionID string, calls []providers.ToolCall, assistantMsg *model.AgentMessage, loopDetector *toolLoopState, out chan<- Chunk) ([]providers.Message, bool) {
	type indexed struct {
		idx    int
		tc     providers.ToolCall
		result toolExecResult
	}

	for _, tc := range calls {
		out <- Chunk{Type: ChunkToolCall, ToolCallID: tc.ID, ToolCallName: tc.Name, Status: model.ToolRunning}
		assistantMsg.UpsertToolPart(model.Part{Type: model.PartTool, ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, Status: model.ToolRunning})
	}

	resultCh := make(chan indexed, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, tc providers.ToolCall) {
			defer wg.Done()
			r := rt.execute(ctx, scope, sessionID, tc, out)
			resultCh <- indexed{idx: idx, tc: tc, result: r}
		}(i, tc)
	}
	go func() { wg.Wait(); close(resultCh) }()

	collected := make([]indexed, 0, len(calls))
	for r := range resultCh {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })

	var msgs []providers.Message
	stop := false
	for _, c := range collected {
		argsHash := loopDetector.record(c.tc.Name, c.tc.Arguments)
		loopDetector.recordResult(argsHash, c.result.ForLLM)

		assistantMsg.UpsertToolPart(model.Part{
			Type: model.PartTool, ID: c.tc.ID, Name: c.tc.Name, Arguments: c.tc.Arguments,
			Result: c.result.ForLLM, IsError: c.result.IsError, Status: terminalStatus(c.result.IsError),
		})
		out <- Chunk{Type: ChunkToolResult, ToolCallID: c.tc.ID, ToolCallName: c.tc.Name, Result: c.result.ForLLM, IsError: c.result.IsError}
		msgs = append(msgs, providers.Message{Role: "tool", Content: c.result.ForLLM, ToolCallID: c.tc.ID})

		if level, msg := loopDetector.detect(c.tc.Name, argsHash); level == "critical" {
			assistantMsg.AppendText(msg)
			stop = true
		}
	}
	return msgs, stop
}

func terminalStatus(isError bool) model.ToolPartStatus {
	if isError {
		return model.ToolError
	}
	return model.ToolCompleted
}

type toolExecResult struct {
	ForLLM  string
	IsError bool
}

// execute runs one tool call, gating on an interactRequest when the tool
// reports NeedsInteract, and emits tool:executed / file:operation side
// effects via the event bus the way the teacher's ExecuteWithContext call
// site does through its own handler chain.
func (rt *Runtime) execute(ctx context.Context, scope, sessionID string, tc providers.ToolCall, out chan<- Chunk) toolExecResult {
	if rt.deps.Tools == nil {
		return toolExecResult{ForLLM: "no tool registry configured", IsError: true}
	}
	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("chat: tool call", "tool", tc.Name, "args_len", len(argsJSON))

	if rt.deps.Snapshots != nil {
		ctx = tools.WithSnapshotCapture(ctx, func(path string, content *string) {
			rt.deps.Snapshots.Capture(sessionID, path, content)
		})
	}

	result := rt.deps.Tools.Execute(ctx, scope, sessionID, tc.Name, tc.Arguments)

	if result.NeedsInteract() {
		req := &InteractRequest{ID: uuid.NewString(), ToolCallID: tc.ID, Prompt: result.InteractPrompt, Options: result.InteractOptions}
		key := sessionKey(scope, sessionID)
		ch := rt.interact.open(key)
		out <- Chunk{Type: ChunkInteractRequest, ToolCallID: tc.ID, Interact: req}
		resp := wait(ch, ctx.Done(), rt.deps.InteractTimeout, req.ID)
		rt.interact.close(key)
		if !resp.Approved {
			return toolExecResult{ForLLM: "user denied the requested action", IsError: true}
		}
		result = rt.deps.Tools.Execute(ctx, scope, sessionID, tc.Name, tc.Arguments)
	}

	rt.deps.Bus.Emit(bus.EventToolExecuted, map[string]interface{}{
		"scope": scope, "sessionId": sessionID, "tool": tc.Name, "isError": result.IsError,
	})
	return toolExecResult{ForLLM: result.ForLLM, IsError: result.IsError}
}

// finalize implements the §4.3 {done} contract: sanitize, flush usage,
// persist the assistant message, complete the checkpoint, and emit the
// terminal chunk at most once (none for a stopped turn with no content or a
// silent reply).
func (rt *Runtime) finalize(ctx context.Context, sess *model.AgentSession, assistantMsg *model.AgentMessage, cp model.Checkpoint, stopped bool, usage model.Usage, toolNames []string, opts Options, out chan<- Chunk) {
	var finalText string
	for _, p := range assistantMsg.Parts {
		if p.Type == model.PartText {
			finalText += p.Content
		}
	}
	sanitized := SanitizeAssistantContent(finalText)
	silent := IsSilentReply(sanitized)

	if stopped && sanitized == "" && len(assistantMsg.ToolParts()) == 0 {
		return // no content produced; nothing to persist
	}

	if sanitized == "" && !silent {
		sanitized = "..."
	}
	assistantMsg.Parts = replaceTextParts(assistantMsg.Parts, sanitized)
	assistantMsg.Usage = &usage

	sess.Messages = append(sess.Messages, assistantMsg)
	rt.deps.Sessions.Save(sess)

	snapshots := rt.deps.Snapshots.Flush(sess.ID)
	changes := checkpoint.ExtractChangesFromParts(assistantMsg.ToolParts())
	completed := checkpoint.CompleteCheckpoint(cp, changes)
	sess.Checkpoints = append(sess.Checkpoints, &completed)
	if rt.deps.ScopeRoots != nil {
		if err := rt.checkpointStore(sess.Scope).Save(sess.ID, completed.ID, snapshots); err != nil {
			slog.Warn("chat: failed to persist checkpoint snapshots", "session", sess.ID, "error", err)
		}
	}

	rt.deps.Bus.Emit(bus.EventMessageCompleted, map[string]interface{}{
		"scope": sess.Scope, "sessionId": sess.ID, "messageId": assistantMsg.ID,
	})

	if silent {
		return
	}
	out <- Chunk{
		Type: ChunkDone, Usage: &usage, ToolCalls: toolNames,
		MessageID: assistantMsg.ID, Stopped: stopped, MemoryRefs: assistantMsg.MemoryRefs,
	}
}

func replaceTextParts(parts []model.Part, text string) []model.Part {
	out := make([]model.Part, 0, len(parts)+1)
	for _, p := range parts {
		if p.Type != model.PartText {
			out = append(out, p)
		}
	}
	if text != "" {
		out = append([]model.Part{{Type: model.PartText, Content: text}}, out...)
	}
	return out
}
