// Package background implements the Background Session Manager: hidden,
// minimal-context agent turns that run asynchronously and report a single
// terminal result. Grounded on the teacher's internal/tools/delegate.go
// DelegateManager (active sync.Map, DelegationTask state machine, sync vs.
// async entry points, origin-based announce routing), generalized from
// inter-agent delegation to the spec's scope/session-keyed sub-session
// contract.
package background

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/chat"
	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/tools"
)

const (
	defaultMaxGlobal = 5
	defaultMaxDepth  = 2
)

// Payload is the input to one background run.
type Payload struct {
	Task                 string
	SystemInstructions   string
	Context              map[string]interface{}
	ExpectedOutputFormat string
	Label                string
}

// TriggerOpts configures one trigger/triggerSync call.
type TriggerOpts struct {
	TriggerType     string // tool_spawn, api, llm, cron, schedule_remind, ...
	ParentSessionID string
	Depth           int
	TimeoutMs       int
	AnnounceTarget  *model.AnnounceTarget
	MemoryPolicy    MemoryPolicyOverride
}

// MemoryPolicyOverride holds user-supplied overrides of the background
// memory policy. A nil field means "not specified": the §3 BG default for
// that field is kept. This is the object-level merge the spec requires —
// merging two model.MemoryPolicy values directly would be unable to tell
// "explicitly false" from "not set", since both are the zero value.
type MemoryPolicyOverride struct {
	SkipPerRoundExtract       *bool
	SkipNarrativeBatchExtract *bool
	SkipDocumentExtract       *bool
	SkipConversationSummary   *bool
}

// BgRunResult is the outcome of one background run.
type BgRunResult struct {
	SessionID  string
	Status     model.BgStatus
	Result     string
	Artifacts  map[string]string
	DurationMs int64
	Err        error
}

type run struct {
	sessionID string
	cancel    context.CancelFunc
	done      chan BgRunResult
}

// Manager schedules and tracks background sub-sessions. One Manager is
// shared across scopes, mirroring DelegateManager.
type Manager struct {
	chat     *chat.Runtime
	sessions chat.SessionStore
	bus      *bus.Bus

	maxGlobal int
	maxDepth  int

	active sync.Map // sessionID -> *run
}

// New constructs a Manager. maxGlobal/maxDepth default to 5/2 when <= 0.
func New(chatRuntime *chat.Runtime, sessions chat.SessionStore, eventBus *bus.Bus, maxGlobal, maxDepth int) *Manager {
	if maxGlobal <= 0 {
		maxGlobal = defaultMaxGlobal
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Manager{
		chat:      chatRuntime,
		sessions:  sessions,
		bus:       eventBus,
		maxGlobal: maxGlobal,
		maxDepth:  maxDepth,
	}
}

// ActiveCount returns the number of runs currently in-flight.
func (m *Manager) ActiveCount() int {
	count := 0
	m.active.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// IsRunning reports whether sessionID names an in-flight run.
func (m *Manager) IsRunning(sessionID string) bool {
	_, ok := m.active.Load(sessionID)
	return ok
}

// Trigger starts a background run and returns immediately; the returned
// channel receives exactly one BgRunResult when the run settles.
func (m *Manager) Trigger(scope string, payload Payload, opts TriggerOpts) (string, <-chan BgRunResult, error) {
	if m.ActiveCount() >= m.maxGlobal {
		return "", nil, errs.New(errs.ConcurrencyLimit, fmt.Sprintf("activeCount >= maxGlobal (%d)", m.maxGlobal))
	}
	if opts.Depth >= m.maxDepth {
		return "", nil, errs.New(errs.ConcurrencyLimit, fmt.Sprintf("depth >= maxDepth (%d)", m.maxDepth))
	}

	sessionID := uuid.NewString()
	policy := mergeMemoryPolicy(model.DefaultBackgroundMemoryPolicy(), opts.MemoryPolicy)

	sess := m.sessions.GetOrCreate(scope, sessionID)
	sess.Kind = model.SessionBackground
	sess.BgStatus = model.BgPending
	sess.BgMeta = &model.BgMeta{
		TriggerType:     opts.TriggerType,
		ParentSessionID: opts.ParentSessionID,
		Depth:           opts.Depth,
		Label:           payload.Label,
		TimeoutMs:       opts.TimeoutMs,
		AnnounceTarget:  opts.AnnounceTarget,
		MemoryPolicy:    policy,
	}
	m.sessions.Save(sess)

	runCtx, cancel := context.WithCancel(context.Background())
	if opts.TimeoutMs > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, time.Duration(opts.TimeoutMs)*time.Millisecond)
	}

	done := make(chan BgRunResult, 1)
	r := &run{sessionID: sessionID, cancel: cancel, done: done}
	m.active.Store(sessionID, r)

	m.bus.Emit(bus.EventBgStarted, map[string]interface{}{"scope": scope, "sessionId": sessionID})
	slog.Info("background: run started", "scope", scope, "sessionId", sessionID, "triggerType", opts.TriggerType)

	go m.execute(runCtx, scope, sess, payload, r)

	return sessionID, done, nil
}

// TriggerSync starts a background run and blocks until it settles or ctx is
// cancelled first.
func (m *Manager) TriggerSync(ctx context.Context, scope string, payload Payload, opts TriggerOpts) (BgRunResult, error) {
	_, done, err := m.Trigger(scope, payload, opts)
	if err != nil {
		return BgRunResult{}, err
	}
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return BgRunResult{}, ctx.Err()
	}
}

// Cancel aborts an in-flight run and marks it cancelled. A no-op on an
// unknown or already-settled sessionID.
func (m *Manager) Cancel(scope, sessionID string) {
	v, ok := m.active.Load(sessionID)
	if !ok {
		return
	}
	r := v.(*run)
	r.cancel()
	if sess, ok := m.sessions.Get(scope, sessionID); ok {
		sess.BgStatus = model.BgCancelled
		m.sessions.Save(sess)
	}
	m.bus.Emit(bus.EventBgCancelled, map[string]interface{}{"scope": scope, "sessionId": sessionID})
}

// Shutdown cancels every active run and waits up to timeout for them to
// settle.
func (m *Manager) Shutdown(timeout time.Duration) {
	var waiters []<-chan BgRunResult
	m.active.Range(func(_, v interface{}) bool {
		r := v.(*run)
		r.cancel()
		waiters = append(waiters, r.done)
		return true
	})
	deadline := time.After(timeout)
	for _, w := range waiters {
		select {
		case <-w:
		case <-deadline:
			return
		}
	}
}

const bgContractReminder = "This is a background task. You must call the prizm_set_result tool exactly once with your final answer before finishing; plain text replies are discarded."

func (m *Manager) execute(ctx context.Context, scope string, sess *model.AgentSession, payload Payload, r *run) {
	start := time.Now()
	sess.BgStatus = model.BgRunning
	m.sessions.Save(sess)

	var resultText string
	var artifacts map[string]string
	var resultSet bool
	var mu sync.Mutex
	setter := func(result string, a map[string]string) {
		mu.Lock()
		defer mu.Unlock()
		resultText = result
		artifacts = a
		resultSet = true
	}
	ctx = tools.WithBgResultSetter(ctx, setter)

	preamble := m.buildPreamble(payload)
	opts := chat.DefaultOptions()
	opts.SystemPreamble = preamble
	opts.SkipMemoryInjection = sess.BgMeta.MemoryPolicy.SkipPerRoundExtract

	m.runTurn(ctx, scope, sess.ID, payload.Task, opts)

	mu.Lock()
	set := resultSet
	mu.Unlock()

	// Result-guard: one nudge if the agent never called prizm_set_result.
	if !set && ctx.Err() == nil {
		m.runTurn(ctx, scope, sess.ID, "You did not call prizm_set_result. Call it now with your final answer.", opts)
		mu.Lock()
		set = resultSet
		mu.Unlock()
	}

	duration := time.Since(start)
	now := time.Now()

	var res BgRunResult
	res.SessionID = sess.ID
	res.DurationMs = duration.Milliseconds()

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		sess.BgStatus = model.BgTimeout
		res.Status = model.BgTimeout
		m.bus.Emit(bus.EventBgTimeout, map[string]interface{}{"scope": scope, "sessionId": sess.ID})
	case ctx.Err() == context.Canceled:
		sess.BgStatus = model.BgCancelled
		res.Status = model.BgCancelled
	case !set:
		sess.BgStatus = model.BgFailed
		res.Status = model.BgFailed
		res.Err = fmt.Errorf("background: run ended without calling prizm_set_result")
		m.bus.Emit(bus.EventBgFailed, map[string]interface{}{"scope": scope, "sessionId": sess.ID, "error": res.Err.Error()})
	default:
		sess.BgStatus = model.BgCompleted
		sess.BgResult = resultText
		res.Status = model.BgCompleted
		res.Result = resultText
		res.Artifacts = artifacts
		m.bus.Emit(bus.EventBgCompleted, map[string]interface{}{
			"scope": scope, "sessionId": sess.ID, "result": resultText, "durationMs": res.DurationMs,
		})
	}
	sess.FinishedAt = &now
	m.sessions.Save(sess)

	if sess.BgMeta.AnnounceTarget != nil && (res.Status == model.BgCompleted || res.Status == model.BgFailed) {
		m.announce(sess, res)
	}

	m.active.Delete(sess.ID)
	r.done <- res
}

// runTurn drains a chat turn to completion, discarding stream chunks: the
// background contract only cares about the terminal prizm_set_result call,
// not the intermediate text.
func (m *Manager) runTurn(ctx context.Context, scope, sessionID, userText string, opts chat.Options) {
	for range m.chat.Chat(ctx, scope, sessionID, userText, opts) {
	}
}

func (m *Manager) buildPreamble(payload Payload) string {
	parts := []string{bgContractReminder}
	if payload.SystemInstructions != "" {
		parts = append(parts, payload.SystemInstructions)
	}
	if payload.Context != nil {
		if raw, err := json.Marshal(payload.Context); err == nil {
			parts = append(parts, "Context:\n"+string(raw))
		}
	}
	if payload.ExpectedOutputFormat != "" {
		parts = append(parts, "Expected output format: "+payload.ExpectedOutputFormat)
	}
	if payload.Label != "" {
		parts = append(parts, "Task label: "+payload.Label)
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n\n" + p
	}
	return out
}

// announce injects a synthetic system message carrying the result into the
// parent session, matching the teacher's msgBus.PublishInbound announce
// step in DelegateManager.DelegateAsync, generalized from a cross-channel
// publish to a direct session append.
func (m *Manager) announce(sess *model.AgentSession, res BgRunResult) {
	target := sess.BgMeta.AnnounceTarget
	parent, ok := m.sessions.Get(target.Scope, target.SessionID)
	if !ok {
		slog.Warn("background: announce target session not found", "scope", target.Scope, "sessionId", target.SessionID)
		return
	}
	text := formatAnnounce(sess, res)
	parent.Messages = append(parent.Messages, &model.AgentMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleSystem,
		Parts:     []model.Part{{Type: model.PartText, Content: text}},
		CreatedAt: time.Now(),
	})
	m.sessions.Save(parent)
}

func formatAnnounce(sess *model.AgentSession, res BgRunResult) string {
	label := sess.BgMeta.Label
	if label == "" {
		label = sess.ID
	}
	if res.Status == model.BgFailed {
		return fmt.Sprintf("[Background task %q failed: %v]", label, res.Err)
	}
	return fmt.Sprintf("[Background task %q completed]\n%s", label, res.Result)
}

// mergeMemoryPolicy applies override on top of base field by field, keeping
// base wherever the override field is nil.
func mergeMemoryPolicy(base model.MemoryPolicy, override MemoryPolicyOverride) model.MemoryPolicy {
	if override.SkipPerRoundExtract != nil {
		base.SkipPerRoundExtract = *override.SkipPerRoundExtract
	}
	if override.SkipNarrativeBatchExtract != nil {
		base.SkipNarrativeBatchExtract = *override.SkipNarrativeBatchExtract
	}
	if override.SkipDocumentExtract != nil {
		base.SkipDocumentExtract = *override.SkipDocumentExtract
	}
	if override.SkipConversationSummary != nil {
		base.SkipConversationSummary = *override.SkipConversationSummary
	}
	return base
}

// SpawnAsync adapts Trigger to the tools.Spawner contract the sessions_spawn
// and subagents tools call through context, so this package's one-directional
// dependency on internal/tools (for the prizm_set_result context key) never
// becomes a cycle.
func (m *Manager) SpawnAsync(ctx context.Context, scope, task, label string, depth, timeoutMs int) (string, error) {
	parentScope, parentID := scopeAndSessionFromCtx(ctx)
	sessionID, _, err := m.Trigger(scope, Payload{Task: task, Label: label}, TriggerOpts{
		TriggerType:     "tool_spawn",
		ParentSessionID: parentID,
		Depth:           m.childDepth(parentScope, parentID, depth),
		TimeoutMs:       timeoutMs,
		AnnounceTarget:  &model.AnnounceTarget{Scope: parentScope, SessionID: parentID},
	})
	return sessionID, err
}

// SpawnSync adapts TriggerSync to the tools.Spawner contract, for callers
// that need to block on the subordinate session's result (the subagents
// tool) rather than being announced into later.
func (m *Manager) SpawnSync(ctx context.Context, scope, task, label string, depth, timeoutMs int) (string, map[string]string, error) {
	parentScope, parentID := scopeAndSessionFromCtx(ctx)
	res, err := m.TriggerSync(ctx, scope, Payload{Task: task, Label: label}, TriggerOpts{
		TriggerType:     "tool_spawn",
		ParentSessionID: parentID,
		Depth:           m.childDepth(parentScope, parentID, depth),
		TimeoutMs:       timeoutMs,
	})
	if err != nil {
		return "", nil, err
	}
	if res.Err != nil {
		return "", nil, res.Err
	}
	return res.Result, res.Artifacts, nil
}

// childDepth returns one past the parent's BgMeta.Depth when the parent
// resolves to a background session, ignoring the caller-suggested depth in
// that case. For an interactive or unresolved parent it returns the
// caller-suggested depth, or 0 when that is not positive.
func (m *Manager) childDepth(parentScope, parentID string, fallback int) int {
	parent, ok := m.sessions.Get(parentScope, parentID)
	if !ok || parent.BgMeta == nil {
		if fallback > 0 {
			return fallback
		}
		return 0
	}
	return parent.BgMeta.Depth + 1
}

// scopeAndSessionFromCtx reads the calling session's scope/id off the
// context the same way the tool registry injected them, so a spawned run
// can record where it came from without the caller threading them in twice.
func scopeAndSessionFromCtx(ctx context.Context) (scope, sessionID string) {
	return tools.ToolScopeFromCtx(ctx), tools.ToolSandboxKeyFromCtx(ctx)
}
