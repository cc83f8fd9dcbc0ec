package tools

import (
	"context"

	"github.com/prizm-dev/prizm/internal/config"
)

// Tool execution context keys.
// These replace mutable setter fields on tool instances, making tools thread-safe
// for concurrent execution. Values are injected into context by the registry
// and read by individual tools during Execute().

type toolContextKey string

const (
	ctxSandboxKey toolContextKey = "tool_sandbox_key"
	ctxWorkspace  toolContextKey = "tool_workspace"
	ctxScope      toolContextKey = "tool_scope"
	ctxSpawner    toolContextKey = "tool_spawner"
)

// WithToolScope/ToolScopeFromCtx carry the calling AgentSession's scope —
// the registry sets this on every Execute call so tools that need to look
// across sessions (sessions_list, sessions_send) know which scope to search.
func WithToolScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, ctxScope, scope)
}

func ToolScopeFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxScope).(string)
	return v
}

// WithToolSandboxKey/ToolSandboxKeyFromCtx carry the calling session's id.
// The name predates this module (the teacher used the same slot to key a
// per-session sandbox container); this module has no sandbox, so the slot
// now just means "current session id".
func WithToolSandboxKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxSandboxKey, key)
}

func ToolSandboxKeyFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxSandboxKey).(string)
	return v
}

func WithToolWorkspace(ctx context.Context, ws string) context.Context {
	return context.WithValue(ctx, ctxWorkspace, ws)
}

func ToolWorkspaceFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxWorkspace).(string)
	return v
}

// --- Vision / ImageGen config (per-agent overrides) ---

const (
	ctxVisionConfig   toolContextKey = "tool_vision_config"
	ctxImageGenConfig toolContextKey = "tool_imagegen_config"
)

func WithVisionConfig(ctx context.Context, cfg *config.VisionConfig) context.Context {
	return context.WithValue(ctx, ctxVisionConfig, cfg)
}

func VisionConfigFromCtx(ctx context.Context) *config.VisionConfig {
	v, _ := ctx.Value(ctxVisionConfig).(*config.VisionConfig)
	return v
}

func WithImageGenConfig(ctx context.Context, cfg *config.ImageGenConfig) context.Context {
	return context.WithValue(ctx, ctxImageGenConfig, cfg)
}

func ImageGenConfigFromCtx(ctx context.Context) *config.ImageGenConfig {
	v, _ := ctx.Value(ctxImageGenConfig).(*config.ImageGenConfig)
	return v
}

// --- Background session result contract ---

const ctxBgResultSetter toolContextKey = "tool_bg_result_setter"

// BgResultSetter records a background session's terminal result. Injected
// into a turn's context by the background session manager so the
// prizm_set_result tool can reach it without this package importing
// internal/background (which itself imports internal/chat, which imports
// this package for ToolRegistry/Result).
type BgResultSetter func(result string, artifacts map[string]string)

func WithBgResultSetter(ctx context.Context, set BgResultSetter) context.Context {
	return context.WithValue(ctx, ctxBgResultSetter, set)
}

func BgResultSetterFromCtx(ctx context.Context) BgResultSetter {
	v, _ := ctx.Value(ctxBgResultSetter).(BgResultSetter)
	return v
}

// --- Background session spawning ---

// Spawner is the minimal background-session contract the sessions_spawn and
// subagents tools need. Defined here rather than calling internal/background
// directly, since internal/background imports this package for the
// prizm_set_result contract above and a direct import back would cycle.
// *background.Manager implements it. No code in this module attaches a
// Spawner with WithSpawner, so SpawnerFromCtx returns nil and both tools
// report that spawning is not available.
type Spawner interface {
	// SpawnAsync starts a background run and returns its session id
	// immediately, without waiting for it to settle.
	SpawnAsync(ctx context.Context, scope, task, label string, depth, timeoutMs int) (sessionID string, err error)

	// SpawnSync starts a background run and blocks until it produces a
	// final result or ctx is cancelled.
	SpawnSync(ctx context.Context, scope, task, label string, depth, timeoutMs int) (result string, artifacts map[string]string, err error)
}

func WithSpawner(ctx context.Context, s Spawner) context.Context {
	return context.WithValue(ctx, ctxSpawner, s)
}

func SpawnerFromCtx(ctx context.Context) Spawner {
	v, _ := ctx.Value(ctxSpawner).(Spawner)
	return v
}

// MessageSender starts a fire-and-forget turn against an already-existing
// session, for the sessions_send tool. *chat.Runtime satisfies this
// structurally (see its SendMessage method) without internal/chat needing
// to import this package a second time for the purpose.
type MessageSender interface {
	SendMessage(ctx context.Context, scope, sessionID, text string) error
}

const ctxMessageSender toolContextKey = "tool_message_sender"

func WithMessageSender(ctx context.Context, s MessageSender) context.Context {
	return context.WithValue(ctx, ctxMessageSender, s)
}

func MessageSenderFromCtx(ctx context.Context) MessageSender {
	v, _ := ctx.Value(ctxMessageSender).(MessageSender)
	return v
}

// --- Checkpoint snapshot capture ---

// SnapshotCapture records a touched path's pre-mutation content the first
// time a turn's mutation tools touch it, so a later rollback can restore it.
// content is nil when the path did not exist before this call. Injected
// into ctx by the chat runtime on every tool Execute call; the move/delete
// file and document tools call it before they mutate anything (a fresh
// prizm_file_write never needs it, since ExtractChange always records it as
// a creation, which rollback reverts by deleting the path rather than
// restoring prior content).
type SnapshotCapture func(path string, content *string)

const ctxSnapshotCapture toolContextKey = "tool_snapshot_capture"

func WithSnapshotCapture(ctx context.Context, capture SnapshotCapture) context.Context {
	return context.WithValue(ctx, ctxSnapshotCapture, capture)
}

func SnapshotCaptureFromCtx(ctx context.Context) SnapshotCapture {
	v, _ := ctx.Value(ctxSnapshotCapture).(SnapshotCapture)
	return v
}

// --- Builtin tool settings (global DB overrides) ---

const ctxBuiltinToolSettings toolContextKey = "tool_builtin_settings"

// BuiltinToolSettings maps tool name â†’ settings JSON bytes.
type BuiltinToolSettings map[string][]byte

func WithBuiltinToolSettings(ctx context.Context, settings BuiltinToolSettings) context.Context {
	return context.WithValue(ctx, ctxBuiltinToolSettings, settings)
}

func BuiltinToolSettingsFromCtx(ctx context.Context) BuiltinToolSettings {
	v, _ := ctx.Value(ctxBuiltinToolSettings).(BuiltinToolSettings)
	return v
}
