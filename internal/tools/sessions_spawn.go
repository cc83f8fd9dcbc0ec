package tools

import (
	"context"
	"fmt"
)

// ============================================================
// sessions_spawn
// ============================================================

// SessionsSpawnTool starts a fire-and-forget background session and returns
// its id immediately. Grounded on the teacher's DelegateManager.DelegateAsync
// entry point, generalized from agent-to-agent delegation to scope/session
// spawning through the injected Spawner (see context_keys.go) rather than a
// direct internal/background import, which would cycle back into this
// package's ToolRegistry/Result types.
type SessionsSpawnTool struct{}

func NewSessionsSpawnTool() *SessionsSpawnTool { return &SessionsSpawnTool{} }

func (t *SessionsSpawnTool) Name() string { return "sessions_spawn" }

func (t *SessionsSpawnTool) Description() string {
	return "Start a new background session for a task and return immediately. The session runs independently and announces its result back into this session when it finishes."
}

func (t *SessionsSpawnTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "The task for the background session to perform.",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Optional short label for identifying this run later.",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "number",
				"description": "Optional deadline in seconds before the run is cancelled.",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SessionsSpawnTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("task is required")
	}
	label, _ := args["label"].(string)

	spawner := SpawnerFromCtx(ctx)
	if spawner == nil {
		return ErrorResult("background spawning is not available in this context")
	}

	timeoutMs := 0
	if v, ok := args["timeout_seconds"].(float64); ok && v > 0 {
		timeoutMs = int(v * 1000)
	}

	scope := ToolScopeFromCtx(ctx)
	sessionID, err := spawner.SpawnAsync(ctx, scope, task, label, 0, timeoutMs)
	if err != nil {
		return ErrorResult(fmt.Sprintf("could not start background session: %v", err))
	}
	return SilentResult(fmt.Sprintf(`{"status":"started","session_id":"%s"}`, sessionID))
}

// ============================================================
// subagents
// ============================================================

// SubagentsTool spawns a background session and blocks for its result,
// the synchronous counterpart to sessions_spawn. Grounded on the teacher's
// DelegateManager.DelegateSync, which blocked the calling agent's tool loop
// on a <-chan result the same way SpawnSync does here.
type SubagentsTool struct{}

func NewSubagentsTool() *SubagentsTool { return &SubagentsTool{} }

func (t *SubagentsTool) Name() string { return "subagents" }

func (t *SubagentsTool) Description() string {
	return "Delegate a task to a subagent and wait for its result. Use this for work that should happen inline before you continue, rather than in the background."
}

func (t *SubagentsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "The task to hand to the subagent.",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Optional short label for this delegation.",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "number",
				"description": "Optional deadline in seconds before the subagent is cancelled.",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SubagentsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("task is required")
	}
	label, _ := args["label"].(string)

	spawner := SpawnerFromCtx(ctx)
	if spawner == nil {
		return ErrorResult("subagent delegation is not available in this context")
	}

	timeoutMs := 0
	if v, ok := args["timeout_seconds"].(float64); ok && v > 0 {
		timeoutMs = int(v * 1000)
	}

	scope := ToolScopeFromCtx(ctx)
	result, artifacts, err := spawner.SpawnSync(ctx, scope, task, label, 0, timeoutMs)
	if err != nil {
		return ErrorResult(fmt.Sprintf("subagent failed: %v", err))
	}
	if len(artifacts) == 0 {
		return NewResult(result)
	}
	out := result + "\n\nArtifacts:"
	for k, v := range artifacts {
		out += fmt.Sprintf("\n- %s: %s", k, v)
	}
	return NewResult(out)
}
