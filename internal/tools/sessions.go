package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prizm-dev/prizm/internal/model"
)

// sessionLister is the subset of internal/chat.SessionStore this file needs,
// extended with a scope-scan the turn driver's narrower ToolRegistry
// contract has no use for. Declared locally rather than imported from
// internal/chat, since that package imports this one for its ToolRegistry
// and Result types and an import back here would cycle.
type sessionLister interface {
	Get(scope, sessionID string) (*model.AgentSession, bool)
	ListByScope(scope string) []*model.AgentSession
}

// lastActivity returns the most recent timestamp recorded against a
// session: its last message if any, otherwise when it started.
func lastActivity(s *model.AgentSession) time.Time {
	if n := len(s.Messages); n > 0 {
		return s.Messages[n-1].CreatedAt
	}
	return s.StartedAt
}

// ============================================================
// sessions_list
// ============================================================

type SessionsListTool struct {
	sessions sessionLister
}

func NewSessionsListTool(s sessionLister) *SessionsListTool { return &SessionsListTool{sessions: s} }

func (t *SessionsListTool) Name() string { return "sessions_list" }
func (t *SessionsListTool) Description() string {
	return "List sessions in this scope with optional filters."
}

func (t *SessionsListTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "number",
				"description": "Max sessions to return (default 20)",
			},
			"active_minutes": map[string]interface{}{
				"type":        "number",
				"description": "Only show sessions active in the last N minutes",
			},
		},
	}
}

func (t *SessionsListTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.sessions == nil {
		return ErrorResult("session store not available")
	}

	limit := 20
	if v, ok := args["limit"].(float64); ok && int(v) > 0 {
		limit = int(v)
	}

	var activeMinutes int
	if v, ok := args["active_minutes"].(float64); ok && int(v) > 0 {
		activeMinutes = int(v)
	}

	scope := ToolScopeFromCtx(ctx)
	sessions := t.sessions.ListByScope(scope)

	if activeMinutes > 0 {
		cutoff := time.Now().Add(-time.Duration(activeMinutes) * time.Minute)
		var filtered []*model.AgentSession
		for _, s := range sessions {
			if lastActivity(s).After(cutoff) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	type sessionEntry struct {
		ID           string `json:"id"`
		Kind         string `json:"kind"`
		MessageCount int    `json:"message_count"`
		Updated      string `json:"updated"`
	}

	entries := make([]sessionEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, sessionEntry{
			ID:           s.ID,
			Kind:         string(s.Kind),
			MessageCount: len(s.Messages),
			Updated:      lastActivity(s).Format(time.RFC3339),
		})
	}

	out, _ := json.Marshal(map[string]interface{}{
		"count":    len(entries),
		"sessions": entries,
	})
	return SilentResult(string(out))
}

// ============================================================
// session_status
// ============================================================

type SessionStatusTool struct {
	sessions sessionLister
}

func NewSessionStatusTool(s sessionLister) *SessionStatusTool { return &SessionStatusTool{sessions: s} }

func (t *SessionStatusTool) Name() string { return "session_status" }
func (t *SessionStatusTool) Description() string {
	return "Show session status: kind, message count, checkpoints, compaction state, last update."
}

func (t *SessionStatusTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session id to inspect (default: current session)",
			},
		},
	}
}

func (t *SessionStatusTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.sessions == nil {
		return ErrorResult("session store not available")
	}

	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		sessionID = ToolSandboxKeyFromCtx(ctx) // current session id, set by the registry
	}
	if sessionID == "" {
		return ErrorResult("session_id is required (could not detect current session)")
	}

	scope := ToolScopeFromCtx(ctx)
	data, ok := t.sessions.Get(scope, sessionID)
	if !ok {
		return ErrorResult(fmt.Sprintf("no session found: %s", sessionID))
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Session: %s", data.ID))
	lines = append(lines, fmt.Sprintf("Kind: %s", data.Kind))
	if data.BgMeta != nil {
		lines = append(lines, fmt.Sprintf("Background status: %s", data.BgStatus))
		lines = append(lines, fmt.Sprintf("Depth: %d", data.BgMeta.Depth))
	}
	lines = append(lines, fmt.Sprintf("Messages: %d", len(data.Messages)))
	if data.CompressedThroughRound > 0 {
		lines = append(lines, fmt.Sprintf("Compressed through round: %d (%d summaries)",
			data.CompressedThroughRound, len(data.CompressionSummaries)))
	}
	if len(data.Checkpoints) > 0 {
		lines = append(lines, fmt.Sprintf("Checkpoints: %d", len(data.Checkpoints)))
	}
	if data.LLMSummary != "" {
		lines = append(lines, fmt.Sprintf("Has summary: yes (%d chars)", len(data.LLMSummary)))
	}
	lines = append(lines, fmt.Sprintf("Updated: %s", lastActivity(data).Format(time.RFC3339)))

	return SilentResult(strings.Join(lines, "\n"))
}
