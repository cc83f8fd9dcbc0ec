package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ============================================================
// sessions_history
// ============================================================

const (
	historyMaxCharsPerMessage = 4000
	historyMaxTotalBytes      = 80 * 1024
)

type SessionsHistoryTool struct {
	sessions sessionLister
}

func NewSessionsHistoryTool(s sessionLister) *SessionsHistoryTool {
	return &SessionsHistoryTool{sessions: s}
}

func (t *SessionsHistoryTool) Name() string { return "sessions_history" }
func (t *SessionsHistoryTool) Description() string {
	return "Fetch message history for a session."
}

func (t *SessionsHistoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session id to fetch history from",
			},
			"limit": map[string]interface{}{
				"type":        "number",
				"description": "Max messages to return (default 20)",
			},
			"include_tools": map[string]interface{}{
				"type":        "boolean",
				"description": "Include tool call/result messages (default false)",
			},
		},
		"required": []string{"session_id"},
	}
}

func (t *SessionsHistoryTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.sessions == nil {
		return ErrorResult("session store not available")
	}

	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return ErrorResult("session_id is required")
	}

	limit := 20
	if v, ok := args["limit"].(float64); ok && int(v) > 0 {
		limit = int(v)
	}
	includeTools, _ := args["include_tools"].(bool)

	scope := ToolScopeFromCtx(ctx)
	sess, ok := t.sessions.Get(scope, sessionID)
	if !ok {
		return SilentResult(fmt.Sprintf(`{"session_id":"%s","messages":[],"count":0}`, sessionID))
	}

	type msgEntry struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	var entries []msgEntry
	for _, m := range sess.Messages {
		if !includeTools && m.Role == "tool" {
			continue
		}
		var text string
		for _, p := range m.Parts {
			if p.Type == "tool" {
				if includeTools {
					text += fmt.Sprintf("[tool %s] %s\n", p.Name, p.Result)
				}
				continue
			}
			text += p.Content
		}
		if !includeTools && text == "" {
			continue // tool-call-only assistant message with no text
		}

		if utf8.RuneCountInString(text) > historyMaxCharsPerMessage {
			runes := []rune(text)
			text = string(runes[:historyMaxCharsPerMessage]) + "... [truncated]"
		}
		entries = append(entries, msgEntry{Role: string(m.Role), Content: text})
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	out, _ := json.Marshal(map[string]interface{}{
		"session_id": sessionID,
		"messages":   entries,
		"count":      len(entries),
	})

	if len(out) > historyMaxTotalBytes {
		return SilentResult(fmt.Sprintf(
			`{"session_id":"%s","error":"history too large (%d bytes), use a smaller limit","count":%d}`,
			sessionID, len(out), len(entries),
		))
	}

	return SilentResult(string(out))
}
