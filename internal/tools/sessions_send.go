package tools

import (
	"context"
	"fmt"
)

// ============================================================
// sessions_send
// ============================================================

// SessionsSendTool delivers a message into another session in the same
// scope, waking that session's turn driver asynchronously. Grounded on the
// teacher's sessions_send, generalized from its channel/chatID addressing
// to scope/session-id addressing and from msgBus.PublishInbound to the
// injected MessageSender (see context_keys.go).
type SessionsSendTool struct {
	sessions sessionLister
}

func NewSessionsSendTool(s sessionLister) *SessionsSendTool { return &SessionsSendTool{sessions: s} }

func (t *SessionsSendTool) Name() string { return "sessions_send" }
func (t *SessionsSendTool) Description() string {
	return "Send a message into another session in this scope by session id."
}

func (t *SessionsSendTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Target session id",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Message to send",
			},
		},
		"required": []string{"session_id", "message"},
	}
}

func (t *SessionsSendTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.sessions == nil {
		return ErrorResult("session store not available")
	}

	sessionID, _ := args["session_id"].(string)
	message, _ := args["message"].(string)
	if sessionID == "" {
		return ErrorResult("session_id is required")
	}
	if message == "" {
		return ErrorResult("message is required")
	}

	scope := ToolScopeFromCtx(ctx)
	if _, ok := t.sessions.Get(scope, sessionID); !ok {
		return ErrorResult(fmt.Sprintf("no session found: %s", sessionID))
	}

	sender := MessageSenderFromCtx(ctx)
	if sender == nil {
		return ErrorResult("message delivery is not available in this context")
	}
	if err := sender.SendMessage(context.Background(), scope, sessionID, message); err != nil {
		return ErrorResult(fmt.Sprintf("could not deliver message: %v", err))
	}

	return SilentResult(fmt.Sprintf(`{"status":"accepted","session_id":"%s"}`, sessionID))
}
