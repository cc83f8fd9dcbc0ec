package gatewayhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prizm-dev/prizm/internal/chat"
)

const sseHeartbeatInterval = 3 * time.Second

// turnLockTTLMs is the resource-lock TTL held for the duration of one chat
// turn (resourceType "session_turn", keyed by sessionId), preventing two
// concurrent HTTP calls from driving the same session at once. Refreshed by
// a heartbeat on each SSE tick.
const turnLockTTLMs = 30000

// chatRequestBody is the body of POST /agent/sessions/:id/chat.
type chatRequestBody struct {
	Content             string   `json:"content"`
	Model               string   `json:"model,omitempty"`
	FileRefs            []string `json:"fileRefs,omitempty"`
	MCPEnabled          *bool    `json:"mcpEnabled,omitempty"`
	IncludeScopeContext *bool    `json:"includeScopeContext,omitempty"`
	FullContextTurns    int      `json:"fullContextTurns,omitempty"`
	CachedContextTurns  int      `json:"cachedContextTurns,omitempty"`
}

// sseFrame is one JSON object written as an SSE "data:" line.
type sseFrame struct {
	Type       string           `json:"type"`
	Text       string           `json:"text,omitempty"`
	Reasoning  string           `json:"reasoning,omitempty"`
	ToolCallID string           `json:"toolCallId,omitempty"`
	ToolName   string           `json:"toolName,omitempty"`
	ArgsDelta  string           `json:"argsDelta,omitempty"`
	Result     string           `json:"result,omitempty"`
	IsError    bool             `json:"isError,omitempty"`
	Interact   *chat.InteractRequest `json:"interact,omitempty"`
	Model      string           `json:"model,omitempty"`
	Usage      interface{}      `json:"usage,omitempty"`
	MessageID  string           `json:"messageId,omitempty"`
	Stopped    bool             `json:"stopped,omitempty"`
	MemoryRefs interface{}      `json:"memoryRefs,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// scopeFor resolves the scope a request operates against: the ?scope= query
// param, falling back to the deployment's configured MCP scope. No teacher
// analogue exists for this resolution (the teacher is single-tenant and has
// no scope concept at the transport layer); this is a new design decision.
func (s *Server) scopeFor(r *http.Request) string {
	if sc := r.URL.Query().Get("scope"); sc != "" {
		return sc
	}
	return s.cfg.Gateway.McpScope
}

// handleChat streams one chat turn as Server-Sent Events.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	scope := s.scopeFor(r)

	if s.rateLimiter.Enabled() && !s.rateLimiter.Allow(scope) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	if !s.checkLock(w, r, scope, "session_turn", sessionID, sessionID, "chat turn", turnLockTTLMs) {
		return
	}
	defer s.rt.Locks.Release(scope, "session_turn", sessionID, sessionID)

	opts := chat.DefaultOptions()
	opts.Model = body.Model
	opts.GrantedPaths = body.FileRefs
	opts.FullContextTurns = body.FullContextTurns
	opts.CachedContextTurns = body.CachedContextTurns
	if body.MCPEnabled != nil {
		opts.MCPEnabled = *body.MCPEnabled
	}
	if body.IncludeScopeContext != nil {
		opts.IncludeScopeContext = *body.IncludeScopeContext
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	chunks := s.rt.Chat.Chat(ctx, scope, sessionID, body.Content, opts)

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case ch, open := <-chunks:
			if !open {
				return
			}
			writeSSEFrame(w, flusher, toSSEFrame(ch))
			if ch.Type == chat.ChunkDone || ch.Type == chat.ChunkError {
				return
			}
		case <-ticker.C:
			s.rt.Locks.Heartbeat(scope, "session_turn", sessionID, sessionID)
			_, _ = w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func toSSEFrame(ch chat.Chunk) sseFrame {
	f := sseFrame{Type: string(ch.Type)}
	switch ch.Type {
	case chat.ChunkText:
		f.Text = ch.Text
	case chat.ChunkReasoning:
		f.Reasoning = ch.Reasoning
	case chat.ChunkToolCallPreparing, chat.ChunkToolCallArgsDelta, chat.ChunkToolCall:
		f.Type = "tool_call"
		f.ToolCallID = ch.ToolCallID
		f.ToolName = ch.ToolCallName
		f.ArgsDelta = ch.ArgsDelta
	case chat.ChunkToolResult, chat.ChunkToolProgress:
		f.Type = "tool_result_chunk"
		f.ToolCallID = ch.ToolCallID
		f.Result = ch.Result
		f.IsError = ch.IsError
	case chat.ChunkInteractRequest:
		f.Type = "interact_request"
		f.Interact = ch.Interact
	case chat.ChunkDone:
		f.Type = "done"
		if ch.Usage != nil {
			f.Usage = ch.Usage
		}
		f.MessageID = ch.MessageID
		f.Stopped = ch.Stopped
		if ch.MemoryRefs != nil {
			f.MemoryRefs = ch.MemoryRefs
		}
	case chat.ChunkError:
		f.Type = "error"
		if ch.Err != nil {
			f.Error = ch.Err.Error()
		}
	}
	return f
}

func writeSSEFrame(w http.ResponseWriter, flusher http.Flusher, f sseFrame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}
