package gatewayhttp

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prizm-dev/prizm/internal/terminal"
)

// terminalConn serializes writes to one gorilla/websocket.Conn, which
// permits at most one concurrent writer. Needed here because the read loop
// and the per-attached-terminal event pump both write to the same
// connection.
type terminalConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (tc *terminalConn) writeJSON(v interface{}) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.conn.WriteJSON(v)
}

// terminalClientMsg is a client→server frame on /ws/terminal.
type terminalClientMsg struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminalId"`
	Data       string `json:"data,omitempty"`
	Cols       int    `json:"cols,omitempty"`
	Rows       int    `json:"rows,omitempty"`
}

// terminalServerMsg is a server→client frame on /ws/terminal.
type terminalServerMsg struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminalId"`
	Data       string `json:"data,omitempty"`
	ExitCode   *int   `json:"exitCode,omitempty"`
	Signal     string `json:"signal,omitempty"`
	Message    string `json:"message,omitempty"`
}

const (
	closeMissingKey = 4001
	closeInvalidKey = 4003
)

// handleTerminalWebSocket serves the terminal attach/input/resize protocol.
// Grounded on spec.md's external-interfaces terminal protocol section; no
// teacher analogue exists (the teacher has no terminal feature), so the
// read/dispatch loop follows the same gorilla/websocket single-reader,
// single-writer shape used by the broadcast Client in this package.
func (s *Server) handleTerminalWebSocket(w http.ResponseWriter, r *http.Request) {
	apiKey := r.URL.Query().Get("apiKey")
	if !s.cfg.Gateway.AuthDisabled {
		if apiKey == "" {
			s.closeUpgrade(w, r, closeMissingKey, "missing api key")
			return
		}
		if s.cfg.Gateway.Token != "" && apiKey != s.cfg.Gateway.Token {
			s.closeUpgrade(w, r, closeInvalidKey, "invalid api key")
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gatewayhttp: terminal websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	tc := &terminalConn{conn: conn}

	var detach func()
	defer func() {
		if detach != nil {
			detach()
		}
	}()

	for {
		var msg terminalClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "terminal:attach":
			if detach != nil {
				detach()
				detach = nil
			}
			if _, ok := s.rt.Terminal.Get(msg.TerminalID); !ok {
				_ = tc.writeJSON(terminalServerMsg{Type: "terminal:error", TerminalID: msg.TerminalID, Message: "terminal not found"})
				continue
			}
			events, stop, err := s.rt.Terminal.Attach(msg.TerminalID)
			if err != nil {
				_ = tc.writeJSON(terminalServerMsg{Type: "terminal:error", TerminalID: msg.TerminalID, Message: err.Error()})
				continue
			}
			detach = stop
			_ = tc.writeJSON(terminalServerMsg{Type: "terminal:attached", TerminalID: msg.TerminalID})
			go pumpTerminalEvents(tc, msg.TerminalID, events)

		case "terminal:input":
			if err := s.rt.Terminal.Write(msg.TerminalID, []byte(msg.Data)); err != nil {
				_ = tc.writeJSON(terminalServerMsg{Type: "terminal:error", TerminalID: msg.TerminalID, Message: err.Error()})
			}

		case "terminal:resize":
			if err := s.rt.Terminal.Resize(msg.TerminalID, msg.Cols, msg.Rows); err != nil {
				_ = tc.writeJSON(terminalServerMsg{Type: "terminal:error", TerminalID: msg.TerminalID, Message: err.Error()})
			}

		case "terminal:detach":
			if detach != nil {
				detach()
				detach = nil
			}

		case "terminal:ping":
			_ = tc.writeJSON(terminalServerMsg{Type: "terminal:pong", TerminalID: msg.TerminalID})
		}
	}
}

func pumpTerminalEvents(tc *terminalConn, terminalID string, events <-chan terminal.Event) {
	for ev := range events {
		msg := terminalServerMsg{TerminalID: terminalID}
		switch ev.Type {
		case terminal.EventOutput:
			msg.Type = "terminal:output"
			msg.Data = ev.Data
		case terminal.EventAttached:
			msg.Type = "terminal:attached"
		case terminal.EventExit:
			msg.Type = "terminal:exit"
			msg.ExitCode = ev.ExitCode
		default:
			continue
		}
		if err := tc.writeJSON(msg); err != nil {
			return
		}
	}
}

// closeUpgrade upgrades the connection solely to send a close frame with
// the given code, for protocol violations that must be reported as a
// WebSocket close rather than a plain HTTP error (the client already
// expects a WS handshake).
func (s *Server) closeUpgrade(w http.ResponseWriter, r *http.Request, code int, reason string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	closeMsg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(clientWriteWait))
}
