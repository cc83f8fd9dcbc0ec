package gatewayhttp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/prizm-dev/prizm/internal/bus"
)

const (
	clientWriteWait  = 10 * time.Second
	clientPongWait   = 60 * time.Second
	clientPingPeriod = (clientPongWait * 9) / 10
)

// EventFrame is one message pushed down the /ws broadcast sink. Grounded on
// the teacher's pkg/protocol.EventFrame shape, which is not present in the
// retrieved corpus — rebuilt to carry the scope a client is allowed to see
// alongside the bare event name/payload the teacher forwards.
type EventFrame struct {
	Type      string      `json:"type"`
	Scope     string      `json:"scope,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEventFrame builds an EventFrame for name/payload, stamped with the
// current time.
func NewEventFrame(name, scope string, payload interface{}) EventFrame {
	return EventFrame{Type: name, Scope: scope, Payload: payload, Timestamp: time.Now()}
}

// Client wraps one upgraded WebSocket connection. Grounded on the usage
// shape server.go drives (NewClient, Run, SendEvent, Close) — the teacher's
// own client.go was never retrieved, so the internals are built fresh on
// gorilla/websocket's documented single-writer-goroutine contract.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server

	// scopes is the allow-list of scopes this client receives events for.
	// Empty means "all scopes" (used by CLI/trusted clients with no scope
	// query parameter).
	scopes map[string]struct{}

	send   chan EventFrame
	mu     sync.Mutex
	closed bool

	busTokens []bus.Token
}

// NewClient wraps conn for server s, deriving the client's scope allow-list
// from its connection request (empty query = no restriction).
func NewClient(conn *websocket.Conn, s *Server, scopes []string) *Client {
	c := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		send:   make(chan EventFrame, 64),
	}
	if len(scopes) > 0 {
		c.scopes = make(map[string]struct{}, len(scopes))
		for _, sc := range scopes {
			c.scopes[sc] = struct{}{}
		}
	}
	return c
}

// allows reports whether this client's scope allow-list admits scope.
func (c *Client) allows(scope string) bool {
	if c.scopes == nil || scope == "" {
		return true
	}
	_, ok := c.scopes[scope]
	return ok
}

// SendEvent enqueues event for delivery, filtering on the client's scope
// allow-list. Drops the event without blocking if the client's outbound
// buffer is full (a slow/stuck client never backs up the broadcast loop).
func (c *Client) SendEvent(event EventFrame) {
	if !c.allows(event.Scope) {
		return
	}
	select {
	case c.send <- event:
	default:
		slog.Warn("gatewayhttp: client send buffer full, dropping event", "client", c.id, "event", event.Type)
	}
}

// Run drives the client's read and write pumps until ctx is cancelled or
// the connection drops. It blocks until the read pump exits; the write pump
// stops on ctx cancellation or its next failed write, and Run does not wait
// for it.
func (c *Client) Run(ctx context.Context) {
	done := make(chan struct{})
	go c.writePump(ctx, done)
	c.readPump(ctx)
	close(done)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(clientPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(clientPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (c *Client) writePump(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(clientPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
