// Package gatewayhttp is the HTTP/WebSocket bridge: it mounts the SSE chat
// endpoint, the session control endpoints, the terminal WebSocket, and the
// broadcast event sink over a *runtimectx.Context. Grounded throughout on
// the teacher's internal/gateway/server.go, with every managed-mode
// field/handler (agent CRUD, skills, traces, MCP, custom tools, channel
// instances, providers, delegations, builtin tools) dropped — multi-tenant
// managed mode is out of scope here.
package gatewayhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/runtimectx"
)

const protocolVersion = 1

// Server is the prizm gateway: one HTTP server multiplexing the chat SSE
// endpoint, session control, terminals, and the WebSocket broadcast sink.
type Server struct {
	cfg *config.Config
	rt  *runtimectx.Context

	upgrader    websocket.Upgrader
	rateLimiter *RateLimiter
	clients     map[string]*Client
	mu          sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer builds a Server backed by rt. cfg is taken from rt.Config for
// convenience at call sites that already hold rt.
func NewServer(rt *runtimectx.Context) *Server {
	s := &Server{
		cfg:     rt.Config,
		rt:      rt,
		clients: make(map[string]*Client),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.rateLimiter = NewRateLimiter(s.cfg.Gateway.RateLimitRPM, 5)

	return s
}

// checkOrigin validates a WebSocket upgrade's Origin header against the
// configured allow-list. No configuration means allow all (local dev
// default); an empty Origin header (CLI/SDK clients, never browsers) is
// always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Gateway.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("security.cors_rejected", "origin", origin)
	return false
}

// withCORS wraps h to emit Access-Control-* headers when cfg.Gateway.CorsEnabled.
func (s *Server) withCORS(h http.HandlerFunc) http.HandlerFunc {
	if !s.cfg.Gateway.CorsEnabled {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}

// requireAuth wraps h with a bearer-token check, skipped entirely when
// cfg.Gateway.AuthDisabled (local dev) or no token is configured.
func (s *Server) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	if s.cfg.Gateway.AuthDisabled || s.cfg.Gateway.Token == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.cfg.Gateway.Token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

// BuildMux constructs and caches the HTTP mux with every route registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()

	if s.cfg.Gateway.WebsocketEnabled {
		wsPath := s.cfg.Gateway.WebsocketPath
		if wsPath == "" {
			wsPath = "/ws"
		}
		mux.HandleFunc(wsPath, s.handleWebSocket)
	}
	mux.HandleFunc("/ws/terminal", s.handleTerminalWebSocket)

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/agent/sessions/", s.withCORS(s.requireAuth(s.handleSessionRoute)))

	s.mux = mux
	return mux
}

// handleSessionRoute dispatches the /agent/sessions/:id/{chat,stop,interact-response}
// family to their handlers by parsing the trailing path segment.
func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/agent/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	sessionID, action := parts[0], parts[1]

	switch action {
	case "chat":
		s.handleChat(w, r, sessionID)
	case "stop":
		s.handleStop(w, r, sessionID)
	case "interact-response":
		s.handleInteractResponse(w, r, sessionID)
	default:
		http.NotFound(w, r)
	}
}

// handleHealth reports liveness and the wire protocol version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocolVersion)
}

// Start begins serving HTTP and blocks until ctx is cancelled, at which
// point it shuts the server down gracefully with a 5s deadline.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("gatewayhttp starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gatewayhttp: serve: %w", err)
	}
	return nil
}

// handleWebSocket upgrades the request and runs the broadcast sink for one
// client until the connection closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gatewayhttp: websocket upgrade failed", "error", err)
		return
	}

	scopes := r.URL.Query()["scope"]
	client := NewClient(conn, s, scopes)
	s.registerClient(client)

	defer func() {
		s.unregisterClient(client)
		client.Close()
	}()

	client.Run(r.Context())
}

// BroadcastEvent fans event out to every connected client, each applying
// its own scope allow-list filter.
func (s *Server) BroadcastEvent(event EventFrame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.SendEvent(event)
	}
}

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	for _, name := range bus.AllEvents {
		eventName := name
		tok := s.rt.Bus.Subscribe(eventName, func(ev bus.Event) error {
			c.SendEvent(NewEventFrame(ev.Name, scopeOf(ev.Payload), ev.Payload))
			return nil
		}, "gatewayhttp.client."+c.id)
		c.busTokens = append(c.busTokens, tok)
	}

	slog.Info("gatewayhttp: client connected", "id", c.id)
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	for _, tok := range c.busTokens {
		s.rt.Bus.Unsubscribe(tok)
	}
	slog.Info("gatewayhttp: client disconnected", "id", c.id)
}

// scopeOf extracts the "scope" key every domain event payload carries (see
// bus.Event payload convention across internal/chat, internal/background,
// internal/workflow, internal/locks), returning "" (unfiltered) for
// payloads that carry none.
func scopeOf(payload interface{}) string {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return ""
	}
	scope, _ := m["scope"].(string)
	return scope
}

// StartTestServer listens on a random local port and returns the address
// and a start function, mirroring the teacher's gateway.StartTestServer
// helper for integration tests.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	mux := s.BuildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("gatewayhttp: listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = s.httpServer.Shutdown(shutdownCtx)
		}()
		_ = s.httpServer.Serve(ln)
	}

	return addr, start
}
