package gatewayhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/runtimectx"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DataDir = dir + "/data"
	cfg.Agents.Defaults.Workspace = dir + "/workspace"
	cfg.Gateway.AuthDisabled = true
	cfg.Gateway.McpScope = "default"

	rt, err := runtimectx.New(cfg)
	if err != nil {
		t.Fatalf("runtimectx.New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	return NewServer(rt)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	mux := s.BuildMux()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestHandleStop_NoRunningTurn(t *testing.T) {
	s := newTestServer(t)
	mux := s.BuildMux()

	req := httptest.NewRequest(http.MethodPost, "/agent/sessions/sess-1/stop?scope=default", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body["stopped"] {
		t.Errorf("stopped = false, want true (Stop is idempotent on an unknown session)")
	}
}

func TestHandleInteractResponse_UnknownRequest(t *testing.T) {
	s := newTestServer(t)
	mux := s.BuildMux()

	reqBody := `{"requestId":"does-not-exist","approved":true}`
	req := httptest.NewRequest(http.MethodPost, "/agent/sessions/sess-1/interact-response?scope=default", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["resolved"] {
		t.Errorf("resolved = true, want false for a requestId nobody is waiting on")
	}
}

func TestCheckLock_SecondCallerBlockedThenForced(t *testing.T) {
	s := newTestServer(t)

	acquire := func(sessionID string, force bool) int {
		url := "/agent/sessions/" + sessionID + "/chat"
		if force {
			url += "?force=true"
		}
		req := httptest.NewRequest(http.MethodPost, url, nil)
		rec := httptest.NewRecorder()
		if s.checkLock(rec, req, "default", "session_turn", "doc-1", sessionID, "test", 30000) {
			return http.StatusOK
		}
		return rec.Code
	}

	if code := acquire("sess-a", false); code != http.StatusOK {
		t.Fatalf("first acquire: got %d, want 200 (lock granted)", code)
	}
	if code := acquire("sess-b", false); code != http.StatusLocked {
		t.Fatalf("second acquire without force: got %d, want 423", code)
	}
	if code := acquire("sess-b", true); code != http.StatusOK {
		t.Fatalf("second acquire with force=true: got %d, want 200", code)
	}

	s.rt.Locks.Release("default", "session_turn", "doc-1", "sess-b")
}

func TestCheckLock_SameSessionReacquireIsNotAnError(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/agent/sessions/sess-a/chat", nil)
	rec := httptest.NewRecorder()
	if !s.checkLock(rec, req, "default", "session_turn", "doc-2", "sess-a", "test", 30000) {
		t.Fatalf("first acquire failed: %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	if !s.checkLock(rec2, req, "default", "session_turn", "doc-2", "sess-a", "test", 30000) {
		t.Fatalf("re-acquiring one's own lock should succeed: %d", rec2.Code)
	}

	s.rt.Locks.Release("default", "session_turn", "doc-2", "sess-a")
}

func TestCheckOrigin_AllowsEmptyAndConfiguredOrigins(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Gateway.AllowedOrigins = []string{"https://allowed.example"}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !s.checkOrigin(req) {
		t.Error("empty Origin header should always be allowed")
	}

	req.Header.Set("Origin", "https://allowed.example")
	if !s.checkOrigin(req) {
		t.Error("configured origin should be allowed")
	}

	req.Header.Set("Origin", "https://evil.example")
	if s.checkOrigin(req) {
		t.Error("unconfigured origin should be rejected")
	}
}

