package terminal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
)

func TestExtractBetweenMarkers_ParsesOutputAndExitCode(t *testing.T) {
	clean := "START\nhello world\nEND:0\n"
	body, code := extractBetweenMarkers(clean, "START", "END")
	if body != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", body)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestExtractBetweenMarkers_NonZeroExit(t *testing.T) {
	clean := "START\nboom\nEND:7\n"
	_, code := extractBetweenMarkers(clean, "START", "END")
	if code != 7 {
		t.Fatalf("expected exit code 7, got %d", code)
	}
}

func TestPool_Exec_DeniedCommandRejected(t *testing.T) {
	pool := NewPool()
	key := model.ExecWorkerKey{AgentSessionID: "s1", WorkspaceType: model.WorkspaceMain}

	_, err := pool.Exec(context.Background(), key, "rm -rf /", "", 5*time.Second)
	if err == nil {
		t.Fatalf("expected the deny-pattern list to reject this command")
	}
	if errs.KindOf(err) != errs.Validation {
		t.Fatalf("expected errs.Validation, got %v", errs.KindOf(err))
	}
	if pool.ActiveWorkerCount() != 0 {
		t.Fatalf("expected no worker to have been spawned for a denied command")
	}
}

func TestPool_Exec_RunsCommandAndReusesWorker(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real pty-backed shell")
	}
	pool := NewPool()
	t.Cleanup(pool.Shutdown)
	key := model.ExecWorkerKey{AgentSessionID: "s1", WorkspaceType: model.WorkspaceMain}

	res, err := pool.Exec(context.Background(), key, "echo hello-exec", "", 5*time.Second)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(res.Output, "hello-exec") {
		t.Fatalf("expected output to contain %q, got %q", "hello-exec", res.Output)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
	if pool.ActiveWorkerCount() != 1 {
		t.Fatalf("expected exactly one worker after the first call")
	}

	res2, err := pool.Exec(context.Background(), key, "echo again", "", 5*time.Second)
	if err != nil {
		t.Fatalf("second exec: %v", err)
	}
	if !strings.Contains(res2.Output, "again") {
		t.Fatalf("expected second call's output to contain %q, got %q", "again", res2.Output)
	}
	if pool.ActiveWorkerCount() != 1 {
		t.Fatalf("expected the second call to reuse the same worker")
	}
}

func TestPool_Exec_TimeoutDestroysWorker(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real pty-backed shell")
	}
	pool := NewPool()
	t.Cleanup(pool.Shutdown)
	key := model.ExecWorkerKey{AgentSessionID: "s2", WorkspaceType: model.WorkspaceMain}

	res, err := pool.Exec(context.Background(), key, "sleep 5", "", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !res.TimedOut {
		t.Fatalf("expected the long-running command to time out")
	}
	if pool.ActiveWorkerCount() != 0 {
		t.Fatalf("expected a timed-out worker to be destroyed")
	}
}
