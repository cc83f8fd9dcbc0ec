package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/model"
)

func newTestRuntime(t *testing.T, scopeRoot string) (*Runtime, *MemoryStore) {
	t.Helper()
	sessions := NewMemoryStore()
	deps := Deps{
		Bus:      bus.New(),
		Sessions: sessions,
		ScopeRoots: func(scope string) string {
			return scopeRoot
		},
	}
	return New(deps, nil), sessions
}

func TestRollbackToCheckpoint_RestoresModifiedFile(t *testing.T) {
	scopeRoot := t.TempDir()
	rt, sessions := newTestRuntime(t, scopeRoot)

	filePath := filepath.Join(scopeRoot, "notes.txt")
	if err := os.WriteFile(filePath, []byte("after edit"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	sess := sessions.GetOrCreate("scope-1", "sess-1")
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleUser, Parts: []model.Part{{Type: model.PartText, Content: "edit notes.txt"}}},
	)
	cp := checkpoint.CreateCheckpoint(sess.ID, len(sess.Messages)-1, "edit notes.txt")
	completed := checkpoint.CompleteCheckpoint(cp, []model.FileChange{
		{Path: "notes.txt", Action: model.FileModified},
	})
	sess.Checkpoints = append(sess.Checkpoints, &completed)
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleAssistant, Parts: []model.Part{{Type: model.PartText, Content: "done"}}},
	)
	sessions.Save(sess)

	store := rt.checkpointStore("scope-1")
	if err := store.Save(sess.ID, completed.ID, map[string]string{"notes.txt": "before edit"}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	result, err := rt.RollbackToCheckpoint("scope-1", "sess-1", completed.ID)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if result.FilesReverted != 1 {
		t.Fatalf("expected 1 file reverted, got %d", result.FilesReverted)
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(raw) != "before edit" {
		t.Fatalf("expected file restored to pre-turn content, got %q", string(raw))
	}

	got, _ := sessions.Get("scope-1", "sess-1")
	if len(got.Messages) != 1 {
		t.Fatalf("expected messages truncated back to the checkpoint's user message, got %d", len(got.Messages))
	}
	if len(got.Checkpoints) != 0 {
		t.Fatalf("expected the rolled-back checkpoint removed from the session, got %d", len(got.Checkpoints))
	}
}

func TestRollbackToCheckpoint_RemovesCreatedFile(t *testing.T) {
	scopeRoot := t.TempDir()
	rt, sessions := newTestRuntime(t, scopeRoot)

	createdPath := filepath.Join(scopeRoot, "new.txt")
	if err := os.WriteFile(createdPath, []byte("new content"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	sess := sessions.GetOrCreate("scope-2", "sess-2")
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleUser, Parts: []model.Part{{Type: model.PartText, Content: "create new.txt"}}},
	)
	cp := checkpoint.CreateCheckpoint(sess.ID, len(sess.Messages)-1, "create new.txt")
	completed := checkpoint.CompleteCheckpoint(cp, []model.FileChange{
		{Path: "new.txt", Action: model.FileCreated},
	})
	sess.Checkpoints = append(sess.Checkpoints, &completed)
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleAssistant, Parts: []model.Part{{Type: model.PartText, Content: "created it"}}},
	)
	sessions.Save(sess)

	if _, err := rt.RollbackToCheckpoint("scope-2", "sess-2", completed.ID); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, err := os.Stat(createdPath); !os.IsNotExist(err) {
		t.Fatalf("expected created file removed by rollback, stat err = %v", err)
	}
}

func TestRollbackToCheckpoint_UnknownCheckpointErrors(t *testing.T) {
	rt, sessions := newTestRuntime(t, t.TempDir())
	sessions.GetOrCreate("scope-3", "sess-3")

	if _, err := rt.RollbackToCheckpoint("scope-3", "sess-3", "does-not-exist"); err == nil {
		t.Fatalf("expected an error for an unknown checkpoint id")
	}
}

func TestRollbackToCheckpoint_UnknownSessionErrors(t *testing.T) {
	rt, _ := newTestRuntime(t, t.TempDir())
	if _, err := rt.RollbackToCheckpoint("scope-x", "missing", "cp-1"); err == nil {
		t.Fatalf("expected an error for an unknown session")
	}
}

func TestRollbackToCheckpoint_DiscardsTargetAndLaterCheckpoints(t *testing.T) {
	scopeRoot := t.TempDir()
	rt, sessions := newTestRuntime(t, scopeRoot)

	sess := sessions.GetOrCreate("scope-4", "sess-4")
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleUser, Parts: []model.Part{{Type: model.PartText, Content: "first"}}},
	)
	cp1 := checkpoint.CreateCheckpoint(sess.ID, 0, "first")
	completed1 := checkpoint.CompleteCheckpoint(cp1, nil)
	sess.Checkpoints = append(sess.Checkpoints, &completed1)
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleAssistant, Parts: []model.Part{{Type: model.PartText, Content: "first reply"}}},
		&model.AgentMessage{Role: model.RoleUser, Parts: []model.Part{{Type: model.PartText, Content: "second"}}},
	)
	cp2 := checkpoint.CreateCheckpoint(sess.ID, 2, "second")
	completed2 := checkpoint.CompleteCheckpoint(cp2, nil)
	sess.Checkpoints = append(sess.Checkpoints, &completed2)
	sess.Messages = append(sess.Messages,
		&model.AgentMessage{Role: model.RoleAssistant, Parts: []model.Part{{Type: model.PartText, Content: "second reply"}}},
	)
	sessions.Save(sess)

	result, err := rt.RollbackToCheckpoint("scope-4", "sess-4", completed1.ID)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if result.DiscardedRounds != 3 {
		t.Fatalf("expected 3 discarded messages, got %d", result.DiscardedRounds)
	}

	got, _ := sessions.Get("scope-4", "sess-4")
	if len(got.Messages) != 1 {
		t.Fatalf("expected only the first user message to remain, got %d", len(got.Messages))
	}
	if len(got.Checkpoints) != 0 {
		t.Fatalf("expected the target and the later checkpoint removed, got %d", len(got.Checkpoints))
	}
}
