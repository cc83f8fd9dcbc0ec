package chat

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/scopestore"
)

// docChangePrefix marks a FileChange.Path produced from a prizm_*_document
// tool call, per internal/checkpoint/extract.go's rule table.
const docChangePrefix = "[doc] "

// RollbackResult summarizes what a rollback discarded.
type RollbackResult struct {
	CheckpointID     string
	DiscardedRounds  int
	FilesReverted    int
	MemoriesDeleted  int
}

// RollbackToCheckpoint discards every message and side effect recorded
// after the given checkpoint, restoring the session to the state it had
// right after the user message that opened it. Grounded on the snapshot/
// restore contract in internal/checkpoint (Store.Load keyed by checkpoint
// id, scopestore.DocumentStore.Restore built for exactly this purpose) —
// no teacher analogue, since the teacher's agent loop has no rollback.
func (rt *Runtime) RollbackToCheckpoint(scope, sessionID, checkpointID string) (*RollbackResult, error) {
	sess, ok := rt.deps.Sessions.Get(scope, sessionID)
	if !ok || sess == nil {
		return nil, errs.New(errs.NotFound, "chat: session not found")
	}

	var target *model.Checkpoint
	for _, cp := range sess.Checkpoints {
		if cp.ID == checkpointID {
			target = cp
			break
		}
	}
	if target == nil {
		return nil, errs.New(errs.NotFound, "chat: checkpoint not found")
	}

	var discarded []*model.Checkpoint
	var kept []*model.Checkpoint
	for _, cp := range sess.Checkpoints {
		if cp.MessageIndex >= target.MessageIndex {
			discarded = append(discarded, cp)
		} else {
			kept = append(kept, cp)
		}
	}
	// Revert most-recent-first so an earlier snapshot never gets clobbered
	// by a later one's restore of the same path.
	sort.Slice(discarded, func(i, j int) bool {
		return discarded[i].MessageIndex > discarded[j].MessageIndex
	})

	store := rt.checkpointStore(scope)
	scopeRoot := ""
	if rt.deps.ScopeRoots != nil {
		scopeRoot = rt.deps.ScopeRoots(scope)
	}
	var docs *scopestore.DocumentStore
	if rt.deps.Scopes != nil && scopeRoot != "" {
		if st, err := rt.deps.Scopes.Open(scopeRoot); err == nil {
			docs = st.Documents
		}
	}

	filesReverted := 0
	for _, cp := range discarded {
		snaps := store.Load(sessionID, cp.ID)
		for _, fc := range cp.FileChanges {
			if revertFileChange(scopeRoot, docs, fc, snaps) {
				filesReverted++
			}
		}
		if err := store.Delete(sessionID, cp.ID); err != nil {
			slog.Warn("chat: failed to delete rolled-back checkpoint snapshot", "checkpoint", cp.ID, "error", err)
		}
	}

	// FileChanges only ever records a created document by its title
	// (checkpoint.ExtractChange's "[doc] "+args.title rule), which can't
	// address the store to delete it. The real id is recoverable from the
	// prizm_create_document call's own result on the discarded messages, so
	// recover it from there instead of from FileChanges.
	if docs != nil {
		for _, m := range sess.Messages[target.MessageIndex+1:] {
			for _, part := range m.ToolParts() {
				if part.Name != "prizm_create_document" || part.IsError || part.Result == "" {
					continue
				}
				var created struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal([]byte(part.Result), &created); err != nil || created.ID == "" {
					continue
				}
				if err := docs.Delete(created.ID); err != nil {
					slog.Warn("chat: rollback could not delete document created in discarded turn", "id", created.ID, "error", err)
					continue
				}
				filesReverted++
			}
		}
	}

	discardedRounds := len(sess.Messages) - (target.MessageIndex + 1)
	if discardedRounds < 0 {
		discardedRounds = 0
	}

	memoriesDeleted := 0
	if rt.deps.Memory != nil {
		var ids []string
		for _, m := range sess.Messages[target.MessageIndex+1:] {
			if m.MemoryRefs != nil {
				ids = append(ids, m.MemoryRefs.Created...)
			}
		}
		if len(ids) > 0 {
			memoriesDeleted = rt.deps.Memory.DeleteMemoriesByID(ids)
		}
	}

	sess.Messages = sess.Messages[:target.MessageIndex+1]
	sess.Checkpoints = kept

	rt.deps.Sessions.Save(sess)

	if rt.deps.Bus != nil {
		rt.deps.Bus.Emit(bus.EventSessionRolledBack, map[string]interface{}{
			"scope":           scope,
			"sessionId":       sessionID,
			"checkpointId":    checkpointID,
			"discardedRounds": discardedRounds,
			"filesReverted":   filesReverted,
			"memoriesDeleted": memoriesDeleted,
		})
	}

	return &RollbackResult{
		CheckpointID:    checkpointID,
		DiscardedRounds: discardedRounds,
		FilesReverted:   filesReverted,
		MemoriesDeleted: memoriesDeleted,
	}, nil
}

// revertFileChange inverts one recorded change using its captured snapshot.
// It reports whether it actually reverted something on disk/in the store.
func revertFileChange(scopeRoot string, docs *scopestore.DocumentStore, fc model.FileChange, snaps map[string]string) bool {
	if strings.HasPrefix(fc.Path, docChangePrefix) {
		return revertDocChange(docs, fc, snaps)
	}
	return revertFSChange(scopeRoot, fc, snaps)
}

func revertFSChange(scopeRoot string, fc model.FileChange, snaps map[string]string) bool {
	if scopeRoot == "" {
		return false
	}
	switch fc.Action {
	case model.FileCreated:
		if err := os.Remove(filepath.Join(scopeRoot, fc.Path)); err != nil && !os.IsNotExist(err) {
			slog.Warn("chat: rollback could not remove created file", "path", fc.Path, "error", err)
			return false
		}
		return true

	case model.FileModified, model.FileDeleted:
		content, ok := snaps[fc.Path]
		if !ok {
			return false
		}
		if err := os.MkdirAll(filepath.Dir(filepath.Join(scopeRoot, fc.Path)), 0o755); err != nil {
			return false
		}
		if err := os.WriteFile(filepath.Join(scopeRoot, fc.Path), []byte(content), 0o644); err != nil {
			slog.Warn("chat: rollback could not restore file", "path", fc.Path, "error", err)
			return false
		}
		return true

	case model.FileMoved:
		if err := os.Remove(filepath.Join(scopeRoot, fc.Path)); err != nil && !os.IsNotExist(err) {
			slog.Warn("chat: rollback could not remove moved-to file", "path", fc.Path, "error", err)
		}
		if content, ok := snaps[fc.FromPath]; ok {
			if err := os.WriteFile(filepath.Join(scopeRoot, fc.FromPath), []byte(content), 0o644); err != nil {
				slog.Warn("chat: rollback could not restore moved-from file", "path", fc.FromPath, "error", err)
				return false
			}
		}
		return true
	}
	return false
}

// revertDocChange restores a scopestore document from its pre-turn
// snapshot. Create changes are handled separately in RollbackToCheckpoint,
// which recovers the document id from the discarded prizm_create_document
// tool call's own result rather than from this title-only FileChange.
func revertDocChange(docs *scopestore.DocumentStore, fc model.FileChange, snaps map[string]string) bool {
	if docs == nil {
		return false
	}
	switch fc.Action {
	case model.FileModified, model.FileDeleted:
		raw, ok := snaps[fc.Path]
		if !ok || raw == "" {
			return false
		}
		var doc scopestore.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			slog.Warn("chat: rollback could not decode document snapshot", "path", fc.Path, "error", err)
			return false
		}
		if err := docs.Restore(doc); err != nil {
			slog.Warn("chat: rollback could not restore document", "path", fc.Path, "error", err)
			return false
		}
		return true

	case model.FileCreated:
		return false
	}
	return false
}
