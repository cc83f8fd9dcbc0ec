package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sameJudge always reports a match, with a fixed reasoning string, for the
// dedup-confirmation path.
type sameJudge struct{ calls int }

func (j *sameJudge) JudgeSame(_ context.Context, _, _ string) (bool, error) {
	j.calls++
	return true, nil
}

// differentJudge always reports no match, forcing the writer to insert the
// candidate even though it landed within the vector-distance threshold.
type differentJudge struct{}

func (differentJudge) JudgeSame(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func countRows(t *testing.T, s *Store, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query, args...).Scan(&n))
	return n
}

// Literal scenario 1: semantic dedup. A vector hit close enough to an
// existing memory, confirmed "SAME" by the judge, produces zero new memory
// rows, one dedup_logs row naming the kept memory, and the candidate is not
// present among inserted content.
func TestProcessMemCellDedupsNearDuplicateConfirmedByJudge(t *testing.T) {
	s := openTestStore(t)
	embedder := NewHashEmbedder(32)
	judge := &sameJudge{}
	w := NewWriter(s, embedder, judge, nil)
	routing := Routing{Scope: "scope-1", SessionID: "sess-1"}

	first := MemCell{Content: "user prefers dark mode for the editor", Type: TypeProfile}
	id1, logID1, err := w.ProcessMemCell(context.Background(), first, routing)
	require.NoError(t, err)
	assert.NotEmpty(t, id1)
	assert.Empty(t, logID1)

	second := MemCell{Content: "user prefers dark mode for the editor", Type: TypeProfile}
	id2, logID2, err := w.ProcessMemCell(context.Background(), second, routing)
	require.NoError(t, err)

	assert.Empty(t, id2)
	assert.NotEmpty(t, logID2)
	assert.Equal(t, 1, judge.calls)

	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM memories`))
	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM dedup_logs WHERE kept_memory_id = ?`, id1))
}

func TestProcessMemCellInsertsWhenJudgeDisagrees(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), differentJudge{}, nil)
	routing := Routing{Scope: "scope-1", SessionID: "sess-1"}

	first := MemCell{Content: "likes dark mode", Type: TypeProfile}
	_, _, err := w.ProcessMemCell(context.Background(), first, routing)
	require.NoError(t, err)

	second := MemCell{Content: "likes dark mode", Type: TypeProfile}
	id2, logID2, err := w.ProcessMemCell(context.Background(), second, routing)
	require.NoError(t, err)

	assert.NotEmpty(t, id2)
	assert.Empty(t, logID2)
	assert.Equal(t, 2, countRows(t, s, `SELECT COUNT(*) FROM memories`))
}

func TestProcessMemCellEventLogNeverDedups(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), &sameJudge{}, nil)
	routing := Routing{Scope: "scope-1", SessionID: "sess-1"}

	cell := MemCell{Content: "user sent a message", Type: TypeEventLog}
	id1, _, err := w.ProcessMemCell(context.Background(), cell, routing)
	require.NoError(t, err)
	id2, _, err := w.ProcessMemCell(context.Background(), cell, routing)
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, countRows(t, s, `SELECT COUNT(*) FROM memories`))
}

func TestProcessMemCellRoutesByGroup(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), nil, nil)

	_, _, err := w.ProcessMemCell(context.Background(), MemCell{Content: "profile fact", Type: TypeProfile}, Routing{Scope: "scope-a"})
	require.NoError(t, err)
	_, _, err = w.ProcessMemCell(context.Background(), MemCell{Content: "episodic fact", Type: TypeEpisodic}, Routing{Scope: "scope-a"})
	require.NoError(t, err)
	_, _, err = w.ProcessMemCell(context.Background(), MemCell{Content: "scene fact", Type: TypeDocumentScene}, Routing{Scope: "scope-a"})
	require.NoError(t, err)
	_, _, err = w.ProcessMemCell(context.Background(), MemCell{Content: "event", Type: TypeEventLog}, Routing{Scope: "scope-a", SessionID: "sess-9"})
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM memories WHERE group_id = ''`))
	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM memories WHERE group_id = 'scope-a:docs'`))
	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM memories WHERE group_id = 'scope-a:session:sess-9'`))
}

// UndoDedup idempotency: a second undo of an already-rolled-back log is a
// no-op (nil, nil), never double-inserting the suppressed content.
func TestUndoDedupIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), &sameJudge{}, nil)
	routing := Routing{Scope: "scope-1"}

	_, _, err := w.ProcessMemCell(context.Background(), MemCell{Content: "dup fact", Type: TypeProfile}, routing)
	require.NoError(t, err)
	_, logID, err := w.ProcessMemCell(context.Background(), MemCell{Content: "dup fact", Type: TypeProfile}, routing)
	require.NoError(t, err)
	require.NotEmpty(t, logID)

	log, err := w.UndoDedup(logID)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.True(t, log.RolledBack)
	assert.Equal(t, 2, countRows(t, s, `SELECT COUNT(*) FROM memories`))

	again, err := w.UndoDedup(logID)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, 2, countRows(t, s, `SELECT COUNT(*) FROM memories`))
}

func TestUndoDedupUnknownIDReturnsNil(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), nil, nil)

	log, err := w.UndoDedup("no-such-log")
	require.NoError(t, err)
	assert.Nil(t, log)
}

func TestDeleteMemoriesByIDRemovesOnlyNamedRows(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), nil, nil)

	id1, _, err := w.ProcessMemCell(context.Background(), MemCell{Content: "a", Type: TypeProfile}, Routing{Scope: "s"})
	require.NoError(t, err)
	_, _, err = w.ProcessMemCell(context.Background(), MemCell{Content: "b entirely different", Type: TypeEpisodic}, Routing{Scope: "s"})
	require.NoError(t, err)

	n := w.DeleteMemoriesByID([]string{id1})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM memories`))
}

func TestDeleteMemoriesByGroupIDAndPrefix(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, NewHashEmbedder(32), nil, nil)

	_, _, err := w.ProcessMemCell(context.Background(), MemCell{Content: "event a", Type: TypeEventLog}, Routing{Scope: "s", SessionID: "sess-1"})
	require.NoError(t, err)
	_, _, err = w.ProcessMemCell(context.Background(), MemCell{Content: "event b", Type: TypeEventLog}, Routing{Scope: "s", SessionID: "sess-2"})
	require.NoError(t, err)

	assert.Equal(t, 1, w.DeleteMemoriesByGroupID("s:session:sess-1"))
	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM memories`))

	assert.Equal(t, 1, w.DeleteMemoriesByGroupPrefix("s:session:"))
	assert.Equal(t, 0, countRows(t, s, `SELECT COUNT(*) FROM memories`))
}
