package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	snaps := map[string]string{"a.md": "v1", "b.md": "v2"}

	require.NoError(t, s.Save("sess-1", "cp-1", snaps))

	assert.Equal(t, snaps, s.Load("sess-1", "cp-1"))
}

func TestStoreSaveOnEmptyMapWritesNothing(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	require.NoError(t, s.Save("sess-1", "cp-1", map[string]string{}))

	_, err := os.Stat(s.path("sess-1", "cp-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreLoadMissingFileReturnsEmptyMap(t *testing.T) {
	s := NewStore(t.TempDir())

	assert.Equal(t, map[string]string{}, s.Load("sess-1", "no-such-checkpoint"))
}

func TestStoreLoadMalformedFileReturnsEmptyMap(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	dir := filepath.Join(root, ".prizm", "checkpoints", "sess-1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cp-1.json"), []byte("not json"), 0o644))

	assert.Equal(t, map[string]string{}, s.Load("sess-1", "cp-1"))
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Save("sess-1", "cp-1", map[string]string{"a.md": "v1"}))

	require.NoError(t, s.Delete("sess-1", "cp-1"))
	assert.Equal(t, map[string]string{}, s.Load("sess-1", "cp-1"))

	require.NoError(t, s.Delete("sess-1", "cp-1"))
}

func TestStoreDeleteSessionRemovesAllCheckpoints(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	require.NoError(t, s.Save("sess-1", "cp-1", map[string]string{"a.md": "v1"}))
	require.NoError(t, s.Save("sess-1", "cp-2", map[string]string{"b.md": "v2"}))

	require.NoError(t, s.DeleteSession("sess-1"))

	_, err := os.Stat(s.dir("sess-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreDeleteSessionOnMissingDirIsNoOp(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.NoError(t, s.DeleteSession("no-such-session"))
}
