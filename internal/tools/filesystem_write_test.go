package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileToolCreatesFileAndParentDirs(t *testing.T) {
	ws := t.TempDir()
	tool := NewWriteFileTool(ws, true)

	res := tool.Execute(context.Background(), map[string]interface{}{
		"path": "notes/todo.md", "content": "buy milk",
	})

	require.False(t, res.IsError)
	assert.True(t, res.Silent)
	data, err := os.ReadFile(filepath.Join(ws, "notes/todo.md"))
	require.NoError(t, err)
	assert.Equal(t, "buy milk", string(data))
}

func TestWriteFileToolRejectsMissingPath(t *testing.T) {
	tool := NewWriteFileTool(t.TempDir(), true)
	res := tool.Execute(context.Background(), map[string]interface{}{"content": "x"})
	assert.True(t, res.IsError)
}

func TestWriteFileToolRejectsEscapeWhenRestricted(t *testing.T) {
	ws := t.TempDir()
	tool := NewWriteFileTool(ws, true)

	res := tool.Execute(context.Background(), map[string]interface{}{
		"path": "../../etc/passwd", "content": "x",
	})

	assert.True(t, res.IsError)
}

func TestMoveFileToolMovesFileAndCapturesSnapshot(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "a.txt"), []byte("hello"), 0o644))
	tool := NewMoveFileTool(ws, true)

	var captured map[string]*string = map[string]*string{}
	ctx := WithSnapshotCapture(context.Background(), func(path string, content *string) {
		captured[path] = content
	})

	res := tool.Execute(ctx, map[string]interface{}{"from": "a.txt", "to": "b.txt"})

	require.False(t, res.IsError)
	_, err := os.Stat(filepath.Join(ws, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(ws, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.Contains(t, captured, "a.txt")
	require.NotNil(t, captured["a.txt"])
	assert.Equal(t, "hello", *captured["a.txt"])
}

func TestMoveFileToolRejectsMissingArgs(t *testing.T) {
	tool := NewMoveFileTool(t.TempDir(), true)
	res := tool.Execute(context.Background(), map[string]interface{}{"from": "a.txt"})
	assert.True(t, res.IsError)
}

func TestDeleteFileToolDeletesAndCapturesSnapshot(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "a.txt"), []byte("bye"), 0o644))
	tool := NewDeleteFileTool(ws, true)

	var captured map[string]*string = map[string]*string{}
	ctx := WithSnapshotCapture(context.Background(), func(path string, content *string) {
		captured[path] = content
	})

	res := tool.Execute(ctx, map[string]interface{}{"path": "a.txt"})

	require.False(t, res.IsError)
	_, err := os.Stat(filepath.Join(ws, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	require.NotNil(t, captured["a.txt"])
	assert.Equal(t, "bye", *captured["a.txt"])
}

func TestDeleteFileToolMissingFileReturnsError(t *testing.T) {
	tool := NewDeleteFileTool(t.TempDir(), true)
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "no-such-file.txt"})
	assert.True(t, res.IsError)
}

func TestWriteFileToolUsesContextWorkspaceOverConfigured(t *testing.T) {
	configured := t.TempDir()
	override := t.TempDir()
	tool := NewWriteFileTool(configured, true)

	ctx := WithToolWorkspace(context.Background(), override)
	res := tool.Execute(ctx, map[string]interface{}{"path": "x.txt", "content": "v"})

	require.False(t, res.IsError)
	_, err := os.Stat(filepath.Join(override, "x.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(configured, "x.txt"))
	assert.True(t, os.IsNotExist(err))
}
