package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/scopestore"
)

func newTestScopes(t *testing.T) (*scopestore.Scopes, string) {
	t.Helper()
	scopes := scopestore.NewScopes(nil)
	root := t.TempDir()
	t.Cleanup(scopes.CloseAll)
	return scopes, root
}

func scopedCtx(scope string) context.Context {
	return WithToolScope(context.Background(), scope)
}

func TestCreateDocumentToolCreatesAndReturnsID(t *testing.T) {
	scopes, root := newTestScopes(t)
	tool := NewCreateDocumentTool(scopes, func(string) string { return root })

	res := tool.Execute(scopedCtx("scope-1"), map[string]interface{}{
		"title": "Roadmap", "content": "q1 goals", "tags": []interface{}{"planning"},
	})

	require.False(t, res.IsError)
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.ForLLM), &out))
	assert.NotEmpty(t, out["id"])
	assert.Equal(t, "Roadmap", out["title"])

	st, err := scopes.Open(root)
	require.NoError(t, err)
	doc, err := st.Documents.Get(out["id"])
	require.NoError(t, err)
	assert.Equal(t, "q1 goals", doc.Content)
}

func TestCreateDocumentToolRejectsMissingTitle(t *testing.T) {
	scopes, root := newTestScopes(t)
	tool := NewCreateDocumentTool(scopes, func(string) string { return root })

	res := tool.Execute(scopedCtx("scope-1"), map[string]interface{}{"content": "x"})
	assert.True(t, res.IsError)
}

func TestCreateDocumentToolRequiresScopeInContext(t *testing.T) {
	scopes, root := newTestScopes(t)
	tool := NewCreateDocumentTool(scopes, func(string) string { return root })

	res := tool.Execute(context.Background(), map[string]interface{}{"title": "x"})
	assert.True(t, res.IsError)
}

func TestUpdateDocumentToolCapturesPriorStateAndUpdates(t *testing.T) {
	scopes, root := newTestScopes(t)
	createTool := NewCreateDocumentTool(scopes, func(string) string { return root })
	updateTool := NewUpdateDocumentTool(scopes, func(string) string { return root })

	created := createTool.Execute(scopedCtx("scope-1"), map[string]interface{}{
		"title": "Original", "content": "v1",
	})
	var createdOut map[string]string
	require.NoError(t, json.Unmarshal([]byte(created.ForLLM), &createdOut))
	id := createdOut["id"]

	var captured map[string]string = map[string]string{}
	ctx := WithSnapshotCapture(scopedCtx("scope-1"), func(path string, content *string) {
		if content != nil {
			captured[path] = *content
		}
	})

	newContent := "v2"
	res := updateTool.Execute(ctx, map[string]interface{}{"id": id, "content": newContent})
	require.False(t, res.IsError)

	assert.Contains(t, captured, docChangePath(id))
	assert.Contains(t, captured[docChangePath(id)], "v1")

	st, err := scopes.Open(root)
	require.NoError(t, err)
	doc, err := st.Documents.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "v2", doc.Content)
}

func TestUpdateDocumentToolMissingIDReturnsError(t *testing.T) {
	scopes, root := newTestScopes(t)
	tool := NewUpdateDocumentTool(scopes, func(string) string { return root })

	res := tool.Execute(scopedCtx("scope-1"), map[string]interface{}{"content": "x"})
	assert.True(t, res.IsError)
}

func TestUpdateDocumentToolUnknownIDReturnsError(t *testing.T) {
	scopes, root := newTestScopes(t)
	tool := NewUpdateDocumentTool(scopes, func(string) string { return root })

	res := tool.Execute(scopedCtx("scope-1"), map[string]interface{}{"id": "no-such-doc", "content": "x"})
	assert.True(t, res.IsError)
}

func TestDeleteDocumentToolCapturesPriorStateAndDeletes(t *testing.T) {
	scopes, root := newTestScopes(t)
	createTool := NewCreateDocumentTool(scopes, func(string) string { return root })
	deleteTool := NewDeleteDocumentTool(scopes, func(string) string { return root })

	created := createTool.Execute(scopedCtx("scope-1"), map[string]interface{}{
		"title": "ToDelete", "content": "gone soon",
	})
	var createdOut map[string]string
	require.NoError(t, json.Unmarshal([]byte(created.ForLLM), &createdOut))
	id := createdOut["id"]

	var captured bool
	ctx := WithSnapshotCapture(scopedCtx("scope-1"), func(path string, content *string) {
		if path == docChangePath(id) && content != nil {
			captured = true
		}
	})

	res := deleteTool.Execute(ctx, map[string]interface{}{"id": id})
	require.False(t, res.IsError)
	assert.True(t, captured)

	st, err := scopes.Open(root)
	require.NoError(t, err)
	_, err = st.Documents.Get(id)
	assert.Error(t, err)
}

func TestDeleteDocumentToolMissingIDReturnsError(t *testing.T) {
	scopes, root := newTestScopes(t)
	tool := NewDeleteDocumentTool(scopes, func(string) string { return root })

	res := tool.Execute(scopedCtx("scope-1"), map[string]interface{}{})
	assert.True(t, res.IsError)
}
