package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prizm-dev/prizm/internal/scopestore"
)

// documentAccess resolves the *scopestore.DocumentStore for whichever scope
// the current call belongs to, the way ReadFileTool resolves a workspace
// root: the scope/root lookup is captured once at registration, then
// dereferenced per call through ToolScopeFromCtx.
type documentAccess struct {
	scopes     *scopestore.Scopes
	scopeRoots func(scope string) string
}

func (d documentAccess) open(ctx context.Context) (*scopestore.DocumentStore, error) {
	scope := ToolScopeFromCtx(ctx)
	if scope == "" || d.scopes == nil || d.scopeRoots == nil {
		return nil, fmt.Errorf("document store not available in this context")
	}
	st, err := d.scopes.Open(d.scopeRoots(scope))
	if err != nil {
		return nil, err
	}
	return st.Documents, nil
}

// docChangePath mirrors checkpoint.ExtractChange's "[doc] "+id path format
// so revertDocChange finds snapshots captured under the same key.
func docChangePath(id string) string { return "[doc] " + id }

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CreateDocumentTool creates a scope document. Grounded on
// scopestore.DocumentStore.Create; the result is JSON carrying the new
// document's real id, not just its title, so a rollback of the turn that
// created it can recover the id straight from the tool call's own result
// instead of threading it back through the title-keyed FileChange path.
type CreateDocumentTool struct {
	documentAccess
}

func NewCreateDocumentTool(scopes *scopestore.Scopes, scopeRoots func(string) string) *CreateDocumentTool {
	return &CreateDocumentTool{documentAccess{scopes: scopes, scopeRoots: scopeRoots}}
}

func (t *CreateDocumentTool) Name() string { return "prizm_create_document" }

func (t *CreateDocumentTool) Description() string {
	return "Create a new scope document with a title and content"
}

func (t *CreateDocumentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title":   map[string]interface{}{"type": "string", "description": "Document title"},
			"content": map[string]interface{}{"type": "string", "description": "Document body"},
			"tags": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Optional tags",
			},
		},
		"required": []string{"title"},
	}
}

func (t *CreateDocumentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	title, _ := args["title"].(string)
	if title == "" {
		return ErrorResult("title is required")
	}
	content, _ := args["content"].(string)
	tags := stringSliceArg(args, "tags")

	docs, err := t.open(ctx)
	if err != nil {
		return ErrorResult(err.Error())
	}
	doc, err := docs.Create(title, content, tags)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to create document: %v", err))
	}

	out, _ := json.Marshal(map[string]interface{}{"id": doc.ID, "title": doc.Title})
	return SilentResult(string(out))
}

// UpdateDocumentTool updates an existing scope document's title, content,
// or tags. Captures the document's pre-update state before writing it, so a
// later rollback can restore it.
type UpdateDocumentTool struct {
	documentAccess
}

func NewUpdateDocumentTool(scopes *scopestore.Scopes, scopeRoots func(string) string) *UpdateDocumentTool {
	return &UpdateDocumentTool{documentAccess{scopes: scopes, scopeRoots: scopeRoots}}
}

func (t *UpdateDocumentTool) Name() string { return "prizm_update_document" }

func (t *UpdateDocumentTool) Description() string {
	return "Update an existing scope document's title, content, or tags"
}

func (t *UpdateDocumentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id":      map[string]interface{}{"type": "string", "description": "Document id"},
			"title":   map[string]interface{}{"type": "string", "description": "New title, if changing"},
			"content": map[string]interface{}{"type": "string", "description": "New content, if changing"},
			"tags": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "New tags, if changing",
			},
		},
		"required": []string{"id"},
	}
}

func (t *UpdateDocumentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	id, _ := args["id"].(string)
	if id == "" {
		return ErrorResult("id is required")
	}

	docs, err := t.open(ctx)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if prior, getErr := docs.Get(id); getErr == nil {
		if raw, marshalErr := json.Marshal(prior); marshalErr == nil {
			s := string(raw)
			if capture := SnapshotCaptureFromCtx(ctx); capture != nil {
				capture(docChangePath(id), &s)
			}
		}
	}

	var titlePtr, contentPtr *string
	if v, ok := args["title"].(string); ok {
		titlePtr = &v
	}
	if v, ok := args["content"].(string); ok {
		contentPtr = &v
	}
	tags := stringSliceArg(args, "tags")

	doc, err := docs.Update(id, titlePtr, contentPtr, tags)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to update document: %v", err))
	}

	out, _ := json.Marshal(map[string]interface{}{"id": doc.ID, "title": doc.Title})
	return SilentResult(string(out))
}

// DeleteDocumentTool deletes a scope document by id. Captures its
// pre-delete state first, so a later rollback can restore it.
type DeleteDocumentTool struct {
	documentAccess
}

func NewDeleteDocumentTool(scopes *scopestore.Scopes, scopeRoots func(string) string) *DeleteDocumentTool {
	return &DeleteDocumentTool{documentAccess{scopes: scopes, scopeRoots: scopeRoots}}
}

func (t *DeleteDocumentTool) Name() string        { return "prizm_delete_document" }
func (t *DeleteDocumentTool) Description() string { return "Delete a scope document by id" }

func (t *DeleteDocumentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "string", "description": "Document id"},
		},
		"required": []string{"id"},
	}
}

func (t *DeleteDocumentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	id, _ := args["id"].(string)
	if id == "" {
		return ErrorResult("id is required")
	}

	docs, err := t.open(ctx)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if prior, getErr := docs.Get(id); getErr == nil {
		if raw, marshalErr := json.Marshal(prior); marshalErr == nil {
			s := string(raw)
			if capture := SnapshotCaptureFromCtx(ctx); capture != nil {
				capture(docChangePath(id), &s)
			}
		}
	}

	if err := docs.Delete(id); err != nil {
		return ErrorResult(fmt.Sprintf("failed to delete document: %v", err))
	}

	return SilentResult(fmt.Sprintf("deleted document %s", id))
}
