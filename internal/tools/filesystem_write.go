package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileTool creates or overwrites a file in the scope workspace.
// Grounded on ReadFileTool's path-resolution contract (same resolvePath
// helper, same restrict-to-workspace boundary) since the teacher's own
// write_file tool lives outside the retrieved corpus (cmd/gateway_managed.go
// only wires an already-registered "write_file" tool by name, never defines
// one in internal/tools).
type WriteFileTool struct {
	workspace string
	restrict  bool
}

func NewWriteFileTool(workspace string, restrict bool) *WriteFileTool {
	return &WriteFileTool{workspace: workspace, restrict: restrict}
}

func (t *WriteFileTool) Name() string        { return "prizm_file_write" }
func (t *WriteFileTool) Description() string { return "Write content to a file, creating it or overwriting it if it already exists" }

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return ErrorResult("path is required")
	}

	workspace := ToolWorkspaceFromCtx(ctx)
	if workspace == "" {
		workspace = t.workspace
	}
	resolved, err := resolvePath(path, workspace, t.restrict)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("failed to create parent directory: %v", err))
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("failed to write file: %v", err))
	}

	return SilentResult(fmt.Sprintf("wrote %d bytes to %s", len(content), path))
}

// MoveFileTool renames or moves a file within the scope workspace.
type MoveFileTool struct {
	workspace string
	restrict  bool
}

func NewMoveFileTool(workspace string, restrict bool) *MoveFileTool {
	return &MoveFileTool{workspace: workspace, restrict: restrict}
}

func (t *MoveFileTool) Name() string        { return "prizm_file_move" }
func (t *MoveFileTool) Description() string { return "Move or rename a file within the workspace" }

func (t *MoveFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"from": map[string]interface{}{
				"type":        "string",
				"description": "Current path of the file",
			},
			"to": map[string]interface{}{
				"type":        "string",
				"description": "Destination path for the file",
			},
		},
		"required": []string{"from", "to"},
	}
}

func (t *MoveFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)
	if from == "" || to == "" {
		return ErrorResult("from and to are required")
	}

	workspace := ToolWorkspaceFromCtx(ctx)
	if workspace == "" {
		workspace = t.workspace
	}
	resolvedFrom, err := resolvePath(from, workspace, t.restrict)
	if err != nil {
		return ErrorResult(err.Error())
	}
	resolvedTo, err := resolvePath(to, workspace, t.restrict)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if capture := SnapshotCaptureFromCtx(ctx); capture != nil {
		if data, err := os.ReadFile(resolvedFrom); err == nil {
			s := string(data)
			capture(from, &s)
		} else {
			capture(from, nil)
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolvedTo), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("failed to create destination directory: %v", err))
	}
	if err := os.Rename(resolvedFrom, resolvedTo); err != nil {
		return ErrorResult(fmt.Sprintf("failed to move file: %v", err))
	}

	return SilentResult(fmt.Sprintf("moved %s to %s", from, to))
}

// DeleteFileTool removes a file from the scope workspace.
type DeleteFileTool struct {
	workspace string
	restrict  bool
}

func NewDeleteFileTool(workspace string, restrict bool) *DeleteFileTool {
	return &DeleteFileTool{workspace: workspace, restrict: restrict}
}

func (t *DeleteFileTool) Name() string        { return "prizm_file_delete" }
func (t *DeleteFileTool) Description() string { return "Delete a file from the workspace" }

func (t *DeleteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to delete",
			},
		},
		"required": []string{"path"},
	}
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	if path == "" {
		return ErrorResult("path is required")
	}

	workspace := ToolWorkspaceFromCtx(ctx)
	if workspace == "" {
		workspace = t.workspace
	}
	resolved, err := resolvePath(path, workspace, t.restrict)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if capture := SnapshotCaptureFromCtx(ctx); capture != nil {
		if data, err := os.ReadFile(resolved); err == nil {
			s := string(data)
			capture(path, &s)
		} else {
			capture(path, nil)
		}
	}

	if err := os.Remove(resolved); err != nil {
		return ErrorResult(fmt.Sprintf("failed to delete file: %v", err))
	}

	return SilentResult(fmt.Sprintf("deleted %s", path))
}
