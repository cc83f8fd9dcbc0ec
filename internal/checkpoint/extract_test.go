package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/model"
)

func toolPart(name string, args map[string]interface{}, isError bool) model.Part {
	return model.Part{
		Type:      model.PartTool,
		Name:      name,
		Arguments: args,
		IsError:   isError,
	}
}

func TestExtractChangeFileWrite(t *testing.T) {
	fc, ok := ExtractChange(toolPart("prizm_file_write", map[string]interface{}{"path": "notes.md"}, false))
	require.True(t, ok)
	assert.Equal(t, model.FileChange{Path: "notes.md", Action: model.FileCreated}, fc)
}

func TestExtractChangeFileMove(t *testing.T) {
	fc, ok := ExtractChange(toolPart("prizm_file_move", map[string]interface{}{
		"from": "old.md", "to": "new.md",
	}, false))
	require.True(t, ok)
	assert.Equal(t, model.FileChange{Path: "new.md", Action: model.FileMoved, FromPath: "old.md"}, fc)
}

func TestExtractChangeFileDelete(t *testing.T) {
	fc, ok := ExtractChange(toolPart("prizm_file_delete", map[string]interface{}{"path": "gone.md"}, false))
	require.True(t, ok)
	assert.Equal(t, model.FileChange{Path: "gone.md", Action: model.FileDeleted}, fc)
}

func TestExtractChangeCreateDocument(t *testing.T) {
	fc, ok := ExtractChange(toolPart("prizm_create_document", map[string]interface{}{"title": "Roadmap"}, false))
	require.True(t, ok)
	assert.Equal(t, model.FileChange{Path: "[doc] Roadmap", Action: model.FileCreated}, fc)
}

func TestExtractChangeUpdateDocument(t *testing.T) {
	fc, ok := ExtractChange(toolPart("prizm_update_document", map[string]interface{}{"id": "doc-1"}, false))
	require.True(t, ok)
	assert.Equal(t, model.FileChange{Path: "[doc] doc-1", Action: model.FileModified}, fc)
}

func TestExtractChangeDeleteDocument(t *testing.T) {
	fc, ok := ExtractChange(toolPart("prizm_delete_document", map[string]interface{}{"id": "doc-1"}, false))
	require.True(t, ok)
	assert.Equal(t, model.FileChange{Path: "[doc] doc-1", Action: model.FileDeleted}, fc)
}

func TestExtractChangeRejectsErrorPart(t *testing.T) {
	_, ok := ExtractChange(toolPart("prizm_file_write", map[string]interface{}{"path": "notes.md"}, true))
	assert.False(t, ok)
}

func TestExtractChangeRejectsUnrecognizedName(t *testing.T) {
	_, ok := ExtractChange(toolPart("read_file", map[string]interface{}{"path": "notes.md"}, false))
	assert.False(t, ok)
}

func TestExtractChangeRejectsMissingArgument(t *testing.T) {
	_, ok := ExtractChange(toolPart("prizm_file_write", map[string]interface{}{}, false))
	assert.False(t, ok)
}

func TestExtractChangeRejectsEmptyStringArgument(t *testing.T) {
	_, ok := ExtractChange(toolPart("prizm_file_delete", map[string]interface{}{"path": ""}, false))
	assert.False(t, ok)
}

func TestExtractChangeRejectsPartialMoveArguments(t *testing.T) {
	_, ok := ExtractChange(toolPart("prizm_file_move", map[string]interface{}{"from": "old.md"}, false))
	assert.False(t, ok)
}

func TestExtractChangesFromPartsDedupsByFirstOccurrence(t *testing.T) {
	parts := []model.Part{
		toolPart("prizm_file_write", map[string]interface{}{"path": "a.md"}, false),
		{Type: model.PartText, Content: "thinking about it"},
		toolPart("unknown_tool", map[string]interface{}{"path": "a.md"}, false),
		toolPart("prizm_file_write", map[string]interface{}{"path": "a.md"}, false),
		toolPart("prizm_file_delete", map[string]interface{}{"path": "b.md"}, true),
		toolPart("prizm_file_delete", map[string]interface{}{"path": "c.md"}, false),
	}

	got := ExtractChangesFromParts(parts)

	require.Len(t, got, 2)
	assert.Equal(t, model.FileChange{Path: "a.md", Action: model.FileCreated}, got[0])
	assert.Equal(t, model.FileChange{Path: "c.md", Action: model.FileDeleted}, got[1])
}
