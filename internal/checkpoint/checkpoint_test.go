package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/model"
)

func TestCreateCheckpointIsIncomplete(t *testing.T) {
	cp := CreateCheckpoint("sess-1", 3, "please rename the file")

	assert.Equal(t, "sess-1", cp.SessionID)
	assert.Equal(t, 3, cp.MessageIndex)
	assert.Equal(t, "please rename the file", cp.UserMessage)
	assert.False(t, cp.Completed)
	assert.Nil(t, cp.FileChanges)
	assert.NotEmpty(t, cp.ID)
}

func TestCreateCheckpointGeneratesDistinctIDs(t *testing.T) {
	a := CreateCheckpoint("sess-1", 0, "x")
	b := CreateCheckpoint("sess-1", 0, "x")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCompleteCheckpointLeavesInputUntouched(t *testing.T) {
	cp := CreateCheckpoint("sess-1", 0, "do it")
	changes := []model.FileChange{{Path: "a.md", Action: model.FileCreated}}

	out := CompleteCheckpoint(cp, changes)

	assert.False(t, cp.Completed)
	assert.Nil(t, cp.FileChanges)

	assert.True(t, out.Completed)
	assert.Equal(t, changes, out.FileChanges)
	assert.Equal(t, cp.ID, out.ID)
}

func TestCompleteCheckpointCopiesFileChangesSlice(t *testing.T) {
	cp := CreateCheckpoint("sess-1", 0, "do it")
	changes := []model.FileChange{{Path: "a.md", Action: model.FileCreated}}

	out := CompleteCheckpoint(cp, changes)
	changes[0].Path = "mutated.md"

	assert.Equal(t, "a.md", out.FileChanges[0].Path)
}
