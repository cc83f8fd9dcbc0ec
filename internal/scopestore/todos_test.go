package scopestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/errs"
)

func TestTodoStoreAddListSetDoneRemove(t *testing.T) {
	s, err := newTodoStore(t.TempDir(), nil)
	require.NoError(t, err)

	item, err := s.Add("buy milk")
	require.NoError(t, err)
	require.Len(t, s.List(), 1)

	require.NoError(t, s.SetDone(item.ID, true))
	list := s.List()
	require.Len(t, list, 1)
	assert.True(t, list[0].Done)

	require.NoError(t, s.Remove(item.ID))
	assert.Empty(t, s.List())
}

func TestTodoStoreSetDoneMissingReturnsNotFound(t *testing.T) {
	s, err := newTodoStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.SetDone("missing", true)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestTodoStoreRemoveMissingReturnsNotFound(t *testing.T) {
	s, err := newTodoStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Remove("missing")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestTodoStorePersistsAcrossReload(t *testing.T) {
	root := t.TempDir()
	s, err := newTodoStore(root, nil)
	require.NoError(t, err)
	_, err = s.Add("task one")
	require.NoError(t, err)

	reopened, err := newTodoStore(root, nil)
	require.NoError(t, err)

	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, "task one", list[0].Text)
}

func TestTodoStoreListReturnsCopyNotSharedSlice(t *testing.T) {
	s, err := newTodoStore(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = s.Add("task one")
	require.NoError(t, err)

	list := s.List()
	list[0].Text = "mutated"

	fresh := s.List()
	assert.Equal(t, "task one", fresh[0].Text)
}
