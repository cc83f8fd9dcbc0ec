package scopestore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/errs"
)

func TestClipboardStorePushOrdersNewestFirst(t *testing.T) {
	s, err := newClipboardStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Push("first")
	require.NoError(t, err)
	_, err = s.Push("second")
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Content)
	assert.Equal(t, "first", list[1].Content)
}

func TestClipboardStoreEvictsBeyondCapacity(t *testing.T) {
	s, err := newClipboardStore(t.TempDir(), nil)
	require.NoError(t, err)

	for i := 0; i < clipboardCapacity+5; i++ {
		_, err := s.Push(fmt.Sprintf("item-%d", i))
		require.NoError(t, err)
	}

	list := s.List()
	assert.Len(t, list, clipboardCapacity)
	assert.Equal(t, fmt.Sprintf("item-%d", clipboardCapacity+4), list[0].Content)
}

func TestClipboardStoreRemoveMissingReturnsNotFound(t *testing.T) {
	s, err := newClipboardStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Remove("missing")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestClipboardStoreRemoveDeletesItem(t *testing.T) {
	s, err := newClipboardStore(t.TempDir(), nil)
	require.NoError(t, err)
	item, err := s.Push("to remove")
	require.NoError(t, err)

	require.NoError(t, s.Remove(item.ID))
	assert.Empty(t, s.List())
}
