package scopestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/errs"
)

func TestDocumentStoreCreateGetList(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)

	doc, err := s.Create("Roadmap", "body", []string{"x"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	got, err := s.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, doc.ID, list[0].ID)
}

func TestDocumentStoreGetMissingReturnsNotFound(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Get("no-such-id")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestDocumentStoreUpdatePartialFields(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)
	doc, err := s.Create("Title", "content", nil)
	require.NoError(t, err)

	newTitle := "New Title"
	updated, err := s.Update(doc.ID, &newTitle, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "content", updated.Content)
	assert.True(t, updated.UpdatedAt.After(doc.UpdatedAt) || updated.UpdatedAt.Equal(doc.UpdatedAt))
}

func TestDocumentStoreUpdateMissingReturnsNotFound(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)

	newTitle := "x"
	_, err = s.Update("missing", &newTitle, nil, nil)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestDocumentStoreDeleteRemovesFileAndCache(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)
	doc, err := s.Create("Title", "content", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(doc.ID))

	_, err = s.Get(doc.ID)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestDocumentStoreDeleteMissingReturnsNotFound(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Delete("missing")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestDocumentStorePersistsAcrossReload(t *testing.T) {
	root := t.TempDir()
	s, err := newDocumentStore(root, nil)
	require.NoError(t, err)
	doc, err := s.Create("Title", "body text", []string{"tag1"})
	require.NoError(t, err)

	reopened, err := newDocumentStore(root, nil)
	require.NoError(t, err)

	got, err := reopened.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Tags, got.Tags)
}

func TestDocumentStoreRestoreWritesBackSnapshot(t *testing.T) {
	s, err := newDocumentStore(t.TempDir(), nil)
	require.NoError(t, err)
	doc, err := s.Create("Title", "v1", nil)
	require.NoError(t, err)

	title2 := "v2 title"
	_, err = s.Update(doc.ID, &title2, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Restore(doc))

	got, err := s.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
}
