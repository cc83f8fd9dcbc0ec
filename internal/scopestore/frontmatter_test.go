package scopestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrontmatterRoundTrip(t *testing.T) {
	doc := Document{ID: "doc-1", Title: "Roadmap", Tags: []string{"a", "b"}}

	raw, err := encodeFrontmatter(&doc, "# Roadmap\n\nBody text.\n")
	require.NoError(t, err)

	var decoded Document
	body, err := decodeFrontmatter(raw, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "# Roadmap\n\nBody text.\n", body)
	assert.Equal(t, "doc-1", decoded.ID)
	assert.Equal(t, "Roadmap", decoded.Title)
	assert.Equal(t, []string{"a", "b"}, decoded.Tags)
}

func TestDecodeFrontmatterWithoutBlockReturnsWholeInputAsBody(t *testing.T) {
	var doc Document
	body, err := decodeFrontmatter([]byte("just plain text, no frontmatter"), &doc)
	require.NoError(t, err)
	assert.Equal(t, "just plain text, no frontmatter", body)
	assert.Empty(t, doc.ID)
}

func TestDecodeFrontmatterUnterminatedBlockErrors(t *testing.T) {
	var doc Document
	_, _, err := splitFrontmatter([]byte("---\nid: doc-1\ntitle: x\n"))
	assert.Error(t, err)
	_ = doc
}
