package scopestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopesOpenCachesStorePerRoot(t *testing.T) {
	sc := NewScopes(nil)
	root := t.TempDir()

	a, err := sc.Open(root)
	require.NoError(t, err)
	b, err := sc.Open(root)
	require.NoError(t, err)

	assert.Same(t, a, b)
	sc.CloseAll()
}

func TestScopesOpenReturnsDistinctStoresForDistinctRoots(t *testing.T) {
	sc := NewScopes(nil)

	a, err := sc.Open(t.TempDir())
	require.NoError(t, err)
	b, err := sc.Open(t.TempDir())
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	sc.CloseAll()
}
