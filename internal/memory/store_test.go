package memory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOpenTwiceOnSamePathIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var n int
	require.NoError(t, s2.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n))
	assert.Equal(t, 0, n)
}
