package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderIdenticalTextsAreIdentical(t *testing.T) {
	e := NewHashEmbedder(32)
	a, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.InDelta(t, 0, cosineDistance(a, b), 1e-9)
}

func TestHashEmbedderDistinctTextsDiffer(t *testing.T) {
	e := NewHashEmbedder(32)
	a, err := e.Embed(context.Background(), "the quick brown fox jumps")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "completely unrelated subject matter here")
	require.NoError(t, err)

	assert.Greater(t, cosineDistance(a, b), dedupThreshold)
}

func TestHashEmbedderDefaultsDimsWhenNonPositive(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, 64, e.Dims)
}

func TestCosineDistanceMismatchedLengthIsMaximal(t *testing.T) {
	assert.Equal(t, 2.0, cosineDistance([]float32{1, 0}, []float32{1, 0, 0}))
}

func TestCosineDistanceEmptyVectorIsMaximal(t *testing.T) {
	assert.Equal(t, 2.0, cosineDistance(nil, []float32{1}))
}
