package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into a fixed-size vector. The signature matches the
// embedder clients in the broader example pack (OpenAI/Cohere/Ollama
// Embed(ctx, text) ([]float32, error) in kadirpekel-hector's v2/embedder
// package); a real HTTP-backed implementation is wired in the same shape
// at the call site, not reimplemented here.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is a dependency-free fallback used when no remote embedding
// provider is configured: a deterministic bag-of-hashed-tokens vector.
// It preserves exact-duplicate and near-duplicate detection (the cases the
// dedup pass actually needs to exercise) without a network call.
type HashEmbedder struct {
	Dims int
}

// NewHashEmbedder builds a HashEmbedder with the given vector width.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &HashEmbedder{Dims: dims}
}

// Embed never errors; it returns a normalized term-hash vector.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%e.Dims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// cosineDistance returns 1-cosine_similarity, 0 for identical normalized
// vectors, up to 2 for opposite ones.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 2
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot
}
