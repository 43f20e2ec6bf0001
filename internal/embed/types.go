// Package embed is the embedding gate (C1): the single point of access to
// the candidate-profile embedding model, with batching and a bounded LRU
// cache of query embeddings in front of it.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size. The EmbedBatch
	// implementations do not enforce it.
	MaxBatchSize = 256

	// DefaultBatchSize is the default encode batch size. The indexer does not
	// use it: FullReindex passes each whole fetched page to one EncodeBatch
	// call.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single encode_one/encode_batch call to the
	// embedding model.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts against the
	// embedding model endpoint.
	DefaultMaxRetries = 3

	// DefaultQueryCacheSize is the bounded LRU cache capacity for query
	// embeddings (spec §4.1: capacity 1024).
	DefaultQueryCacheSize = 1024
)

// Dimensions is the fixed embedding width this system is built around
// (EmbeddingGemma-compatible, matches candidate.Dimensions).
const Dimensions = 768

// Embedder generates vector embeddings for text. Implementations may be
// backed by a networked model-serving endpoint or, for offline/test use, a
// deterministic hash-based fallback.
type Embedder interface {
	// Embed generates the embedding for a single text (encode_one).
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one round trip
	// (encode_batch).
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width, D.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources held by the embedder.
	Close() error
}

// normalizeVector scales v to unit length. Used by the static fallback
// embedder so its cosine-similarity behavior resembles a real model's.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
