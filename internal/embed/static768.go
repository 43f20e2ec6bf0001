package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder generates deterministic, hash-based 768-dimensional
// embeddings without calling out to a model at all. It is dimension-
// compatible with the networked model (embed.Dimensions) so it can serve as
// an offline/test fallback without requiring a separate reindex to switch
// back. Initialization of the networked embedder failing is fatal per
// spec §4.1; this type exists for tests and local development, not as a
// silent production fallback.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// stopWords contains common filler words to exclude from the hash signal.
var stopWords = map[string]bool{
	"и": true, "в": true, "на": true, "с": true, "по": true,
	"the": true, "a": true, "an": true, "and": true, "or": true,
}

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// NewStaticEmbedder creates a new deterministic fallback embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates the embedding for a single text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, Dimensions), nil
	}

	return normalizeVector(e.generateVector(trimmed)), nil
}

func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, Dimensions)

	tokens := filterStopWords(tokenize(text))
	for _, token := range tokens {
		vector[hashToIndex(token, Dimensions)] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, Dimensions)] += ngramWeight
	}

	return vector
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if lower != "" {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !stopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return Dimensions }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string { return "static768" }

// Available reports whether the embedder is ready (always true unless closed).
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
