package embed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Gate is the embedding gate (C1): the single point of access to the
// embedding model used by both the search engine (query-time) and the
// indexer/ingest consumer (document-time). The model instance underneath is
// process-global with lazy initialization on first use; initialization
// failure is fatal and terminal, per spec §4.1.
//
// Gate can also rate-limit EncodeBatch, the full reindex's batch-embedding
// path. EncodeOne is never limited; it serves both query-time search and the
// ingest consumer's per-candidate upserts.
type Gate struct {
	newEmbedder func(ctx context.Context) (Embedder, error)
	limiter     *rate.Limiter

	once     sync.Once
	initErr  error
	embedder Embedder
}

// NewGate builds a Gate around a constructor function, deferring embedder
// construction until the first EncodeOne/EncodeBatch call. burstRPS bounds
// the sustained rate of document-time embedding requests; pass 0 to disable
// limiting (query-time calls are never limited).
func NewGate(newEmbedder func(ctx context.Context) (Embedder, error), burstRPS int) *Gate {
	var limiter *rate.Limiter
	if burstRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(burstRPS), burstRPS)
	}
	return &Gate{newEmbedder: newEmbedder, limiter: limiter}
}

// ensure lazily constructs and warms up the embedder exactly once.
func (g *Gate) ensure(ctx context.Context) (Embedder, error) {
	g.once.Do(func() {
		g.embedder, g.initErr = g.newEmbedder(ctx)
	})
	if g.initErr != nil {
		return nil, fmt.Errorf("embedding gate: fatal initialization failure: %w", g.initErr)
	}
	return g.embedder, nil
}

// EncodeOne embeds a single piece of text (query or document).
func (g *Gate) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	embedder, err := g.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return embedder.Embed(ctx, text)
}

// EncodeBatch embeds a batch of document texts. Used by the indexer's
// full-reindex; rate-limited when a burst limiter is configured so indexing
// traffic yields to query traffic.
func (g *Gate) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embedder, err := g.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if g.limiter != nil {
		if err := g.limiter.WaitN(ctx, len(texts)); err != nil {
			return nil, fmt.Errorf("embedding gate: rate limit wait: %w", err)
		}
	}
	return embedder.EmbedBatch(ctx, texts)
}

// Dimensions returns D, forcing initialization if not already done.
func (g *Gate) Dimensions(ctx context.Context) (int, error) {
	embedder, err := g.ensure(ctx)
	if err != nil {
		return 0, err
	}
	return embedder.Dimensions(), nil
}

// Available reports whether the gate's embedder is ready, without forcing
// initialization (returns false if not yet initialized).
func (g *Gate) Available(ctx context.Context) bool {
	if g.embedder == nil {
		return false
	}
	return g.embedder.Available(ctx)
}

// Close releases the underlying embedder, if initialized.
func (g *Gate) Close() error {
	if g.embedder == nil {
		return nil
	}
	return g.embedder.Close()
}
