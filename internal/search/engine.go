package search

import (
	"context"
	"log/slog"

	"github.com/itrecruiter/candidatesearch/internal/lexical"
	"github.com/itrecruiter/candidatesearch/internal/vector"
)

// LexicalSearcher is the subset of the lexical adapter (C2) the engine needs
// for stage one.
type LexicalSearcher interface {
	Search(ctx context.Context, index string, q lexical.Query, size int, sourceFields []string) ([]lexical.Hit, error)
}

// VectorSearcher is the subset of the vector adapter (C3) the engine needs
// for stage two.
type VectorSearcher interface {
	Search(ctx context.Context, queryVec []float32, topK int, idAllowlist []string) ([]vector.Hit, error)
}

// Embedder is the subset of the embedding gate (C1) the engine needs to
// encode the stage-two query text.
type Embedder interface {
	EncodeOne(ctx context.Context, text string) ([]float32, error)
}

// Config configures the Engine.
type Config struct {
	// LexicalIndex is the alias the lexical filter stage searches (spec's
	// "candidates" alias, always resolving to the currently active index).
	LexicalIndex string
	// VectorTopK is the number of ANN hits stage two requests (spec §4.7: 10).
	VectorTopK int
	// RRFK is the RRF smoothing constant (spec §4.7: 60).
	RRFK int
}

func (c Config) withDefaults() Config {
	if c.VectorTopK <= 0 {
		c.VectorTopK = 10
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFConstant
	}
	return c
}

// Engine is the Hybrid Search Engine (C7): builds the structured filter
// query, executes the two-stage lexical+semantic retrieval, and fuses the
// two rankings with RRF.
type Engine struct {
	lexical  LexicalSearcher
	vector   VectorSearcher
	embedder Embedder
	fusion   *RRFFusion
	cfg      Config
	logger   *slog.Logger
}

// New builds an Engine wired to its three collaborators.
func New(cfg Config, lexicalSearcher LexicalSearcher, vectorSearcher VectorSearcher, embedder Embedder, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lexical:  lexicalSearcher,
		vector:   vectorSearcher,
		embedder: embedder,
		fusion:   NewRRFFusionWithK(cfg.RRFK),
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs the three-stage pipeline described by spec §4.7 and returns
// the fused, ranked candidate list.
func (e *Engine) Search(ctx context.Context, filters Filters) ([]*FusedResult, error) {
	filters = filters.Normalize()

	lexicalOrder, err := e.stageOneFilter(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(lexicalOrder) == 0 {
		return []*FusedResult{}, nil
	}

	semanticText := buildSemanticQueryText(filters)
	if semanticText == "" {
		return e.fusion.Fuse(lexicalOrder, nil), nil
	}

	vectorOrder, err := e.stageTwoRerank(ctx, semanticText, lexicalOrder)
	if err != nil {
		// Degrade to lexical-only ranking rather than fail the request
		// (spec §7: ANN search failure).
		e.logger.Warn("vector rerank failed, degrading to lexical-only ranking", "error", err.Error())
		return e.lexicalOnlyResults(lexicalOrder), nil
	}

	return e.fusion.Fuse(lexicalOrder, vectorOrder), nil
}

// stageOneFilter executes the structured lexical filter and returns the
// ordered list of matching candidate ids.
func (e *Engine) stageOneFilter(ctx context.Context, filters Filters) ([]string, error) {
	q := buildFilterQuery(filters)
	hits, err := e.lexical.Search(ctx, e.cfg.LexicalIndex, q, StageOneSize, []string{"id"})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// stageTwoRerank encodes the semantic query text and runs the ANN search
// restricted to the stage-one candidate set.
func (e *Engine) stageTwoRerank(ctx context.Context, semanticText string, idAllowlist []string) ([]string, error) {
	queryVec, err := e.embedder.EncodeOne(ctx, semanticText)
	if err != nil {
		return nil, err
	}

	hits, err := e.vector.Search(ctx, queryVec, e.cfg.VectorTopK, idAllowlist)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// lexicalOnlyResults builds a FusedResult list directly from the stage-one
// order, for the degraded-search path.
func (e *Engine) lexicalOnlyResults(lexicalOrder []string) []*FusedResult {
	return e.fusion.Fuse(lexicalOrder, nil)
}
