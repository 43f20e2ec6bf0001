// Package indexer implements the Indexer (C6): the incremental upsert/delete
// path driven by ingest events, and the zero-downtime full reindex driven by
// the CLI or the HTTP rebuild endpoint.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/itrecruiter/candidatesearch/internal/candidate"
	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
	"github.com/itrecruiter/candidatesearch/internal/lexical"
	"github.com/itrecruiter/candidatesearch/internal/project"
)

// DefaultBatchSize is the full-reindex page size fixed by spec §4.6.
const DefaultBatchSize = 500

// LexicalStore is the subset of the lexical adapter (C2) the indexer needs.
type LexicalStore interface {
	Index(ctx context.Context, indexOrAlias, id string, doc any) error
	Bulk(ctx context.Context, index string, actions []lexical.BulkAction) (int, []lexical.BulkFailure, error)
	DeleteByID(ctx context.Context, indexOrAlias, id string) error
	CreateIndex(ctx context.Context, name string) error
	DropIndex(ctx context.Context, name string) error
	ListIndicesForAlias(ctx context.Context, alias string) ([]string, error)
	SwapAlias(ctx context.Context, alias, newIndex string) error
}

// VectorStore is the subset of the vector adapter (C3) the indexer needs.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	Delete(ctx context.Context, ids []string) error
	DropCollection(ctx context.Context) error
}

// SourceClient is the subset of the candidate source client (C4) the
// indexer needs to page through the full candidate set during a rebuild.
type SourceClient interface {
	FetchBatch(ctx context.Context, limit, offset int) ([]candidate.Candidate, error)
}

// Embedder is the subset of the embedding gate (C1) the indexer needs.
type Embedder interface {
	EncodeOne(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures the Indexer.
type Config struct {
	LexicalAlias string
	BatchSize    int
	LockDir      string
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Indexer is the Indexer (C6).
type Indexer struct {
	lexical  LexicalStore
	vector   VectorStore
	source   SourceClient
	embedder Embedder
	lock     *RebuildLock
	cfg      Config
	logger   *slog.Logger
}

// New builds an Indexer wired to its four collaborators.
func New(cfg Config, lexicalStore LexicalStore, vectorStore VectorStore, sourceClient SourceClient, embedder Embedder, logger *slog.Logger) *Indexer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	var lock *RebuildLock
	if cfg.LockDir != "" {
		lock = NewRebuildLock(cfg.LockDir)
	}
	return &Indexer{
		lexical:  lexicalStore,
		vector:   vectorStore,
		source:   sourceClient,
		embedder: embedder,
		lock:     lock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Upsert projects a candidate to both stores. No flush is required per
// message — the lexical store's bulk/near-real-time refresh and the vector
// store's own flush timer take care of visibility. Equivalent to calling
// UpsertLexical then UpsertVector; kept for callers (the CLI, tests) that
// don't need to split the two phases across schedulers the way the ingest
// consumer does.
func (ix *Indexer) Upsert(ctx context.Context, c candidate.Candidate) error {
	if err := ix.UpsertLexical(ctx, c); err != nil {
		return err
	}
	return ix.UpsertVector(ctx, c)
}

// UpsertLexical projects and writes a candidate to the lexical store only.
// The ingest consumer runs this on its I/O scheduler goroutine, ahead of
// handing the CPU-bound embedding step to a bounded worker pool.
func (ix *Indexer) UpsertLexical(ctx context.Context, c candidate.Candidate) error {
	lexicalDoc, err := project.ToLexical(c)
	if err != nil {
		return err
	}
	if err := ix.lexical.Index(ctx, ix.cfg.LexicalAlias, lexicalDoc.ID, lexicalDoc); err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeLexicalTimeout, err)
	}
	return nil
}

// UpsertVector projects, embeds, and upserts a candidate into the vector
// store only. The ingest consumer runs this on its bounded worker pool,
// since embedding is CPU-bound and must not stall message dispatch.
func (ix *Indexer) UpsertVector(ctx context.Context, c candidate.Candidate) error {
	lexicalDoc, err := project.ToLexical(c)
	if err != nil {
		return err
	}

	semanticText := project.ToSemanticText(c)
	vec, err := ix.embedder.EncodeOne(ctx, semanticText)
	if err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeEmbeddingFailed, err)
	}

	if err := ix.vector.Upsert(ctx, []string{lexicalDoc.ID}, [][]float32{vec}); err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeVectorTimeout, err)
	}
	return nil
}

// Delete removes a candidate from both stores by id.
func (ix *Indexer) Delete(ctx context.Context, id string) error {
	if err := ix.lexical.DeleteByID(ctx, ix.cfg.LexicalAlias, id); err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeLexicalTimeout, err)
	}
	if err := ix.vector.Delete(ctx, []string{id}); err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeVectorTimeout, err)
	}
	return nil
}

// Result is what FullReindex returns on success.
type Result struct {
	ActiveIndex  string
	TotalIndexed int
}

// FullReindex rebuilds both stores from scratch with zero read downtime:
// it builds a brand-new lexical index and a freshly emptied vector
// collection, then atomically swaps the alias once the new index is fully
// populated. Any unrecoverable failure before the swap aborts without
// touching the live alias; the partially populated new index is left for
// manual cleanup. Concurrent rebuilds are serialized by RebuildLock when
// configured.
func (ix *Indexer) FullReindex(ctx context.Context) (Result, error) {
	if ix.lock != nil {
		acquired, err := ix.lock.TryLock()
		if err != nil {
			return Result{}, searcherrors.Wrap(searcherrors.ErrCodeInternal, err)
		}
		if !acquired {
			return Result{}, searcherrors.New(searcherrors.ErrCodeInternal, "a full reindex is already in progress", nil)
		}
		defer func() { _ = ix.lock.Unlock() }()
	}

	newIndex := fmt.Sprintf("%s-%d", ix.cfg.LexicalAlias, time.Now().Unix())
	if err := ix.lexical.CreateIndex(ctx, newIndex); err != nil {
		return Result{}, searcherrors.Wrap(searcherrors.ErrCodeLexicalTimeout, err)
	}

	if err := ix.vector.DropCollection(ctx); err != nil {
		return Result{}, searcherrors.Wrap(searcherrors.ErrCodeVectorTimeout, err)
	}
	if err := ix.vector.EnsureCollection(ctx); err != nil {
		return Result{}, searcherrors.Wrap(searcherrors.ErrCodeVectorTimeout, err)
	}

	totalIndexed := 0
	offset := 0
	for {
		batch, err := ix.source.FetchBatch(ctx, ix.cfg.BatchSize, offset)
		if err != nil {
			return Result{}, searcherrors.Wrap(searcherrors.ErrCodeSourceTimeout, err)
		}
		if len(batch) == 0 {
			break
		}

		if err := ix.indexBatch(ctx, newIndex, batch); err != nil {
			return Result{}, err
		}

		totalIndexed += len(batch)
		offset += ix.cfg.BatchSize
	}

	previousIndices, err := ix.lexical.ListIndicesForAlias(ctx, ix.cfg.LexicalAlias)
	if err != nil {
		return Result{}, searcherrors.Wrap(searcherrors.ErrCodeLexicalTimeout, err)
	}
	if err := ix.lexical.SwapAlias(ctx, ix.cfg.LexicalAlias, newIndex); err != nil {
		return Result{}, searcherrors.Wrap(searcherrors.ErrCodeLexicalTimeout, err)
	}

	for _, old := range previousIndices {
		if old == newIndex {
			continue
		}
		if err := ix.lexical.DropIndex(ctx, old); err != nil {
			ix.logger.Warn("failed to delete superseded index after alias swap",
				"index", old, "error", err.Error())
		}
	}

	return Result{ActiveIndex: newIndex, TotalIndexed: totalIndexed}, nil
}

// indexBatch projects, lexically bulk-indexes, and vector-upserts one page
// of candidates during a full reindex.
func (ix *Indexer) indexBatch(ctx context.Context, newIndex string, batch []candidate.Candidate) error {
	actions := make([]lexical.BulkAction, 0, len(batch))
	texts := make([]string, 0, len(batch))
	ids := make([]string, 0, len(batch))

	for _, c := range batch {
		lexicalDoc, err := project.ToLexical(c)
		if err != nil {
			ix.logger.Warn("skipping candidate with invalid projection", "error", err.Error())
			continue
		}
		actions = append(actions, lexical.BulkAction{ID: lexicalDoc.ID, Doc: lexicalDoc})
		texts = append(texts, project.ToSemanticText(c))
		ids = append(ids, lexicalDoc.ID)
	}

	if len(actions) == 0 {
		return nil
	}

	if _, failures, err := ix.lexical.Bulk(ctx, newIndex, actions); err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeLexicalTimeout, err)
	} else if len(failures) > 0 {
		ix.logger.Warn("bulk index reported per-document failures", "count", len(failures))
	}

	vectors, err := ix.embedder.EncodeBatch(ctx, texts)
	if err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeEmbeddingFailed, err)
	}
	if err := ix.vector.Upsert(ctx, ids, vectors); err != nil {
		return searcherrors.Wrap(searcherrors.ErrCodeVectorTimeout, err)
	}
	return nil
}
