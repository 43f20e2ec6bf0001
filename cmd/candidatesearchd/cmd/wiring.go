package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/itrecruiter/candidatesearch/internal/asyncjob"
	"github.com/itrecruiter/candidatesearch/internal/config"
	"github.com/itrecruiter/candidatesearch/internal/embed"
	"github.com/itrecruiter/candidatesearch/internal/indexer"
	"github.com/itrecruiter/candidatesearch/internal/ingest"
	"github.com/itrecruiter/candidatesearch/internal/lexical"
	"github.com/itrecruiter/candidatesearch/internal/search"
	"github.com/itrecruiter/candidatesearch/internal/source"
	"github.com/itrecruiter/candidatesearch/internal/telemetry"
	"github.com/itrecruiter/candidatesearch/internal/vector"
)

// components bundles every collaborator the service's three entrypoints
// (serve, reindex, doctor) wire together, so each command only assembles
// the subset it actually uses.
type components struct {
	lexical   *lexical.Client
	vector    *vector.Client
	source    *source.Client
	embedder  *embed.Gate
	indexer   *indexer.Indexer
	engine    *search.Engine
	store     *asyncjob.Store
	launcher  *asyncjob.Launcher
	metrics   *telemetry.QueryMetrics
	metricsDB *sql.DB
}

// closeAll releases every resource components opened.
func (c *components) closeAll() {
	if c.metrics != nil {
		_ = c.metrics.Close()
	}
	if c.metricsDB != nil {
		_ = c.metricsDB.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

// buildComponents wires every collaborator from cfg. The job ledger is
// opened at cfg.JobDBPath; an empty path gives an in-memory ledger.
func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	lexicalClient := lexical.NewClient(lexical.Config{BaseURL: cfg.ElasticsearchURL}, logger)
	vectorClient := vector.NewClient(vector.Config{
		BaseURL:        cfg.MilvusBaseURL(),
		CollectionName: cfg.CandidateAlias,
	}, logger)
	sourceClient := source.NewClient(source.Config{BaseURL: cfg.CandidateAPIURL}, logger)

	embedder := embed.NewGate(func(ctx context.Context) (embed.Embedder, error) {
		return embed.NewEmbedder(ctx, embed.ProviderHTTP, "", cfg.SentenceModelName)
	}, 0)

	ix := indexer.New(indexer.Config{
		LexicalAlias: cfg.CandidateAlias,
		BatchSize:    cfg.BatchSize,
		LockDir:      config.DefaultStateDir(),
	}, lexicalClient, vectorClient, sourceClient, embedder, logger)

	engine := search.New(search.Config{
		LexicalIndex: cfg.CandidateAlias,
		RRFK:         cfg.RRFK,
	}, lexicalClient, vectorClient, embedder, logger)

	store, err := asyncjob.Open(cfg.JobDBPath)
	if err != nil {
		return nil, err
	}
	reindexFn := func(ctx context.Context) (asyncjob.Result, error) {
		result, err := ix.FullReindex(ctx)
		return asyncjob.Result{ActiveIndex: result.ActiveIndex, TotalIndexed: result.TotalIndexed}, err
	}
	launcher := asyncjob.NewLauncher(store, reindexFn, logger)

	metricsDB, metrics, err := buildMetrics(cfg.MetricsDBPath)
	if err != nil {
		return nil, err
	}

	return &components{
		lexical:   lexicalClient,
		vector:    vectorClient,
		source:    sourceClient,
		embedder:  embedder,
		indexer:   ix,
		engine:    engine,
		store:     store,
		launcher:  launcher,
		metrics:   metrics,
		metricsDB: metricsDB,
	}, nil
}

// buildMetrics opens the query telemetry database and the collector on top
// of it. Telemetry is local-only (spec names no external metrics sink), so a
// small sqlite table alongside the job ledger is enough.
func buildMetrics(path string) (*sql.DB, *telemetry.QueryMetrics, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, nil, err
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, telemetry.NewQueryMetrics(metricsStore), nil
}

// buildConsumer wires the ingest consumer to an already-built indexer.
func buildConsumer(cfg *config.Config, ix *indexer.Indexer, logger *slog.Logger) *ingest.Consumer {
	return ingest.New(ingest.Config{
		AMQPURL:      cfg.AMQPURL(),
		ExchangeName: cfg.CandidateExchangeName,
		PoolSize:     cfg.WorkerPoolSize,
	}, ix, logger)
}
